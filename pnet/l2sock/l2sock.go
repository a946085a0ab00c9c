// Package l2sock provides the raw-Ethernet transport the core's frame
// dispatch and cyclic producers/consumers send and receive through: a
// Linux AF_PACKET socket bound to one interface with ETH_P_ALL. The socket
// is not filtered: Recv returns frames of every EtherType, and the caller
// picks out 0x8892 (PROFINET) and 0x88cc (LLDP).
package l2sock

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

const (
	etherTypeProfinet = 0x8892
	etherTypeLLDP     = 0x88cc
)

// htons converts a host-order uint16 to network order, as required by
// AF_PACKET's sll_protocol field.
func htons(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.LittleEndian.Uint16(b[:])
}

// Socket is a raw Ethernet endpoint bound to one interface.
type Socket struct {
	fd      int
	ifIndex int
	mac     [6]byte
}

// Open binds a raw AF_PACKET socket to ifName, capturing every EtherType
// (PROFINET and LLDP among them).
func Open(ifName string) (*Socket, error) {
	var ifi, err = net.InterfaceByName(ifName)
	if err != nil {
		return nil, fmt.Errorf("pnet/l2sock: interface %q: %w", ifName, err)
	}

	var fd, sockErr = unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if sockErr != nil {
		return nil, fmt.Errorf("pnet/l2sock: socket: %w", sockErr)
	}

	var addr = &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifi.Index,
	}

	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("pnet/l2sock: bind: %w", err)
	}

	var mac [6]byte
	copy(mac[:], ifi.HardwareAddr)

	return &Socket{fd: fd, ifIndex: ifi.Index, mac: mac}, nil
}

// HardwareAddr returns the bound interface's MAC address.
func (s *Socket) HardwareAddr() [6]byte { return s.mac }

// Send writes one raw Ethernet frame (destination MAC, source MAC,
// EtherType, and payload already assembled by the caller).
func (s *Socket) Send(frame []byte) error {
	var addr = &unix.SockaddrLinklayer{
		Ifindex: s.ifIndex,
	}

	return unix.Sendto(s.fd, frame, 0, addr)
}

// Recv blocks for one frame, returning its EtherType, payload (everything
// after the 14-byte header), and source MAC.
func (s *Socket) Recv(buf []byte) (etherType uint16, payload []byte, srcMAC [6]byte, err error) {
	var n int
	n, _, err = unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		return 0, nil, srcMAC, fmt.Errorf("pnet/l2sock: recvfrom: %w", err)
	}

	if n < 14 {
		return 0, nil, srcMAC, fmt.Errorf("pnet/l2sock: short frame (%d bytes)", n)
	}

	copy(srcMAC[:], buf[6:12])
	etherType = binary.BigEndian.Uint16(buf[12:14])

	switch etherType {
	case etherTypeProfinet, etherTypeLLDP:
		return etherType, buf[14:n], srcMAC, nil
	default:
		return etherType, buf[14:n], srcMAC, nil
	}
}

// Close releases the underlying file descriptor.
func (s *Socket) Close() error {
	return unix.Close(s.fd)
}
