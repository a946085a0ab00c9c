package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	CMRPC - RPC request/response framing over UDP. Reassembles
 *		fragmented PDUs per session and dispatches the decoded
 *		request by opnum.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/uuid"
)

// RPCOpnum enumerates the CMRPC operations.
type RPCOpnum uint8

const (
	OpnumConnect  RPCOpnum = 0
	OpnumRelease  RPCOpnum = 1
	OpnumRead     RPCOpnum = 2
	OpnumWrite    RPCOpnum = 3
	OpnumDControl RPCOpnum = 4
	OpnumCControl RPCOpnum = 5
)

// RPCPort is the fixed PROFINET Context Manager UDP port.
const RPCPort = 0x8894

// rpcFragment is one wire PDU before reassembly: each carries a sequence
// number, a fragment number, a last-fragment flag, and an overall length.
type rpcFragment struct {
	SequenceNum uint16
	FragmentNum uint16
	Last        bool
	TotalLength uint32
	Payload     []byte
}

func decodeFragment(b []byte) (rpcFragment, error) {
	if len(b) < 12 {
		return rpcFragment{}, fmt.Errorf("pnet: rpc fragment too short")
	}

	var f rpcFragment
	f.SequenceNum = binary.BigEndian.Uint16(b[0:2])
	f.FragmentNum = binary.BigEndian.Uint16(b[2:4])
	f.Last = b[4] != 0
	f.TotalLength = binary.BigEndian.Uint32(b[8:12])
	f.Payload = b[12:]

	return f, nil
}

// rpcReassembly is one session's in-progress fragment buffer.
type rpcReassembly struct {
	sequenceNum uint16
	buf         []byte
	started     bool
}

// rpcMaxSessionBuf bounds one session's reassembly buffer (// fixed pools only).
const rpcMaxSessionBuf = 64 * 1024

// CMRPC is the device-wide RPC endpoint: one reassembly buffer per live
// session plus the session-less path used for pre-Connect Identify-style
// traffic is handled by DCP, not here.
type CMRPC struct {
	device      *Device
	reassembly  map[uuid.UUID]*rpcReassembly
	sender      RPCSender
}

// RPCSender is the UDP transport collaborator.
type RPCSender interface {
	SendRPC(peer net.IP, sessionKey uuid.UUID, opnum RPCOpnum, payload []byte) error
}

// NewCMRPC constructs the device's RPC endpoint.
func NewCMRPC(d *Device, sender RPCSender) *CMRPC {
	return &CMRPC{device: d, reassembly: make(map[uuid.UUID]*rpcReassembly), sender: sender}
}

// OnFragment reassembles one inbound fragment and, once complete, decodes
// and dispatches the request.
func (r *CMRPC) OnFragment(sessionKey uuid.UUID, peer net.IP, peerMAC [6]byte, opnum RPCOpnum, raw []byte) error {
	var frag, err = decodeFragment(raw)
	if err != nil {
		return err
	}

	var sess = r.reassembly[sessionKey]
	if sess == nil || sess.sequenceNum != frag.SequenceNum {
		sess = &rpcReassembly{sequenceNum: frag.SequenceNum, started: true}
		r.reassembly[sessionKey] = sess
	}

	if len(sess.buf)+len(frag.Payload) > rpcMaxSessionBuf {
		delete(r.reassembly, sessionKey)
		return newARError(ErrClassCMRPC, ErrCodeFragment, "reassembly buffer exceeded")
	}

	sess.buf = append(sess.buf, frag.Payload...)

	if !frag.Last {
		return nil
	}

	var complete = sess.buf
	delete(r.reassembly, sessionKey)

	return r.dispatch(sessionKey, peer, peerMAC, opnum, complete)
}

func (r *CMRPC) dispatch(sessionKey uuid.UUID, peer net.IP, peerMAC [6]byte, opnum RPCOpnum, payload []byte) error {
	var ar = r.device.findARBySession(sessionKey)

	switch opnum {
	case OpnumConnect:
		return r.handleConnect(sessionKey, peer, peerMAC, payload)

	case OpnumRelease:
		if ar == nil {
			return newARError(ErrClassCMRPC, ErrCodeDecodeError, "release for unknown session")
		}
		ar.CMSM.Restart()
		ar.OnReleaseRequest()
		r.reply(ar, OpnumRelease, nil)
		return nil

	case OpnumRead:
		if ar == nil {
			return newARError(ErrClassCMRPC, ErrCodeDecodeError, "read for unknown session")
		}
		ar.CMSM.Restart()
		var index = uint16(0)
		if len(payload) >= 2 {
			index = binary.BigEndian.Uint16(payload[0:2])
		}
		var api uint32
		var slot, subslot uint16
		if len(payload) >= 10 {
			api = binary.BigEndian.Uint32(payload[2:6])
			slot = binary.BigEndian.Uint16(payload[6:8])
			subslot = binary.BigEndian.Uint16(payload[8:10])
		}
		var block, err = r.device.CMRDR.Read(ar, api, slot, subslot, index)
		if err != nil {
			return err
		}
		r.reply(ar, OpnumRead, block)
		return nil

	case OpnumWrite:
		if ar == nil {
			return newARError(ErrClassCMRPC, ErrCodeDecodeError, "write for unknown session")
		}
		ar.CMSM.Restart()
		if len(payload) < 10 {
			return newARError(ErrClassCMRPC, ErrCodeDecodeError, "write PDU too short")
		}
		var index = binary.BigEndian.Uint16(payload[0:2])
		var api = binary.BigEndian.Uint32(payload[2:6])
		var slot = binary.BigEndian.Uint16(payload[6:8])
		var subslot = binary.BigEndian.Uint16(payload[8:10])
		if err := r.device.CMWRR.Write(ar, api, slot, subslot, index, payload[10:]); err != nil {
			return err
		}
		r.reply(ar, OpnumWrite, nil)
		return nil

	case OpnumDControl:
		if ar == nil {
			return newARError(ErrClassCMRPC, ErrCodeDecodeError, "dcontrol for unknown session")
		}
		ar.CMSM.Restart()
		if len(payload) < 1 {
			return newARError(ErrClassCMRPC, ErrCodeDecodeError, "dcontrol PDU too short")
		}
		var op = DControlOpcode(payload[0])
		if err := ar.OnDControl(op); err != nil {
			return err
		}
		if ar.device.Callbacks != nil {
			ar.device.Callbacks.DControlInd(ar.AREP, op)
		}
		r.reply(ar, OpnumDControl, []byte{payload[0]})
		return nil

	case OpnumCControl:
		if ar == nil {
			return newARError(ErrClassCMRPC, ErrCodeDecodeError, "ccontrol for unknown session")
		}
		return ar.OnApplReadyConfirmed()
	}

	return newARError(ErrClassCMRPC, ErrCodeUnknownOpnum, fmt.Sprintf("opnum %d", opnum))
}

// RequestApplReady emits the device-initiated CControl(APPL_RDY) request
// that follows PRM_END, carrying the AR's AREP so the controller can
// correlate its confirmation. A nil transport makes this a no-op, matching
// reply's behavior under test.
func (r *CMRPC) RequestApplReady(ar *AR) {
	if r.sender == nil || ar == nil {
		return
	}

	var b = make([]byte, 2)
	binary.BigEndian.PutUint16(b, ar.AREP)

	_ = r.sender.SendRPC(ar.PeerIP, ar.SessionKey, OpnumCControl, b)
}

// reply sends an opnum's RPC response back to the peer if a transport is
// attached; it is a silent no-op otherwise (e.g. under test, where
// reassembly/dispatch is exercised without a live socket).
func (r *CMRPC) reply(ar *AR, opnum RPCOpnum, payload []byte) {
	if r.sender == nil || ar == nil {
		return
	}

	_ = r.sender.SendRPC(ar.PeerIP, ar.SessionKey, opnum, payload)
}

// connectAllowedTypes is the AR type whitelist: only IOCARSingle without
// RT_CLASS_3 is accepted.
var connectAllowedTypes = map[ARType]bool{
	ARTypeIOCARSingle: true,
}

// cursor is a small position-advancing reader, the decode-side mirror of
// CMRDR's fixed block writer that advances a position cursor.
type cursor struct {
	b   []byte
	pos int
}

func (c *cursor) remaining() int { return len(c.b) - c.pos }

func (c *cursor) u8() (uint8, error) {
	if c.remaining() < 1 {
		return 0, fmt.Errorf("pnet: cursor underrun")
	}
	var v = c.b[c.pos]
	c.pos++
	return v, nil
}

func (c *cursor) u16() (uint16, error) {
	if c.remaining() < 2 {
		return 0, fmt.Errorf("pnet: cursor underrun")
	}
	var v = binary.BigEndian.Uint16(c.b[c.pos : c.pos+2])
	c.pos += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if c.remaining() < 4 {
		return 0, fmt.Errorf("pnet: cursor underrun")
	}
	var v = binary.BigEndian.Uint32(c.b[c.pos : c.pos+4])
	c.pos += 4
	return v, nil
}

// decodeConnect parses the AR block, its IOCR blocks, and each IOCR's
// expected-submodule blocks.
func decodeConnect(payload []byte) (ARType, ARProperties, uint16, []*IOCR, error) {
	var c = cursor{b: payload}

	var rawType, err = c.u16()
	if err != nil {
		return 0, ARProperties{}, 0, nil, newARError(ErrClassCMRPC, ErrCodeDecodeError, "connect: AR block truncated")
	}
	var arType = ARType(rawType)

	var rawProps, errProps = c.u16()
	if errProps != nil {
		return 0, ARProperties{}, 0, nil, newARError(ErrClassCMRPC, ErrCodeDecodeError, "connect: AR block truncated")
	}
	var props = ARProperties{StartupModeLegacy: rawProps&0x0001 != 0}

	var timeoutFactor, errTimeout = c.u16()
	if errTimeout != nil {
		return 0, ARProperties{}, 0, nil, newARError(ErrClassCMRPC, ErrCodeDecodeError, "connect: AR block truncated")
	}

	var numIOCRs, errNum = c.u16()
	if errNum != nil {
		return 0, ARProperties{}, 0, nil, newARError(ErrClassCMRPC, ErrCodeDecodeError, "connect: AR block truncated")
	}

	var iocrs []*IOCR
	for i := uint16(0); i < numIOCRs; i++ {
		var iocr, err = decodeIOCRBlock(&c)
		if err != nil {
			return 0, ARProperties{}, 0, nil, err
		}
		iocrs = append(iocrs, iocr)
	}

	return arType, props, timeoutFactor, iocrs, nil
}

// decodeIOCRBlock parses one IOCR block plus its expected-submodule list,
// computing each descriptor's frame offsets and the overall FrameLength,
// mapping slot/subslot data into the cyclic frame.
func decodeIOCRBlock(c *cursor) (*IOCR, error) {
	var rawType, err = c.u8()
	if err != nil {
		return nil, newARError(ErrClassCMRPC, ErrCodeDecodeError, "connect: IOCR block truncated")
	}

	var frameID, errFrame = c.u16()
	var vlan, errVLAN = c.u16()
	var scf, errSCF = c.u16()
	var rr, errRR = c.u16()
	var dhf, errDHF = c.u16()
	var numSub, errNumSub = c.u16()
	if errFrame != nil || errVLAN != nil || errSCF != nil || errRR != nil || errDHF != nil || errNumSub != nil {
		return nil, newARError(ErrClassCMRPC, ErrCodeDecodeError, "connect: IOCR block truncated")
	}

	var iocr = &IOCR{
		Type:            IOCRType(rawType),
		FrameID:         frameID,
		VLANTag:         vlan,
		SendClockFactor: scf,
		ReductionRatio:  rr,
		DataHoldFactor:  dhf,
	}

	var offset = 0
	for i := uint16(0); i < numSub; i++ {
		var slot, errSlot = c.u16()
		var subslot, errSubslot = c.u16()
		var dir, errDir = c.u8()
		var length, errLen = c.u16()
		if errSlot != nil || errSubslot != nil || errDir != nil || errLen != nil {
			return nil, newARError(ErrClassCMRPC, ErrCodeDecodeError, "connect: expected submodule block truncated")
		}

		var iod = IODataDescriptor{
			Slot:       slot,
			Subslot:    subslot,
			Dir:        DataDirection(dir),
			DataOffset: offset,
			DataLength: int(length),
		}
		offset += int(length)
		iod.IOPSOffset = offset
		offset++
		iod.IOCSOffset = offset
		offset++

		iocr.IOData = append(iocr.IOData, iod)
	}
	iocr.FrameLength = offset + 4 // trailing cycle-counter/data-status/transfer-status

	return iocr, nil
}

// handleConnect allocates an AR, validates its type against the
// whitelist, and transitions CMDEV to W_CIND on success.
func (r *CMRPC) handleConnect(sessionKey uuid.UUID, peer net.IP, peerMAC [6]byte, payload []byte) error {
	var arType, props, timeoutFactor, iocrs, err = decodeConnect(payload)
	if err != nil {
		return err
	}

	if !connectAllowedTypes[arType] {
		return newARError(ErrClassCMRPC, ErrCodeDecodeError, "AR type not in whitelist")
	}

	var _, idx, allocErr = r.device.allocAR()
	if allocErr != nil {
		return allocErr
	}

	var ar = newAR(r.device, idx, sessionKey, uint16(idx+1), peerMAC, peer)
	ar.Type = arType
	ar.Properties = props
	ar.CMIActivityTimeoutFactor = timeoutFactor
	ar.IOCRs = iocrs
	r.device.setAR(idx, ar)

	if r.device.Callbacks != nil {
		if cbErr := r.device.Callbacks.ConnectInd(ar.AREP, arType); cbErr != nil {
			r.device.clearAR(idx)
			return newARError(ErrClassCMRPC, ErrCodeDecodeError, "connect rejected by application: "+cbErr.Error())
		}
	}

	if err := ar.OnConnect(); err != nil {
		return err
	}

	r.reply(ar, OpnumConnect, encodeConnectResponse(ar))

	return nil
}

// encodeConnectResponse builds the Connect response's negotiated-parameters
// block: AR type, negotiated properties (bit 0 mirrors the startup-mode
// bit the controller sent), AREP, and the accepted activity timeout
// factor.
func encodeConnectResponse(ar *AR) []byte {
	var b = make([]byte, 8)
	binary.BigEndian.PutUint16(b[0:2], uint16(ar.Type))

	var props uint16
	if ar.Properties.StartupModeLegacy {
		props |= 0x0001
	}
	binary.BigEndian.PutUint16(b[2:4], props)

	binary.BigEndian.PutUint16(b[4:6], ar.AREP)
	binary.BigEndian.PutUint16(b[6:8], ar.CMIActivityTimeoutFactor)

	return b
}
