package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	PDPort records - port-level MAU type, link state, and
 *		peer-to-peer check data, tracked per physical port
 *		subslot (0x8000+n on the DAP).
 *
 *---------------------------------------------------------------*/

// PDPortBase is the first physical-port subslot number ("port
// subslots 0x8000+n").
const PDPortBase uint16 = 0x8000

// MAUType enumerates the handful of Ethernet PHY types a device typically
// reports (IEC 61158 MAU type codes, reduced to the common ones).
type MAUType uint16

const (
	MAUTypeUnknown       MAUType = 0
	MAUType100BaseTXFD   MAUType = 0x10
	MAUType1000BaseTFD   MAUType = 0x1e
)

// PDPortData is one physical port's link and peer information.
type PDPortData struct {
	PortNumber   uint16
	MAUType      MAUType
	LinkUp       bool
	PeerStationName string
	PeerPortName    string
	PeerChassisID   string
}

// PDPortTable holds every physical port's data, indexed by port number
// (1-based, matching PDPortBase+n).
type PDPortTable struct {
	ports map[uint16]*PDPortData
}

// NewPDPortTable builds an empty table for the given number of physical
// ports.
func NewPDPortTable(numPorts int) *PDPortTable {
	var t = &PDPortTable{ports: make(map[uint16]*PDPortData, numPorts)}

	for i := 1; i <= numPorts; i++ {
		t.ports[uint16(i)] = &PDPortData{PortNumber: uint16(i)}
	}

	return t
}

// Port returns the port data for port n, or nil if out of range.
func (t *PDPortTable) Port(n uint16) *PDPortData {
	return t.ports[n]
}

// SetLink updates a port's link state, firing a return-of-submodule style
// notification is the caller's responsibility (this table only tracks
// state, it does not raise alarms itself).
func (t *PDPortTable) SetLink(n uint16, up bool, mau MAUType) {
	var p = t.ports[n]
	if p == nil {
		return
	}
	p.LinkUp = up
	p.MAUType = mau
}

// SetPeer records the LLDP-derived peer identity for port n.
func (t *PDPortTable) SetPeer(n uint16, stationName, portName, chassisID string) {
	var p = t.ports[n]
	if p == nil {
		return
	}
	p.PeerStationName = stationName
	p.PeerPortName = portName
	p.PeerChassisID = chassisID
}

// SubslotFor returns the DAP subslot number representing port n.
func SubslotFor(n uint16) uint16 {
	return PDPortBase + n
}
