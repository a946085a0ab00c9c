package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	CMRDR - Record Read. Dispatches by index
 *		band: I&M0..I&M4, PD/port records, diagnostics, implicit
 *		AR records, application-defined.
 *
 *---------------------------------------------------------------*/

import "fmt"

// Record index bands CMRDR/CMWRR recognise.
const (
	RecordIndexPDPortBase uint16 = 0x8000 // one per physical port, +port number
	RecordIndexDiagnosis  uint16 = 0x800a
	RecordIndexLogbook    uint16 = 0xa016
)

// CMRDR is the device-wide record-read dispatcher.
type CMRDR struct {
	device *Device
}

// NewCMRDR constructs the record-read dispatcher.
func NewCMRDR(d *Device) *CMRDR {
	return &CMRDR{device: d}
}

// Read dispatches index to the matching band handler and returns the
// encoded block ("a fixed block-writer that advances a
// position cursor" - modeled here as plain byte-slice construction, which
// is the idiomatic Go equivalent).
func (r *CMRDR) Read(ar *AR, api uint32, slot, subslot uint16, index uint16) ([]byte, error) {
	switch {
	case index >= IMIndex0 && index <= IMIndex4:
		return r.readIM(api, slot, subslot, index)

	case index == RecordIndexDiagnosis:
		return r.readDiagnosis(api, slot, subslot)

	case index == RecordIndexLogbook:
		return r.readLogbook()

	case index >= RecordIndexPDPortBase && index < RecordIndexPDPortBase+0x100:
		return r.readPDPort(uint16(index - RecordIndexPDPortBase))

	default:
		if r.device.Callbacks != nil {
			return r.device.Callbacks.ReadInd(api, slot, subslot, index)
		}
		return nil, fmt.Errorf("pnet: unsupported read index 0x%04x", index)
	}
}

func (r *CMRDR) readIM(api uint32, slot, subslot, index uint16) ([]byte, error) {
	var ss, ok = r.device.Subslot(api, slot, subslot)
	if !ok {
		return nil, fmt.Errorf("pnet: read I&M on unplugged subslot")
	}

	var im = r.device.imFor(ss)
	if im == nil {
		return nil, fmt.Errorf("pnet: subslot has no I&M record")
	}

	switch index {
	case IMIndex0:
		return im.ReadIM0(), nil
	case IMIndex1:
		return []byte(im.Tag), nil
	case IMIndex2:
		return []byte(im.Location), nil
	case IMIndex3:
		return []byte(im.Descriptor), nil
	case IMIndex4:
		return []byte(im.Signature), nil
	}

	return nil, fmt.Errorf("pnet: unknown I&M index")
}

func (r *CMRDR) readDiagnosis(api uint32, slot, subslot uint16) ([]byte, error) {
	var ss, ok = r.device.Subslot(api, slot, subslot)
	if !ok {
		return nil, fmt.Errorf("pnet: read diagnosis on unplugged subslot")
	}

	var items = r.device.Diag.List(ss)
	var buf = make([]byte, 0, len(items)*8)
	for _, it := range items {
		buf = append(buf,
			byte(it.ChannelNumber>>8), byte(it.ChannelNumber),
			byte(it.Severity),
			byte(it.ErrorType>>8), byte(it.ErrorType),
		)
	}

	return buf, nil
}

func (r *CMRDR) readLogbook() ([]byte, error) {
	var entries = r.device.Logbook.Entries()
	var buf = make([]byte, 0, len(entries)*4)
	for _, e := range entries {
		buf = append(buf, byte(e.AREP>>8), byte(e.AREP), byte(e.ErrClass), byte(e.ErrCode))
	}

	return buf, nil
}

func (r *CMRDR) readPDPort(portNum uint16) ([]byte, error) {
	if r.device.PDPorts == nil {
		return nil, fmt.Errorf("pnet: no physical ports configured")
	}

	var p = r.device.PDPorts.Port(portNum)
	if p == nil {
		return nil, fmt.Errorf("pnet: port %d not found", portNum)
	}

	var linkByte byte
	if p.LinkUp {
		linkByte = 1
	}

	return []byte{byte(p.MAUType >> 8), byte(p.MAUType), linkByte}, nil
}
