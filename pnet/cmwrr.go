package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	CMWRR - Record Write. Mirrors CMRDR's
 *		dispatch; accepts writes only in W_ARDY, and selectively
 *		in DATA for application-defined indices.
 *
 *---------------------------------------------------------------*/

import "fmt"

// CMWRR is the device-wide record-write dispatcher.
type CMWRR struct {
	device *Device
}

// NewCMWRR constructs the record-write dispatcher.
func NewCMWRR(d *Device) *CMWRR {
	return &CMWRR{device: d}
}

// appWritableInData is the set of application-defined indices writable
// while the AR is in DATA ("selectively in WDATA
// (application-defined indices)"); empty by default, populated by the
// application through DeviceConfig if it needs this.
var appWritableInData = map[uint16]bool{}

// Write dispatches index to the matching band handler.
func (w *CMWRR) Write(ar *AR, api uint32, slot, subslot, index uint16, data []byte) error {
	var inData = ar.CMDEV.State() == cmdevStateData

	switch {
	case index >= IMIndex0 && index <= IMIndex4:
		if ar.CMDEV.State() != cmdevStateWArdy {
			return newARError(ErrClassCMDEV, ErrCodeStateConflict, "I&M write outside parameter phase")
		}
		return w.writeIM(api, slot, subslot, index, data)

	case index >= RecordIndexPDPortBase && index < RecordIndexPDPortBase+0x100:
		if ar.CMDEV.State() != cmdevStateWArdy {
			return newARError(ErrClassCMDEV, ErrCodeStateConflict, "port record write outside parameter phase")
		}
		return w.writePDPort(uint16(index-RecordIndexPDPortBase), data)

	default:
		if inData {
			if !appWritableInData[index] {
				return newARError(ErrClassCMDEV, ErrCodeStateConflict, "index not writable in DATA")
			}
		} else if ar.CMDEV.State() != cmdevStateWArdy {
			return newARError(ErrClassCMDEV, ErrCodeStateConflict, "record write outside parameter phase")
		}
		if w.device.Callbacks != nil {
			return w.device.Callbacks.WriteInd(api, slot, subslot, index, data)
		}
		return fmt.Errorf("pnet: unsupported write index 0x%04x", index)
	}
}

func (w *CMWRR) writeIM(api uint32, slot, subslot, index uint16, data []byte) error {
	var ss, ok = w.device.Subslot(api, slot, subslot)
	if !ok {
		return fmt.Errorf("pnet: write I&M on unplugged subslot")
	}

	return ss.IM.WriteIM(index, data, false, false)
}

func (w *CMWRR) writePDPort(portNum uint16, data []byte) error {
	if w.device.PDPorts == nil {
		return fmt.Errorf("pnet: no physical ports configured")
	}

	var p = w.device.PDPorts.Port(portNum)
	if p == nil {
		return fmt.Errorf("pnet: port %d not found", portNum)
	}

	if len(data) < 3 {
		return fmt.Errorf("pnet: port record write too short")
	}

	var mau = MAUType(uint16(data[0])<<8 | uint16(data[1]))
	var up = data[2] != 0
	w.device.PDPorts.SetLink(portNum, up, mau)

	return nil
}
