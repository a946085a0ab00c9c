package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	The Application Relation - the central entity binding
 *		one controller session to the device.
 *
 *---------------------------------------------------------------*/

import (
	"net"

	"github.com/google/uuid"
)

// ARType is the whitelisted set of AR types CMRPC's Connect handler
// accepts; IOCARSingleRTClass3 is rejected since isochronous RT is out
// of scope.
type ARType uint16

const (
	ARTypeIOCARSingle ARType = 0x0001
)

// ARProperties is the negotiated properties bitfield.
type ARProperties struct {
	StartupModeLegacy bool // ar_properties.startup_mode == false
}

// AR is the central entity: one controller-to-device session.
type AR struct {
	device *Device
	index  int

	SessionKey uuid.UUID
	SessionNum uint16
	AREP       uint16

	PeerMAC [6]byte
	PeerIP  net.IP

	Type       ARType
	Properties ARProperties

	CMIActivityTimeoutFactor uint16 // x100ms

	IOCRs []*IOCR

	CMDEV *CMDEVState
	CMSM  *CMSM
	CMSU  *CMSUState
	CMPBE *CMPBEState
	CMIO  *CMIOState

	AlarmLow  *ALPM
	AlarmHigh *ALPM
	APM       *APM

	releasedAlarms []releasedAlarm

	ErrClass ErrClass
	ErrCode  ErrCode
	Code2    uint8
}

type releasedAlarm struct {
	API           uint32
	Slot, Subslot uint16
}

// newAR allocates an AR in idle/W_CNNCT state.
func newAR(d *Device, idx int, sessionKey uuid.UUID, sessionNum uint16, peerMAC [6]byte, peerIP net.IP) *AR {
	var ar = &AR{
		device:     d,
		index:      idx,
		SessionKey: sessionKey,
		SessionNum: sessionNum,
		AREP:       uint16(idx + 1),
		PeerMAC:    peerMAC,
		PeerIP:     peerIP,
	}

	ar.CMDEV = newCMDEVState()
	ar.CMSM = newCMSM(ar)
	ar.CMSU = newCMSUState()
	ar.CMPBE = newCMPBEState()
	ar.CMIO = newCMIOState(ar)
	ar.APM = NewAPM(ar)

	return ar
}

// postReleasedAlarm is called by the device tree when a submodule it owns
// is spontaneously pulled ("A released alarm is posted by the
// plug-state-machine when the device spontaneously removes a submodule
// from an AR").
func (ar *AR) postReleasedAlarm(api uint32, slot, subslot uint16) {
	ar.releasedAlarms = append(ar.releasedAlarms, releasedAlarm{API: api, Slot: slot, Subslot: subslot})

	if ar.AlarmHigh != nil {
		_ = ar.AlarmHigh.Send(AlarmPDU{
			API: api, Slot: slot, Subslot: subslot,
			Kind: AlarmKindReleased,
		})
	}
}

// Abort is the single funnel into CMDEV's abort cascade (
// "AR-scoped"). It is idempotent - raising it on an already-aborting AR is
// a no-op - and may be called from any state machine, any goroutine that
// owns the device's single-threaded main context invocation.
func (ar *AR) Abort(err *ARError) {
	if ar.CMDEV.state == cmdevStateCleared || ar.CMDEV.state == cmdevStateAborting {
		return
	}

	ar.ErrClass = err.Class
	ar.ErrCode = err.Code
	ar.Code2 = err.Code2

	ar.device.Log.Warn("AR abort", "arep", ar.AREP, "err_cls", err.Class, "err_code", err.Code, "msg", err.Msg)

	ar.CMDEV.state = cmdevStateAborting

	// CPM/PPM closed per IOCR, ALPM channels closed (queued and in-flight
	// alarms are dropped; no final alarm is sent), CMSM disarmed, subslot
	// ownership cleared. CMIO is not notified.
	for _, iocr := range ar.IOCRs {
		if iocr.CPM != nil {
			iocr.CPM.Close()
		}
		if iocr.PPM != nil {
			iocr.PPM.Close()
		}
	}

	if ar.AlarmLow != nil {
		ar.AlarmLow.Close(ar.ErrClass, ar.ErrCode)
	}
	if ar.AlarmHigh != nil {
		ar.AlarmHigh.Close(ar.ErrClass, ar.ErrCode)
	}

	ar.CMSM.Disarm()

	ar.device.releaseSubslotsOwnedBy(ar.index)

	ar.device.Logbook.Record(LogbookEntry{AREP: ar.AREP, ErrClass: ar.ErrClass, ErrCode: ar.ErrCode, Removed: true})

	if ar.device.Callbacks != nil {
		ar.device.Callbacks.StateInd(ar.AREP, EventAbort, ar.ErrClass, ar.ErrCode)
		ar.device.Callbacks.ReleaseInd(ar.AREP)
	}

	ar.CMDEV.state = cmdevStateCleared
	ar.device.clearAR(ar.index)
}
