package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	CMDEV - the connection master session state machine:
 *		W_CNNCT -> W_CIND -> W_ARDY -> W_RIN ->
 *		WDATA -> DATA, with ABORT admitted from any state.
 *
 *---------------------------------------------------------------*/

// CMDEVStateID enumerates the states of CMDEV's transition table.
type CMDEVStateID uint8

const (
	cmdevStateWCnnct CMDEVStateID = iota
	cmdevStateWCind
	cmdevStateWArdy
	cmdevStateWRin
	cmdevStateWData
	cmdevStateData
	// cmdevStateAborting / cmdevStateCleared model a two-phase abort:
	// in-flight scheduler callbacks must drain before the AR slot is
	// reclaimed.
	cmdevStateAborting
	cmdevStateCleared
)

func (s CMDEVStateID) String() string {
	switch s {
	case cmdevStateWCnnct:
		return "W_CNNCT"
	case cmdevStateWCind:
		return "W_CIND"
	case cmdevStateWArdy:
		return "W_ARDY"
	case cmdevStateWRin:
		return "W_RIN"
	case cmdevStateWData:
		return "WDATA"
	case cmdevStateData:
		return "DATA"
	case cmdevStateAborting:
		return "ABORTING"
	case cmdevStateCleared:
		return "CLEARED"
	default:
		return "UNKNOWN"
	}
}

// StateEvent is delivered to the application's state_ind upcall.
type StateEvent uint8

const (
	EventStartup StateEvent = iota
	EventPrmEnd
	EventApplReady
	EventData
	EventAbort
)

// CMDEVState holds the AR's master session state as its own tagged-enum
// value embedded in the AR.
type CMDEVState struct {
	state CMDEVStateID
}

func newCMDEVState() *CMDEVState {
	return &CMDEVState{state: cmdevStateWCnnct}
}

// State returns the current CMDEV state.
func (s *CMDEVState) State() CMDEVStateID { return s.state }

// cmdevTransitionError reports an event rejected in the current state
// the event is not admitted in the AR's current state.
func cmdevTransitionError(state CMDEVStateID) *ARError {
	return newARError(ErrClassCMDEV, ErrCodeStateConflict, "event not admitted in state "+state.String())
}

// OnConnect handles the RPC Connect event: W_CNNCT -> W_CIND (
// row 1). Called by CMRPC after an AR has been allocated and validated.
func (ar *AR) OnConnect() error {
	if ar.CMDEV.state != cmdevStateWCnnct {
		return cmdevTransitionError(ar.CMDEV.state)
	}

	ar.CMDEV.state = cmdevStateWCind

	if ar.device.Callbacks != nil {
		ar.device.Callbacks.StateInd(ar.AREP, EventStartup, 0, 0)
	}

	ar.CMSM.Arm()
	if ar.CMDEV.state != cmdevStateWCind {
		// Arm could not schedule the watchdog and aborted the AR.
		return newARError(ar.ErrClass, ar.ErrCode, "AR aborted arming CMSM")
	}

	// Orders CMSU to create PPM/CPM/ALPM per IOCR; a failure aborts the AR.
	if err := ar.CMSU.Start(ar); err != nil {
		if arErr, ok := err.(*ARError); ok {
			ar.Abort(arErr)
		}
		return err
	}

	return nil
}

// OnCMSUStartOK handles "CMSU start ok": W_CIND -> W_ARDY. CMSM's
// watchdog is armed on entering W_CIND - CMSU completing successfully is
// itself the first confirmation the AR is alive, so the watchdog was
// already armed by OnConnect; this transition does not rearm it.
func (ar *AR) OnCMSUStartOK() error {
	if ar.CMDEV.state != cmdevStateWCind {
		return cmdevTransitionError(ar.CMDEV.state)
	}

	ar.CMDEV.state = cmdevStateWArdy

	return nil
}

// OnPrmEnd handles DControl(PRM_END): W_ARDY -> W_RIN.
func (ar *AR) OnPrmEnd() error {
	if ar.CMDEV.state != cmdevStateWArdy {
		return cmdevTransitionError(ar.CMDEV.state)
	}

	ar.CMDEV.state = cmdevStateWRin

	if ar.device.Callbacks != nil {
		ar.device.Callbacks.StateInd(ar.AREP, EventPrmEnd, 0, 0)
	}

	return nil
}

// OnApplReadyConfirmed handles the CControl confirmation that completes
// the W_RIN -> WDATA precondition together with CMIO's data-possible
// notification.
func (ar *AR) OnApplReadyConfirmed() error {
	if ar.CMDEV.state != cmdevStateWRin {
		return cmdevTransitionError(ar.CMDEV.state)
	}

	ar.CMDEV.state = cmdevStateWData

	if ar.device.Callbacks != nil {
		ar.device.Callbacks.StateInd(ar.AREP, EventApplReady, 0, 0)
		ar.device.Callbacks.CControlInd(ar.AREP)
	}

	ar.maybeEnterData()

	return nil
}

// OnCMIODataPossible is CMIO's notification that every CPM has observed
// its first valid cyclic frame. Combined with
// OnApplReadyConfirmed having already fired, this is the WDATA->DATA
// precondition.
func (ar *AR) OnCMIODataPossible() {
	ar.maybeEnterData()
}

func (ar *AR) maybeEnterData() {
	if ar.CMDEV.state != cmdevStateWData {
		return
	}

	if !ar.CMIO.DataPossible() {
		return
	}

	ar.CMDEV.state = cmdevStateData
	ar.CMSM.Disarm()

	if ar.device.Callbacks != nil {
		ar.device.Callbacks.StateInd(ar.AREP, EventData, 0, 0)
	}
}

// OnReleaseRequest handles a peer RPC Release: any state -> cleanup
// (peer Release).
func (ar *AR) OnReleaseRequest() {
	ar.Abort(newARError(ErrClassRTA, ErrCodeReleaseInd, "peer release"))
}
