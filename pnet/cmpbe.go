package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	CMPBE - Parameter Begin/End handshake.
 *
 *---------------------------------------------------------------*/

// CMPBEStateID enumerates CMPBE's states.
type CMPBEStateID uint8

const (
	cmpbeIdle CMPBEStateID = iota
	cmpbeWFind
	cmpbeWFRsp
	cmpbeWFPei
	cmpbeWFPer
	cmpbeWFReq
	cmpbeWFCnf
)

// DControlOpcode enumerates the DControl sub-commands.
type DControlOpcode uint8

const (
	DControlPrmBegin DControlOpcode = iota
	DControlPrmEnd
	DControlAppRdy
	DControlRelease
)

// CMPBEState holds the AR's parameter-phase handshake state.
type CMPBEState struct {
	state           CMPBEStateID
	deferredPrmBegin bool
	alarmsEnabled   bool
}

func newCMPBEState() *CMPBEState {
	return &CMPBEState{state: cmpbeIdle, alarmsEnabled: true}
}

// AlarmsEnabled reports whether ALPM sending is currently permitted; it is
// disabled for the duration of the parameter phase.
func (s *CMPBEState) AlarmsEnabled() bool { return s.alarmsEnabled }

// OnDControl handles one DControl sub-command against the AR's CMPBE
// state.
func (ar *AR) OnDControl(op DControlOpcode) error {
	var s = ar.CMPBE

	switch op {
	case DControlPrmBegin:
		switch s.state {
		case cmpbeWFCnf:
			// "If PRM_BEGIN arrives while WFCNF, it is deferred (one
			// slot of storage)".
			s.deferredPrmBegin = true
			return nil
		case cmpbeWFReq:
			// "If PRM_BEGIN arrives while WFREQ, the current AR is
			// aborted".
			ar.Abort(newARError(ErrClassCMDEV, ErrCodeStateConflict, "PRM_BEGIN during WFREQ"))
			return nil
		default:
			s.alarmsEnabled = false
			s.state = cmpbeWFRsp
			s.state = cmpbeWFPei
			return nil
		}

	case DControlPrmEnd:
		if s.state != cmpbeWFPei && s.state != cmpbeIdle {
			return newARError(ErrClassCMDEV, ErrCodeStateConflict, "PRM_END outside parameter phase")
		}

		s.state = cmpbeWFPer
		s.state = cmpbeWFReq

		if err := ar.OnPrmEnd(); err != nil {
			return err
		}

		s.state = cmpbeWFCnf
		ar.device.CMRPC.RequestApplReady(ar)

		return nil

	case DControlAppRdy:
		if s.state != cmpbeWFCnf {
			return newARError(ErrClassCMDEV, ErrCodeStateConflict, "unexpected APP_RDY confirmation")
		}

		s.alarmsEnabled = true
		s.state = cmpbeWFind

		if err := ar.OnApplReadyConfirmed(); err != nil {
			return err
		}

		if s.deferredPrmBegin {
			s.deferredPrmBegin = false
			return ar.OnDControl(DControlPrmBegin)
		}

		return nil

	case DControlRelease:
		ar.OnReleaseRequest()
		return nil
	}

	return nil
}
