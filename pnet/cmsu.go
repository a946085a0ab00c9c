package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	CMSU - startup orchestration: creates and activates PPM,
 *		CPM and ALPM for an AR when CMDEV leaves W_CIND. No
 *		diagnosis subscription is created here.
 *
 *---------------------------------------------------------------*/

// CMSUState is presently stateless beyond "started"; kept as its own type
// each as its own tagged-enum state value.
type CMSUState struct {
	started bool
}

func newCMSUState() *CMSUState {
	return &CMSUState{}
}

// Start creates PPM/CPM for each IOCR and the two ALPM channels, claiming
// subslot ownership for every IODataDescriptor along the way. Any failure
// is converted by the caller into an ABORT with a specific err_code_2
//.
func (s *CMSUState) Start(ar *AR) error {
	for _, iocr := range ar.IOCRs {
		for _, iod := range iocr.IOData {
			if err := ar.device.claimSubslot(0, iod.Slot, iod.Subslot, ar.index); err != nil {
				return &ARError{Class: ErrClassCMSU, Code: ErrCodeCMSUConsumerFailed, Code2: 1, Msg: err.Error()}
			}

			if ar.device.Callbacks != nil {
				var moduleIdent, submoduleIdent ModuleIdent
				if slot, ok := ar.device.Slot(0, iod.Slot); ok {
					moduleIdent = slot.Ident
				}
				if ss, ok := ar.device.Subslot(0, iod.Slot, iod.Subslot); ok {
					submoduleIdent = ss.Ident
				}

				if err := ar.device.Callbacks.ExpModuleInd(0, iod.Slot, moduleIdent); err != nil {
					return &ARError{Class: ErrClassCMSU, Code: ErrCodeCMSUConsumerFailed, Code2: 2, Msg: err.Error()}
				}
				if err := ar.device.Callbacks.ExpSubmoduleInd(0, iod.Slot, iod.Subslot, submoduleIdent); err != nil {
					return &ARError{Class: ErrClassCMSU, Code: ErrCodeCMSUConsumerFailed, Code2: 3, Msg: err.Error()}
				}
			}
		}

		switch iocr.Type {
		case IOCRInput:
			var ppm, err = NewPPM(ar, iocr)
			if err != nil {
				return &ARError{Class: ErrClassCMSU, Code: ErrCodeCMSUProviderFailed, Msg: err.Error()}
			}
			iocr.PPM = ppm
			ar.CMIO.registerProvider()

		case IOCROutput:
			var cpm, err = NewCPM(ar, iocr)
			if err != nil {
				return &ARError{Class: ErrClassCMSU, Code: ErrCodeCMSUConsumerFailed, Msg: err.Error()}
			}
			iocr.CPM = cpm
			ar.CMIO.registerConsumer(cpm)
		}
	}

	var low, err = NewALPM(ar, AlarmPriorityLow)
	if err != nil {
		return &ARError{Class: ErrClassCMSU, Code: ErrCodeCMSUAlarmOpenFailed, Msg: err.Error()}
	}
	ar.AlarmLow = low

	var high, errHigh = NewALPM(ar, AlarmPriorityHigh)
	if errHigh != nil {
		return &ARError{Class: ErrClassCMSU, Code: ErrCodeCMSUAlarmOpenFailed, Msg: errHigh.Error()}
	}
	ar.AlarmHigh = high

	s.started = true

	return ar.OnCMSUStartOK()
}
