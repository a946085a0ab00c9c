package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	CMIO - watches every CPM of an AR; once each has observed
 *		its first valid cyclic frame, notifies CMDEV that data
 *		exchange is possible. Polls at 100ms in the
 *		original; here the notification is event-driven (CPM
 *		calls back directly on its FRUN->RUN transition), which
 *		is observationally equivalent and avoids a busy poll.
 *
 *---------------------------------------------------------------*/

// CMIOState tracks how many consumers still await their first frame.
type CMIOState struct {
	ar          *AR
	numProviders int
	numConsumers int
	readyConsumers int
}

func newCMIOState(ar *AR) *CMIOState {
	return &CMIOState{ar: ar}
}

func (s *CMIOState) registerProvider() {
	s.numProviders++
}

func (s *CMIOState) registerConsumer(cpm *CPM) {
	s.numConsumers++
	cpm.onFirstValidFrame = func() {
		s.readyConsumers++
		if s.DataPossible() && s.ar != nil {
			s.ar.OnCMIODataPossible()
		}
	}
}

// DataPossible reports whether every CPM of the AR has observed its first
// valid frame. An AR with zero output IOCRs is vacuously
// ready.
func (s *CMIOState) DataPossible() bool {
	return s.readyConsumers >= s.numConsumers
}
