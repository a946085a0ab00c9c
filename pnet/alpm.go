package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	ALPM - Alarm Protocol Machine. One instance
 *		per priority (low/high) per AR, queuing AlarmPDUs and
 *		retransmitting with exponential pacing until the peer's
 *		TACK is observed or the retry budget is exhausted.
 *
 *---------------------------------------------------------------*/

import (
	"time"
)

// AlarmPriority distinguishes the two independent alarm channels an AR
// opens.
type AlarmPriority uint8

const (
	AlarmPriorityLow AlarmPriority = iota
	AlarmPriorityHigh
)

// AlarmKind distinguishes the reason an AlarmPDU was raised.
type AlarmKind uint8

const (
	AlarmKindProcess AlarmKind = iota
	AlarmKindDiagnosis
	AlarmKindReleased
	AlarmKindPlugWrong
	AlarmKindReturnOfSubmodule
)

// AlarmPDU is one alarm payload pending or in flight.
type AlarmPDU struct {
	API           uint32
	Slot, Subslot uint16
	Kind          AlarmKind
	SequenceNum   uint16
	Payload       []byte

	// MoreFollows marks a fragment as non-terminal; the receiver (APM)
	// accumulates fragments sharing the same API/Slot/Subslot until one
	// arrives with MoreFollows false.
	MoreFollows bool
}

// alpmMaxQueue bounds the pending-alarm queue (fixed pools,
// never unbounded).
const alpmMaxQueue = 16

// alpmMaxRetries is the bounded retransmission budget before the channel
// gives up and aborts its AR.
const alpmMaxRetries = 3

// alpmBaseRetry is the first retransmission delay; each subsequent retry
// doubles it (exponential backoff).
const alpmBaseRetry = 100 * time.Millisecond

// ALPMState enumerates ALPM's per-channel states.
type ALPMState uint8

const (
	ALPMStateOpen ALPMState = iota
	ALPMStateWaitTACK
	ALPMStateClosed
)

// ALPM is one alarm channel (one priority) of one AR.
type ALPM struct {
	ar       *AR
	priority AlarmPriority

	state ALPMState

	queue []AlarmPDU
	seq   uint16

	inFlight    *AlarmPDU
	retryCount  int
	retryHandle Handle

	sender AlarmSender
}

// AlarmSender is the RTA transport collaborator an ALPM hands formatted
// alarm frames to.
type AlarmSender interface {
	SendAlarm(arep uint16, priority AlarmPriority, pdu AlarmPDU) error
}

// NewALPM opens one alarm channel in OPEN state.
func NewALPM(ar *AR, priority AlarmPriority, opts ...func(*ALPM)) (*ALPM, error) {
	var a = &ALPM{
		ar:       ar,
		priority: priority,
		state:    ALPMStateOpen,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// WithAlarmSender injects the transport; tests may omit it and drive the
// channel purely through Send/Ack/retry-expiry.
func WithAlarmSender(s AlarmSender) func(*ALPM) {
	return func(a *ALPM) { a.sender = s }
}

// Send enqueues an AlarmPDU, starting transmission immediately if the
// channel is idle.
func (a *ALPM) Send(pdu AlarmPDU) error {
	if a.state == ALPMStateClosed {
		return newARError(ErrClassALPM, ErrCodeALPMInvalid, "send on closed ALPM")
	}

	if a.inFlight == nil {
		a.seq++
		pdu.SequenceNum = a.seq
		a.inFlight = &pdu
		a.retryCount = 0
		return a.transmit()
	}

	if len(a.queue) >= alpmMaxQueue {
		return &ErrResourceExhausted{Resource: "alpm queue"}
	}

	a.queue = append(a.queue, pdu)
	return nil
}

func (a *ALPM) transmit() error {
	if a.inFlight == nil {
		return nil
	}

	if a.sender != nil {
		if err := a.sender.SendAlarm(a.ar.AREP, a.priority, *a.inFlight); err != nil {
			return err
		}
	}

	a.state = ALPMStateWaitTACK

	var delay = alpmBaseRetry << uint(a.retryCount)
	var h, err = a.ar.device.Scheduler.Add(time.Now(), delay, "alpm-retry", func(time.Time, any) {
		a.onRetryTimeout()
	}, nil)
	if err != nil {
		return err
	}
	a.retryHandle = h

	return nil
}

func (a *ALPM) onRetryTimeout() {
	if a.state != ALPMStateWaitTACK {
		return
	}

	a.retryCount++
	if a.retryCount > alpmMaxRetries {
		a.ar.Abort(newARError(ErrClassALPM, ErrCodeALPMRetryExceeded, "alarm retry budget exhausted"))
		return
	}

	if err := a.transmit(); err != nil {
		a.ar.Abort(newARError(ErrClassALPM, ErrCodeALPMInvalid, "alarm retransmit failed"))
	}
}

// OnTACK processes the peer's acknowledgement for the given sequence
// number, discarding it if it does not match the in-flight PDU - duplicate
// or stale TACKs are ignored.
func (a *ALPM) OnTACK(seq uint16) {
	if a.state != ALPMStateWaitTACK || a.inFlight == nil || a.inFlight.SequenceNum != seq {
		return
	}

	a.ar.device.Scheduler.Remove(a.retryHandle)

	if a.ar.device.Callbacks != nil {
		a.ar.device.Callbacks.AlarmCnf(a.ar.AREP, a.priority, seq)
	}

	a.inFlight = nil
	a.state = ALPMStateOpen

	if len(a.queue) > 0 {
		var next = a.queue[0]
		a.queue = a.queue[1:]
		a.seq++
		next.SequenceNum = a.seq
		a.inFlight = &next
		a.retryCount = 0
		_ = a.transmit()
	}
}

// Close tears down the alarm channel; err_cls/err_code are carried only
// for logging symmetry with the AR's final abort report.
func (a *ALPM) Close(cls ErrClass, code ErrCode) {
	if a.state == ALPMStateClosed {
		return
	}

	a.ar.device.Scheduler.Remove(a.retryHandle)
	a.state = ALPMStateClosed
	a.inFlight = nil
	a.queue = nil
}
