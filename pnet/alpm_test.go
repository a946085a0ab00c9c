package pnet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAlarmSender struct {
	sent []AlarmPDU
	fail bool
}

func (s *recordingAlarmSender) SendAlarm(arep uint16, priority AlarmPriority, pdu AlarmPDU) error {
	if s.fail {
		return newARError(ErrClassALPM, ErrCodeALPMInvalid, "injected failure")
	}
	s.sent = append(s.sent, pdu)
	return nil
}

func TestALPMSendTransmitsImmediatelyWhenIdle(t *testing.T) {
	var ar = newTestAR(t)
	var sender = &recordingAlarmSender{}
	var a, err = NewALPM(ar, AlarmPriorityLow, WithAlarmSender(sender))
	require.NoError(t, err)

	require.NoError(t, a.Send(AlarmPDU{Kind: AlarmKindProcess}))
	assert.Len(t, sender.sent, 1)
	assert.Equal(t, ALPMStateWaitTACK, a.state)
}

func TestALPMQueuesWhileInFlight(t *testing.T) {
	var ar = newTestAR(t)
	var sender = &recordingAlarmSender{}
	var a, err = NewALPM(ar, AlarmPriorityLow, WithAlarmSender(sender))
	require.NoError(t, err)

	require.NoError(t, a.Send(AlarmPDU{Kind: AlarmKindProcess}))
	require.NoError(t, a.Send(AlarmPDU{Kind: AlarmKindDiagnosis}))
	assert.Len(t, sender.sent, 1)
	assert.Len(t, a.queue, 1)

	a.OnTACK(a.inFlight.SequenceNum)
	assert.Len(t, sender.sent, 2)
	assert.Empty(t, a.queue)
}

func TestALPMQueueOverflow(t *testing.T) {
	var ar = newTestAR(t)
	var sender = &recordingAlarmSender{}
	var a, err = NewALPM(ar, AlarmPriorityLow, WithAlarmSender(sender))
	require.NoError(t, err)

	require.NoError(t, a.Send(AlarmPDU{Kind: AlarmKindProcess}))
	for i := 0; i < alpmMaxQueue; i++ {
		require.NoError(t, a.Send(AlarmPDU{Kind: AlarmKindDiagnosis}))
	}

	var overflowErr = a.Send(AlarmPDU{Kind: AlarmKindDiagnosis})
	require.Error(t, overflowErr)
	assert.IsType(t, &ErrResourceExhausted{}, overflowErr)
}

func TestALPMStaleTACKIgnored(t *testing.T) {
	var ar = newTestAR(t)
	var sender = &recordingAlarmSender{}
	var a, err = NewALPM(ar, AlarmPriorityLow, WithAlarmSender(sender))
	require.NoError(t, err)

	require.NoError(t, a.Send(AlarmPDU{Kind: AlarmKindProcess}))
	a.OnTACK(a.inFlight.SequenceNum + 1) // wrong sequence number
	assert.Equal(t, ALPMStateWaitTACK, a.state)
}

func TestALPMRetryExhaustionAbortsAR(t *testing.T) {
	var ar = newTestAR(t)
	var sender = &recordingAlarmSender{}
	var a, err = NewALPM(ar, AlarmPriorityLow, WithAlarmSender(sender))
	require.NoError(t, err)

	require.NoError(t, a.Send(AlarmPDU{Kind: AlarmKindProcess}))

	// Retries back off exponentially from alpmBaseRetry; sleeping past the
	// worst-case cumulative delay and ticking with real time lets every
	// retry fire and exhaust the budget (transmit schedules against actual
	// wall-clock time, not a test-controlled clock).
	var worstCase = alpmBaseRetry << uint(alpmMaxRetries+1)
	var deadline = time.Now().Add(worstCase + time.Second)
	for time.Now().Before(deadline) && ar.CMDEV.State() != cmdevStateCleared {
		ar.device.Scheduler.Tick(time.Now())
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, cmdevStateCleared, ar.CMDEV.State())
	assert.Equal(t, ErrCodeALPMRetryExceeded, ar.ErrCode)
}

func TestALPMCloseIsIdempotent(t *testing.T) {
	var ar = newTestAR(t)
	var a, err = NewALPM(ar, AlarmPriorityHigh)
	require.NoError(t, err)

	a.Close(ErrClassRTA, ErrCodeCMITimeout)
	assert.NotPanics(t, func() { a.Close(ErrClassRTA, ErrCodeCMITimeout) })
	assert.Equal(t, ALPMStateClosed, a.state)
}
