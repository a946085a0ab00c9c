package pnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPMOnTACKRoutesToCorrectChannel(t *testing.T) {
	var ar = newTestAR(t)
	var sender = &recordingAlarmSender{}

	var low, errLow = NewALPM(ar, AlarmPriorityLow, WithAlarmSender(sender))
	require.NoError(t, errLow)
	var high, errHigh = NewALPM(ar, AlarmPriorityHigh, WithAlarmSender(sender))
	require.NoError(t, errHigh)
	ar.AlarmLow, ar.AlarmHigh = low, high

	require.NoError(t, low.Send(AlarmPDU{Kind: AlarmKindProcess}))
	require.NoError(t, high.Send(AlarmPDU{Kind: AlarmKindDiagnosis}))

	ar.APM.OnTACK(AlarmPriorityLow, low.inFlight.SequenceNum)
	assert.Equal(t, ALPMStateOpen, low.state)
	assert.Equal(t, ALPMStateWaitTACK, high.state) // untouched
}

func TestAPMOnControllerAlarmAcksImmediately(t *testing.T) {
	var ar = newTestAR(t)
	var sender = &recordingAlarmSender{}

	ar.APM.OnControllerAlarm(AlarmPriorityHigh, AlarmPDU{SequenceNum: 7}, sender)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, uint16(7), sender.sent[0].SequenceNum)
}
