package pnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCycleCounter(t *testing.T) {
	assert.Equal(t, uint16(4), nextCycleCounter(0, 4))
	assert.Equal(t, uint16(8), nextCycleCounter(5, 4))
	assert.Equal(t, uint16(0), nextCycleCounter(65535, 1)) // 16-bit wrap
}

type capturingFrameSender struct {
	frames [][]byte
	fail   bool
}

func (s *capturingFrameSender) SendFrame(frame []byte) error {
	if s.fail {
		return newARError(ErrClassPPM, ErrCodePPMInvalid, "injected failure")
	}
	s.frames = append(s.frames, append([]byte(nil), frame...))
	return nil
}

func TestPPMTickAdvancesCycleCounterAndSends(t *testing.T) {
	var ar = newTestAR(t)
	var iocr = &IOCR{Type: IOCRInput, FrameID: 0x8001, FrameLength: 4, SendClockFactor: 32, ReductionRatio: 1}
	ar.IOCRs = []*IOCR{iocr}

	var sender = &capturingFrameSender{}
	var ppm, err = NewPPM(ar, iocr, WithSender(sender))
	require.NoError(t, err)

	ppm.SetDataAndIOPS([]byte{1, 2, 3, 4}, 0x80)
	ppm.tick()

	require.Len(t, sender.frames, 1)
	var frame = sender.frames[0]
	assert.Equal(t, byte(1), frame[ppm.headerLen])
	assert.Equal(t, DataStatusDataValid|DataStatusPrimaryOrBackup, frame[len(frame)-2])

	var firstCounter = ppm.CycleCounter()
	ppm.tick()
	assert.Greater(t, ppm.CycleCounter(), firstCounter)
}

func TestPPMSendFailureAbortsAR(t *testing.T) {
	var ar = newTestAR(t)
	var iocr = &IOCR{Type: IOCRInput, FrameID: 0x8001, FrameLength: 4, SendClockFactor: 32, ReductionRatio: 1}
	ar.IOCRs = []*IOCR{iocr}

	var sender = &capturingFrameSender{fail: true}
	var ppm, err = NewPPM(ar, iocr, WithSender(sender))
	require.NoError(t, err)

	ppm.tick()

	assert.Equal(t, cmdevStateCleared, ar.CMDEV.State())
	assert.Equal(t, ErrCodePPMInvalid, ar.ErrCode)
}

func TestPPMCloseStopsTicking(t *testing.T) {
	var ar = newTestAR(t)
	var iocr = &IOCR{Type: IOCRInput, FrameID: 0x8001, FrameLength: 4, SendClockFactor: 32, ReductionRatio: 1}
	ar.IOCRs = []*IOCR{iocr}

	var sender = &capturingFrameSender{}
	var ppm, err = NewPPM(ar, iocr, WithSender(sender))
	require.NoError(t, err)

	ppm.Close()
	ppm.tick()
	assert.Empty(t, sender.frames)
}
