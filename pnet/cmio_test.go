package pnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCMIODataPossibleVacuousWithNoConsumers(t *testing.T) {
	var ar = newTestAR(t)
	assert.True(t, ar.CMIO.DataPossible())
}

func TestCMIODataPossibleWaitsForEveryConsumer(t *testing.T) {
	var ar = newTestAR(t)
	var iocr1 = &IOCR{Type: IOCROutput, FrameID: 0x8001, FrameLength: 8}
	var iocr2 = &IOCR{Type: IOCROutput, FrameID: 0x8002, FrameLength: 8}
	ar.IOCRs = []*IOCR{iocr1, iocr2}

	var cpm1, err1 = NewCPM(ar, iocr1)
	require.NoError(t, err1)
	var cpm2, err2 = NewCPM(ar, iocr2)
	require.NoError(t, err2)

	ar.CMIO.registerConsumer(cpm1)
	ar.CMIO.registerConsumer(cpm2)
	assert.False(t, ar.CMIO.DataPossible())

	cpm1.onFirstValidFrame()
	assert.False(t, ar.CMIO.DataPossible())

	cpm2.onFirstValidFrame()
	assert.True(t, ar.CMIO.DataPossible())
}

func TestCMIONotifiesARWhenReady(t *testing.T) {
	var ar = newTestAR(t)
	require.NoError(t, ar.OnConnect())
	require.NoError(t, ar.OnDControl(DControlPrmBegin))
	require.NoError(t, ar.OnDControl(DControlPrmEnd))
	require.NoError(t, ar.OnDControl(DControlAppRdy))

	// Zero consumers: already vacuously ready, so OnApplReadyConfirmed
	// alone (invoked transitively by DControlAppRdy) reaches DATA.
	assert.Equal(t, cmdevStateData, ar.CMDEV.State())
}
