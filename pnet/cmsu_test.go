package pnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCMSUStartCreatesProviderAndConsumer(t *testing.T) {
	var d, err = NewDevice(&DeviceConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, d.PlugModule(0, 1, 1))
	require.NoError(t, d.PlugSubmodule(0, 1, 1, 1, DirInput, 4, 0))
	require.NoError(t, d.PlugSubmodule(0, 1, 2, 1, DirOutput, 0, 4))

	var ar = newTestARForDevice(t, d, 0)
	var inputIOCR = &IOCR{Type: IOCRInput, FrameID: 0x8001, FrameLength: 8,
		IOData: []IODataDescriptor{{Slot: 1, Subslot: 1}}}
	var outputIOCR = &IOCR{Type: IOCROutput, FrameID: 0x8002, FrameLength: 8,
		IOData: []IODataDescriptor{{Slot: 1, Subslot: 2}}}
	ar.IOCRs = []*IOCR{inputIOCR, outputIOCR}
	ar.CMDEV.state = cmdevStateWCind // OnConnect calls Start from W_CIND

	require.NoError(t, ar.CMSU.Start(ar))

	assert.NotNil(t, inputIOCR.PPM)
	assert.NotNil(t, outputIOCR.CPM)
	assert.NotNil(t, ar.AlarmLow)
	assert.NotNil(t, ar.AlarmHigh)
	assert.Equal(t, cmdevStateWArdy, ar.CMDEV.State())

	var ss1, _ = d.Subslot(0, 1, 1)
	assert.Equal(t, ar.index, ss1.OwnerAR)
}

func TestCMSUStartFailsOnUnplugedSubslot(t *testing.T) {
	var d, err = NewDevice(&DeviceConfig{}, nil)
	require.NoError(t, err)

	var ar = newTestARForDevice(t, d, 0)
	ar.IOCRs = []*IOCR{{Type: IOCRInput, FrameID: 0x8001, FrameLength: 8,
		IOData: []IODataDescriptor{{Slot: 9, Subslot: 9}}}}

	var startErr = ar.CMSU.Start(ar)
	require.Error(t, startErr)
	assert.IsType(t, &ARError{}, startErr)
}
