package pnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCMWRRWriteIMOnlyInWArdy(t *testing.T) {
	var d, err = NewDevice(&DeviceConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, d.PlugModule(0, 1, 1))
	require.NoError(t, d.PlugSubmodule(0, 1, 1, 1, DirInput, 4, 0))

	var ar = newTestARForDevice(t, d, 0)
	require.NoError(t, ar.OnConnect()) // -> W_ARDY

	require.NoError(t, d.CMWRR.Write(ar, 0, 1, 1, IMIndex1, []byte("line-a")))

	var ss, ok = d.Subslot(0, 1, 1)
	require.True(t, ok)
	assert.Equal(t, "line-a", ss.IM.Tag)
}

func TestCMWRRWriteIMRejectedOutsideWArdy(t *testing.T) {
	var d, err = NewDevice(&DeviceConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, d.PlugModule(0, 1, 1))
	require.NoError(t, d.PlugSubmodule(0, 1, 1, 1, DirInput, 4, 0))

	var ar = newTestARForDevice(t, d, 0) // still W_CNNCT

	var writeErr = d.CMWRR.Write(ar, 0, 1, 1, IMIndex1, []byte("line-a"))
	require.Error(t, writeErr)
}

func TestCMWRRWritePDPort(t *testing.T) {
	var d, err = NewDevice(&DeviceConfig{}, nil)
	require.NoError(t, err)
	d.PDPorts = NewPDPortTable(1)

	var ar = newTestARForDevice(t, d, 0)
	require.NoError(t, ar.OnConnect())

	var payload = []byte{0x00, byte(MAUType100BaseTXFD), 1}
	require.NoError(t, d.CMWRR.Write(ar, 0, 0, 0, RecordIndexPDPortBase+1, payload))
	assert.True(t, d.PDPorts.Port(1).LinkUp)
}

func TestCMWRRApplicationIndexRejectedInDataUnlessWritable(t *testing.T) {
	var cb = &stubCallbacks{}
	var d, err = NewDevice(&DeviceConfig{}, cb)
	require.NoError(t, err)

	var ar = newTestARForDevice(t, d, 0)
	ar.CMDEV.state = cmdevStateData

	var writeErr = d.CMWRR.Write(ar, 0, 1, 1, 0x1234, []byte{1})
	require.Error(t, writeErr)
	assert.False(t, cb.writeCalled)
}
