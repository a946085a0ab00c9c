package pnet

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCMINAInitialStateFromConfig(t *testing.T) {
	var unnamed, err1 = NewDevice(&DeviceConfig{}, nil)
	require.NoError(t, err1)
	assert.Equal(t, cminaStateSetName, unnamed.cmina.State())

	var named, err2 = NewDevice(&DeviceConfig{StationName: "press-1"}, nil)
	require.NoError(t, err2)
	assert.Equal(t, cminaStateSetIP, named.cmina.State())

	var full, err3 = NewDevice(&DeviceConfig{StationName: "press-1", IPAddress: net.ParseIP("192.168.1.2")}, nil)
	require.NoError(t, err3)
	assert.Equal(t, cminaStateWConnect, full.cmina.State())
}

type recordingHelloSender struct {
	calls int
}

func (s *recordingHelloSender) SendHello(stationName string, ip, mask, gateway string) error {
	s.calls++
	return nil
}

func TestCMINAOnNameThenIPReachesWConnect(t *testing.T) {
	var d, err = NewDevice(&DeviceConfig{}, nil)
	require.NoError(t, err)

	var sender = &recordingHelloSender{}
	d.cmina.SetHelloSender(sender)

	d.cmina.OnNameSet("press-1")
	assert.Equal(t, cminaStateSetIP, d.cmina.State())
	assert.Zero(t, sender.calls)

	d.Config.IPAddress = net.ParseIP("192.168.1.2")
	d.cmina.OnIPSet(d.Config.IPAddress)
	assert.Equal(t, cminaStateWConnect, d.cmina.State())
	assert.Equal(t, 1, sender.calls)
}

func TestCMINAEmptyNameRevertsToSetName(t *testing.T) {
	var d, err = NewDevice(&DeviceConfig{StationName: "press-1", IPAddress: net.ParseIP("192.168.1.2")}, nil)
	require.NoError(t, err)
	require.Equal(t, cminaStateWConnect, d.cmina.State())

	d.cmina.OnNameSet("")
	assert.Equal(t, cminaStateSetName, d.cmina.State())
}
