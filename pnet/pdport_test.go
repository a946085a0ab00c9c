package pnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDPortTableSetLinkAndPeer(t *testing.T) {
	var tbl = NewPDPortTable(2)

	require := assert.New(t)
	require.NotNil(tbl.Port(1))
	require.NotNil(tbl.Port(2))
	require.Nil(tbl.Port(3))

	tbl.SetLink(1, true, MAUType100BaseTXFD)
	require.True(tbl.Port(1).LinkUp)
	require.Equal(MAUType100BaseTXFD, tbl.Port(1).MAUType)

	tbl.SetPeer(1, "peer-station", "port-001", "chassis-1")
	require.Equal("peer-station", tbl.Port(1).PeerStationName)

	require.Equal(uint16(PDPortBase+1), SubslotFor(1))
}

func TestPDPortTableOutOfRangeIsNoop(t *testing.T) {
	var tbl = NewPDPortTable(1)

	tbl.SetLink(5, true, MAUTypeUnknown)
	tbl.SetPeer(5, "x", "y", "z")

	assert.Nil(t, tbl.Port(5))
}
