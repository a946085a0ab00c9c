package pnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCMPBEHandshakeToData(t *testing.T) {
	var ar = newTestAR(t)
	require.NoError(t, ar.OnConnect())

	require.NoError(t, ar.OnDControl(DControlPrmBegin))
	assert.False(t, ar.CMPBE.AlarmsEnabled())

	require.NoError(t, ar.OnDControl(DControlPrmEnd))
	assert.Equal(t, cmdevStateWRin, ar.CMDEV.State())

	require.NoError(t, ar.OnDControl(DControlAppRdy))
	assert.True(t, ar.CMPBE.AlarmsEnabled())
	assert.Equal(t, cmdevStateData, ar.CMDEV.State())
}

func TestCMPBEDeferredPrmBegin(t *testing.T) {
	var ar = newTestAR(t)
	require.NoError(t, ar.OnConnect())
	require.NoError(t, ar.OnDControl(DControlPrmBegin))
	require.NoError(t, ar.OnDControl(DControlPrmEnd))

	// A second PRM_BEGIN arriving while WFCNF is deferred, not rejected.
	require.NoError(t, ar.OnDControl(DControlPrmBegin))
	assert.True(t, ar.CMPBE.deferredPrmBegin)

	require.NoError(t, ar.OnDControl(DControlAppRdy))
	// The deferred PRM_BEGIN replays once APP_RDY completes.
	assert.False(t, ar.CMPBE.AlarmsEnabled())
}

func TestCMPBEPrmBeginDuringWFReqAborts(t *testing.T) {
	var ar = newTestAR(t)
	require.NoError(t, ar.OnConnect())
	require.NoError(t, ar.OnDControl(DControlPrmBegin))

	// Force WFReq by sending PrmEnd, which transitions WFPei->WFPer->WFReq
	// then immediately to WFCnf on success; drive a synthetic WFReq state
	// instead to exercise the guarded branch directly.
	ar.CMPBE.state = cmpbeWFReq

	require.NoError(t, ar.OnDControl(DControlPrmBegin))
	assert.Equal(t, cmdevStateCleared, ar.CMDEV.State())
}
