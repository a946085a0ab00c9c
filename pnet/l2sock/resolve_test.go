package l2sock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInterfaceReturnsLiveNameUnchanged(t *testing.T) {
	// The loopback interface exists on every Linux host and lets this
	// test avoid depending on a specific physical NIC name.
	var name, err = ResolveInterface("lo")
	require.NoError(t, err)
	assert.Equal(t, "lo", name)
}

func TestResolveInterfaceRejectsMalformedMatchExpression(t *testing.T) {
	var _, err = ResolveInterface("not-an-interface-and-no-equals-sign")
	require.Error(t, err)
}
