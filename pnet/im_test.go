package pnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIM0ReadOnly(t *testing.T) {
	var im = &IM{Record0: IM0{VendorID: 0x002a, OrderID: "ORD-1"}}

	var err = im.WriteIM(IMIndex0, []byte("x"), false, false)
	require.Error(t, err)

	var buf = im.ReadIM0()
	assert.Equal(t, byte(0x00), buf[0])
	assert.Equal(t, byte(0x2a), buf[1])
}

func TestIMWriteTagRejectedInDataUnlessWritable(t *testing.T) {
	var im = &IM{}

	var err = im.WriteIM(IMIndex1, []byte("line-1"), true, false)
	require.Error(t, err)

	require.NoError(t, im.WriteIM(IMIndex1, []byte("line-1"), true, true))
	assert.Equal(t, "line-1", im.Tag)

	require.NoError(t, im.WriteIM(IMIndex2, []byte("cell-3"), false, false))
	assert.Equal(t, "cell-3", im.Location)
}

func TestIMWriteRejectsOversizeAndUnknownIndex(t *testing.T) {
	var im = &IM{}

	var oversize = make([]byte, imMaxLen+1)
	require.Error(t, im.WriteIM(IMIndex3, oversize, false, false))

	require.Error(t, im.WriteIM(0x1234, []byte("x"), false, false))
}
