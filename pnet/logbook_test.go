package pnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogbookOldestFirst(t *testing.T) {
	var l = NewLogbook(3)

	l.Record(LogbookEntry{AREP: 1})
	l.Record(LogbookEntry{AREP: 2})
	l.Record(LogbookEntry{AREP: 3})

	var entries = l.Entries()
	require := assert.New(t)
	require.Len(entries, 3)
	require.Equal(uint16(1), entries[0].AREP)
	require.Equal(uint16(3), entries[2].AREP)
}

func TestLogbookOverwritesOldest(t *testing.T) {
	var l = NewLogbook(2)

	l.Record(LogbookEntry{AREP: 1})
	l.Record(LogbookEntry{AREP: 2})
	l.Record(LogbookEntry{AREP: 3})

	var entries = l.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, uint16(2), entries[0].AREP)
	assert.Equal(t, uint16(3), entries[1].AREP)
}

func TestLogbookEmpty(t *testing.T) {
	var l = NewLogbook(4)
	assert.Empty(t, l.Entries())
}
