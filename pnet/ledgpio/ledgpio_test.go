package ledgpio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Driving a real line requires a GPIO character device present on the
// host; the only portion exercisable without hardware is the failure
// path when the requested chip does not exist.
func TestOpenRejectsUnknownChip(t *testing.T) {
	var _, err = Open("gpiochip-does-not-exist-0", 0)
	require.Error(t, err)
}
