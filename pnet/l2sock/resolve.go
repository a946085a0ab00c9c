package l2sock

/*------------------------------------------------------------------
 *
 * Purpose:	Resolve a configured "main_port" identifier (interface
 *		name, or a udev match on the MAC-based interface name or
 *		the driver name) to a concrete Linux interface name, for devices
 *		where the physical NIC enumeration order is not fixed.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"net"
	"strings"

	"github.com/jochenvg/go-udev"
)

// ResolveInterface returns match's candidate interface name unchanged if it
// already names a live interface; otherwise it is treated as a udev match
// expression of the form "mac=<name>" or "driver=<name>" and the first
// matching "net" subsystem device is returned. For "mac" the value is
// compared with the device's udev ID_NET_NAME_MAC property (for example
// "enx001122334455"), not with a colon-separated hardware address.
func ResolveInterface(match string) (string, error) {
	if _, err := net.InterfaceByName(match); err == nil {
		return match, nil
	}

	var key, value, ok = strings.Cut(match, "=")
	if !ok {
		return "", fmt.Errorf("pnet/l2sock: %q is neither a live interface nor a udev match expression", match)
	}

	var u udev.Udev
	var e = u.NewEnumerate()

	if err := e.AddMatchSubsystem("net"); err != nil {
		return "", fmt.Errorf("pnet/l2sock: udev enumerate: %w", err)
	}

	var devices, err = e.Devices()
	if err != nil {
		return "", fmt.Errorf("pnet/l2sock: udev enumerate: %w", err)
	}

	for _, dev := range devices {
		var candidate string
		switch key {
		case "mac":
			candidate = dev.PropertyValue("ID_NET_NAME_MAC")
		case "driver":
			candidate = dev.Driver()
		default:
			return "", fmt.Errorf("pnet/l2sock: unknown udev match key %q", key)
		}

		if candidate == value {
			return dev.Sysname(), nil
		}
	}

	return "", fmt.Errorf("pnet/l2sock: no interface matches %q", match)
}
