package main

/*------------------------------------------------------------------
 *
 * Purpose:	pnetshow - a small offline tool that loads a device
 *		configuration file, validates it, and prints the module
 *		tree and negotiated identity a controller would see.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"net"
	"os"

	"github.com/pnetgo/pnet/pnet"
	"github.com/spf13/pflag"
)

func main() {
	var configFile = pflag.StringP("config-file", "c", "pnetd.yaml", "Device configuration file name.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - inspect a pnetd device configuration.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: pnetshow [options]\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	var data, err = os.ReadFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pnetshow: read config: %v\n", err)
		os.Exit(1)
	}

	var cfg, cfgErr = pnet.LoadConfig(data)
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "pnetshow: invalid config: %v\n", cfgErr)
		os.Exit(1)
	}

	fmt.Printf("Station name:   %s\n", displayOrUnset(cfg.StationName))
	fmt.Printf("Station type:   %s\n", cfg.StationType)
	fmt.Printf("Vendor/Device:  0x%04x / 0x%04x\n", cfg.VendorID, cfg.DeviceID)
	fmt.Printf("IP address:     %s\n", displayIP(cfg.IPAddress))
	fmt.Printf("Netmask:        %s\n", displayIP(cfg.NetMask))
	fmt.Printf("Gateway:        %s\n", displayIP(cfg.Gateway))
	fmt.Printf("Interface:      %s\n", cfg.Interface)
	fmt.Printf("Cycle time:     %s\n", cfg.CycleTime)
	fmt.Println()
	fmt.Printf("Modules (%d):\n", len(cfg.Modules))

	for _, m := range cfg.Modules {
		fmt.Printf("  slot %3d  ident 0x%08x  (%d submodules)\n", m.Slot, m.Ident, len(m.Submodules))
		for _, sm := range m.Submodules {
			fmt.Printf("    subslot %3d  ident 0x%08x  dir=%-5s in=%dB out=%dB\n",
				sm.Subslot, sm.Ident, sm.Direction, sm.InputLen, sm.OutputLen)
		}
	}
}

func displayOrUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

func displayIP(ip net.IP) string {
	if ip == nil {
		return "(unset)"
	}
	return ip.String()
}
