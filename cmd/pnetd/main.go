package main

/*------------------------------------------------------------------
 *
 * Purpose:	Main program for pnetd, a standalone PROFINET IO device
 *		stack: loads a device configuration, brings up the raw
 *		L2 transport, and runs the core's cooperative scheduler
 *		loop until terminated.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pnetgo/pnet/pnet"
	"github.com/pnetgo/pnet/pnet/l2sock"
	"github.com/pnetgo/pnet/pnet/pnetlog"
	"github.com/spf13/pflag"
)

func main() {
	var configFile = pflag.StringP("config-file", "c", "pnetd.yaml", "Device configuration file name.")
	var ifName = pflag.StringP("interface", "i", "", "Network interface to bind (overrides config file).")
	var persistDir = pflag.StringP("persist-dir", "p", "", "Directory for nonvolatile state (overrides config file).")
	var verbose = pflag.BoolP("verbose", "v", false, "Enable debug logging.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - a standalone PROFINET IO device stack.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: pnetd [options]\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	var data, err = os.ReadFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pnetd: read config: %v\n", err)
		os.Exit(1)
	}

	var cfg, cfgErr = pnet.LoadConfig(data)
	if cfgErr != nil {
		fmt.Fprintf(os.Stderr, "pnetd: invalid config: %v\n", cfgErr)
		os.Exit(1)
	}

	if *ifName != "" {
		cfg.Interface = *ifName
	}
	if *persistDir != "" {
		cfg.PersistDir = *persistDir
	}
	if *verbose {
		cfg.LogLevel = pnetlog.LevelDebug
	}

	var device, devErr = pnet.NewDevice(cfg, &noopCallbacks{})
	if devErr != nil {
		fmt.Fprintf(os.Stderr, "pnetd: create device: %v\n", devErr)
		os.Exit(1)
	}

	var resolvedIf = cfg.Interface
	if resolvedIf != "" {
		if name, resolveErr := l2sock.ResolveInterface(resolvedIf); resolveErr == nil {
			resolvedIf = name
		}
	}

	var sock *l2sock.Socket
	if resolvedIf != "" {
		sock, err = l2sock.Open(resolvedIf)
		if err != nil {
			device.Log.Warn("L2 socket unavailable, running without live transport", "err", err)
		} else {
			defer sock.Close()
		}
	}

	device.Log.Info("pnetd starting", "station_name", cfg.StationName, "interface", resolvedIf)

	var sigCh = make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var ticker = time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			device.Log.Info("pnetd shutting down")
			return
		case now := <-ticker.C:
			device.Scheduler.Tick(now)
		}
	}
}

// noopCallbacks is the default application callback set when no
// integration layer is wired in; it satisfies pnet.DeviceCallbacks
// without touching any I/O.
type noopCallbacks struct{}

func (noopCallbacks) StateInd(arep uint16, event pnet.StateEvent, errClass pnet.ErrClass, errCode pnet.ErrCode) {
}

func (noopCallbacks) ConnectInd(arep uint16, arType pnet.ARType) error { return nil }

func (noopCallbacks) ReleaseInd(arep uint16) {}

func (noopCallbacks) DControlInd(arep uint16, op pnet.DControlOpcode) {}

func (noopCallbacks) CControlInd(arep uint16) {}

func (noopCallbacks) ReadInd(api uint32, slot, subslot uint16, index uint16) ([]byte, error) {
	return nil, fmt.Errorf("pnetd: no application record handler configured")
}

func (noopCallbacks) WriteInd(api uint32, slot, subslot uint16, index uint16, data []byte) error {
	return fmt.Errorf("pnetd: no application record handler configured")
}

func (noopCallbacks) ExpModuleInd(api uint32, slot uint16, ident pnet.ModuleIdent) error { return nil }

func (noopCallbacks) ExpSubmoduleInd(api uint32, slot, subslot uint16, ident pnet.ModuleIdent) error {
	return nil
}

func (noopCallbacks) NewDataStatusInd(arep uint16, frameID uint16, dataStatus byte) {}

func (noopCallbacks) AlarmInd(arep uint16, priority pnet.AlarmPriority, pdu pnet.AlarmPDU) {}

func (noopCallbacks) AlarmCnf(arep uint16, priority pnet.AlarmPriority, seq uint16) {}

func (noopCallbacks) AlarmAckCnf(arep uint16, priority pnet.AlarmPriority, seq uint16) {}

func (noopCallbacks) ResetInd(mode pnet.ResetMode) {}

func (noopCallbacks) SignalLED(on bool) {}
