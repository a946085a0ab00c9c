package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	Declarative device configuration and the
 *		upcall interface the application implements.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"net"
	"time"

	"github.com/pnetgo/pnet/pnet/pnetlog"
	"gopkg.in/yaml.v3"
)

// DeviceConfig is the static configuration loaded once at startup:
// station name, IP, vendor/device identity, and the module tree.
type DeviceConfig struct {
	StationName  string        `yaml:"station_name"`
	StationType  string        `yaml:"station_type"`
	VendorID     uint16        `yaml:"vendor_id"`
	DeviceID     uint16        `yaml:"device_id"`
	InstanceID   uint16        `yaml:"instance_id"`
	OEMVendorID  uint16        `yaml:"oem_vendor_id"`
	OEMDeviceID  uint16        `yaml:"oem_device_id"`
	IPAddress    net.IP        `yaml:"-"`
	NetMask      net.IP        `yaml:"-"`
	Gateway      net.IP        `yaml:"-"`
	IPAddressStr string        `yaml:"ip_address"`
	NetMaskStr   string        `yaml:"netmask"`
	GatewayStr   string        `yaml:"gateway"`
	Interface    string        `yaml:"interface"`
	CycleTime    time.Duration `yaml:"cycle_time"`
	LogLevel     pnetlog.Level `yaml:"-"`
	LogLevelStr  string        `yaml:"log_level"`
	PersistDir   string        `yaml:"persist_dir"`

	Modules []ModuleConfig `yaml:"modules"`
}

// ModuleConfig describes one pluggable module's static submodule layout
// (GSDML's per-slot information, reduced to what the core tree needs).
type ModuleConfig struct {
	Slot       uint16             `yaml:"slot"`
	Ident      uint32             `yaml:"ident"`
	Submodules []SubmoduleConfig  `yaml:"submodules"`
}

// SubmoduleConfig describes one pluggable submodule.
type SubmoduleConfig struct {
	Subslot   uint16 `yaml:"subslot"`
	Ident     uint32 `yaml:"ident"`
	Direction string `yaml:"direction"` // "in", "out", "inout", "none"
	InputLen  uint16 `yaml:"input_len"`
	OutputLen uint16 `yaml:"output_len"`
}

// LoadConfig reads a YAML device configuration file describing the
// station name, IP suite, and slot/submodule layout to bring up.
func LoadConfig(data []byte) (*DeviceConfig, error) {
	var cfg DeviceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("pnet: decode config: %w", err)
	}

	if cfg.IPAddressStr != "" {
		cfg.IPAddress = net.ParseIP(cfg.IPAddressStr)
	}
	if cfg.NetMaskStr != "" {
		cfg.NetMask = net.ParseIP(cfg.NetMaskStr)
	}
	if cfg.GatewayStr != "" {
		cfg.Gateway = net.ParseIP(cfg.GatewayStr)
	}

	cfg.LogLevel = parseLogLevel(cfg.LogLevelStr)

	if cfg.CycleTime == 0 {
		cfg.CycleTime = time.Millisecond
	}

	return &cfg, cfg.Validate()
}

func parseLogLevel(s string) pnetlog.Level {
	switch s {
	case "debug":
		return pnetlog.LevelDebug
	case "warn":
		return pnetlog.LevelWarn
	case "error":
		return pnetlog.LevelError
	default:
		return pnetlog.LevelInfo
	}
}

// Validate checks the station name and IP/netmask combination (if set)
// plus the structural bounds of the device tree.
func (c *DeviceConfig) Validate() error {
	if c.StationName != "" && !ValidStationName(c.StationName) {
		return fmt.Errorf("pnet: invalid station name %q", c.StationName)
	}

	if len(c.Modules) > MaxSlots-1 {
		return fmt.Errorf("pnet: too many modules: %d > %d", len(c.Modules), MaxSlots-1)
	}

	for _, m := range c.Modules {
		if int(m.Slot) >= MaxSlots {
			return fmt.Errorf("pnet: module slot %d out of range", m.Slot)
		}
		if len(m.Submodules) > MaxSubslots {
			return fmt.Errorf("pnet: slot %d: too many submodules", m.Slot)
		}
		for _, sm := range m.Submodules {
			if int(sm.Subslot) >= MaxSubslots {
				return fmt.Errorf("pnet: slot %d subslot %d out of range", m.Slot, sm.Subslot)
			}
		}
	}

	if c.IPAddress != nil && c.NetMask != nil {
		if !ValidIPNetmask(c.IPAddress, c.NetMask) {
			return fmt.Errorf("pnet: invalid ip/netmask combination")
		}
	}

	return nil
}

// DeviceCallbacks groups the application's upcalls: state transitions,
// connect/release/control events, parameter read/write, expected-module
// matching, cyclic data-status changes, alarm delivery/acknowledgement, the
// reset-to-factory notice, and the signal-LED indication.
type DeviceCallbacks interface {
	// StateInd reports an AR state transition or abort.
	StateInd(arep uint16, event StateEvent, errClass ErrClass, errCode ErrCode)

	// ConnectInd reports a validated Connect request before CMSU brings
	// up PPM/CPM/ALPM for the new AR. A non-nil error rejects the AR.
	ConnectInd(arep uint16, arType ARType) error

	// ReleaseInd reports that an AR is being released, by either peer
	// Release or core-initiated abort.
	ReleaseInd(arep uint16)

	// DControlInd reports one DControl sub-command as CMPBE processes it.
	DControlInd(arep uint16, op DControlOpcode)

	// CControlInd reports the controller's confirmation of the device's
	// own CControl(APPL_RDY) request.
	CControlInd(arep uint16)

	// ReadInd supplies the current record data for a read request.
	ReadInd(api uint32, slot, subslot uint16, index uint16) ([]byte, error)

	// WriteInd delivers record data from a write request.
	WriteInd(api uint32, slot, subslot uint16, index uint16, data []byte) error

	// ExpModuleInd is called by CMSU for each slot an AR's IOCRs use,
	// with the identity of the module currently plugged there; the
	// Connect decoder reads no expected identities from the request. A
	// non-nil error aborts the AR's startup.
	ExpModuleInd(api uint32, slot uint16, ident ModuleIdent) error

	// ExpSubmoduleInd is ExpModuleInd's submodule-level counterpart.
	ExpSubmoduleInd(api uint32, slot, subslot uint16, ident ModuleIdent) error

	// NewDataStatusInd reports a change in a CPM's data-status byte.
	NewDataStatusInd(arep uint16, frameID uint16, dataStatus byte)

	// AlarmInd delivers one reassembled alarm PDU to the application.
	AlarmInd(arep uint16, priority AlarmPriority, pdu AlarmPDU)

	// AlarmCnf reports that a device-originated alarm has been
	// acknowledged by the controller.
	AlarmCnf(arep uint16, priority AlarmPriority, seq uint16)

	// AlarmAckCnf reports that the device's own acknowledgement of a
	// controller-originated alarm has been sent.
	AlarmAckCnf(arep uint16, priority AlarmPriority, seq uint16)

	// ResetInd reports a DCP reset-to-factory request and its scope.
	ResetInd(mode ResetMode)

	// SignalLED switches the device's signal LED on or off;
	// pnet/ledgpio.Callback adapts a GPIO line to this signature. The core
	// has no default implementation and does not call it itself.
	SignalLED(on bool)
}
