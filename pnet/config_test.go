package pnet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	var yamlDoc = []byte(`
station_name: plc-line-3
station_type: io-device
vendor_id: 42
device_id: 1
ip_address: 192.168.1.10
netmask: 255.255.255.0
interface: eth0
modules:
  - slot: 1
    ident: 256
    submodules:
      - subslot: 1
        ident: 1
        direction: in
        input_len: 4
`)

	var cfg, err = LoadConfig(yamlDoc)
	require.NoError(t, err)

	assert.Equal(t, "plc-line-3", cfg.StationName)
	assert.Equal(t, uint16(42), cfg.VendorID)
	assert.Equal(t, "192.168.1.10", cfg.IPAddress.String())
	assert.Equal(t, time.Millisecond, cfg.CycleTime)
	assert.Len(t, cfg.Modules, 1)
}

func TestLoadConfigRejectsBadStationName(t *testing.T) {
	var yamlDoc = []byte(`
station_name: "Not-Valid-Upper"
`)

	var _, err = LoadConfig(yamlDoc)
	require.Error(t, err)
}

func TestLoadConfigRejectsBadIPNetmask(t *testing.T) {
	var yamlDoc = []byte(`
station_name: dev-1
ip_address: 127.0.0.1
netmask: 255.255.255.0
`)

	var _, err = LoadConfig(yamlDoc)
	require.Error(t, err)
}

func TestLoadConfigRejectsTooManySubmodules(t *testing.T) {
	var yamlDoc = []byte(`
station_name: dev-1
modules:
  - slot: 1
    ident: 1
    submodules:
      - {subslot: 0, ident: 1}
      - {subslot: 1, ident: 1}
      - {subslot: 2, ident: 1}
      - {subslot: 3, ident: 1}
      - {subslot: 4, ident: 1}
      - {subslot: 5, ident: 1}
      - {subslot: 6, ident: 1}
      - {subslot: 7, ident: 1}
      - {subslot: 8, ident: 1}
`)

	var _, err = LoadConfig(yamlDoc)
	require.Error(t, err)
}
