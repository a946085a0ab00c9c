package pnet

/*------------------------------------------------------------------
 *
 * Purpose:	CMINA - name/IP assignment state machine:
 *		SETUP -> SET_NAME -> SET_IP -> W_CONNECT.
 *
 *---------------------------------------------------------------*/

import (
	"net"
	"time"
)

// CMINAStateID enumerates CMINA's states.
type CMINAStateID uint8

const (
	cminaStateSetup CMINAStateID = iota
	cminaStateSetName
	cminaStateSetIP
	cminaStateWConnect
)

// cminaHelloCount is the default number of initial HELLO beacons sent
// one second apart after the device becomes addressed.
const cminaHelloCount = 3

var cminaHelloSpacing = time.Second

// HelloSender is the L2 multicast collaborator CMINA hands formatted
// HELLO frames to.
type HelloSender interface {
	SendHello(stationName string, ip, mask, gateway string) error
}

// CMINA is the device-wide name/IP state machine.
type CMINA struct {
	device *Device
	state  CMINAStateID

	helloSender HelloSender
	helloSent   int
	helloHandle Handle
}

// NewCMINA builds CMINA from the nonvolatile configuration already loaded
// into device.Config ("On boot, nonvolatile settings are
// loaded").
func NewCMINA(d *Device) *CMINA {
	var c = &CMINA{device: d}

	var named = d.Config.StationName != ""
	var addressed = d.Config.IPAddress != nil && !d.Config.IPAddress.IsUnspecified()

	switch {
	case named && addressed:
		c.state = cminaStateWConnect
	case named:
		c.state = cminaStateSetIP
	default:
		c.state = cminaStateSetName
	}

	return c
}

// State returns the current CMINA state.
func (c *CMINA) State() CMINAStateID { return c.state }

// SetHelloSender injects the transport used by StartHelloBeacons.
func (c *CMINA) SetHelloSender(s HelloSender) { c.helloSender = s }

// StartHelloBeacons emits the initial HELLO burst once W_CONNECT is
// reached. Safe to call repeatedly; only fires while in
// W_CONNECT and while fewer than cminaHelloCount beacons have been sent
// since the last (re)start.
func (c *CMINA) StartHelloBeacons() {
	if c.state != cminaStateWConnect {
		return
	}

	c.helloSent = 0
	c.emitHello()
}

func (c *CMINA) emitHello() {
	if c.helloSender != nil {
		_ = c.helloSender.SendHello(
			c.device.Config.StationName,
			ipString(c.device.Config.IPAddress),
			ipString(c.device.Config.NetMask),
			ipString(c.device.Config.Gateway),
		)
	}

	c.helloSent++
	if c.helloSent >= cminaHelloCount {
		return
	}

	var h, err = c.device.Scheduler.Add(time.Now(), cminaHelloSpacing, "cmina-hello", func(time.Time, any) {
		c.emitHello()
	}, nil)
	if err == nil {
		c.helloHandle = h
	}
}

func ipString(ip net.IP) string {
	if ip == nil {
		return ""
	}
	return ip.String()
}

// OnNameSet handles DCP having accepted a new station name: a missing name
// leaves the device in SET_NAME awaiting Set-name via DCP; once named, a
// missing IP leaves it in SET_IP.
func (c *CMINA) OnNameSet(name string) {
	if name == "" {
		c.state = cminaStateSetName
		return
	}

	switch c.state {
	case cminaStateSetup, cminaStateSetName:
		if c.device.Config.IPAddress != nil && !c.device.Config.IPAddress.IsUnspecified() {
			c.state = cminaStateWConnect
			c.StartHelloBeacons()
		} else {
			c.state = cminaStateSetIP
		}
	}
}

// OnIPSet handles DCP having accepted a new IP suite.
func (c *CMINA) OnIPSet(ip net.IP) {
	switch c.state {
	case cminaStateSetIP:
		c.state = cminaStateWConnect
		c.StartHelloBeacons()
	}
}
