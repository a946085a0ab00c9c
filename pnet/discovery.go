package pnet

/*------------------------------------------------------------------
 *
 * Purpose:   	Announce a diagnostic/management endpoint for the device
 *		over mDNS/DNS-SD, so a commissioning tool can find it on
 *		the local segment without pre-knowing its IP - an
 *		optional convenience surface alongside DCP discovery.
 *
 * Description:
 *
 *	This uses the pure-Go github.com/brutella/dnssd package for
 *	cross-platform mDNS/DNS-SD service announcement, the same way
 *	a TCP service announces itself, without requiring any system
 *	daemon or C library dependency.
 */

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
)

const dnssdServiceType = "_pnet-diag._udp"

// DiscoveryAnnouncer advertises the device's station name over mDNS so
// engineering tools can find it without a prior DCP Identify.
type DiscoveryAnnouncer struct {
	device    *Device
	responder dnssd.Responder
	cancel    context.CancelFunc
}

// NewDiscoveryAnnouncer builds (but does not start) the announcer.
func NewDiscoveryAnnouncer(d *Device) *DiscoveryAnnouncer {
	return &DiscoveryAnnouncer{device: d}
}

// Start registers the mDNS service and begins responding to queries. The
// returned error is non-fatal to device operation - discovery is a
// convenience, not a protocol requirement.
func (a *DiscoveryAnnouncer) Start(ctx context.Context, port int) error {
	var name = a.device.Config.StationName
	if name == "" {
		name = fmt.Sprintf("pnet-device-%04x", a.device.Config.DeviceID)
	}

	var cfg = dnssd.Config{
		Name: name,
		Type: dnssdServiceType,
		Port: port,
	}

	var svc, err = dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("pnet: dnssd service: %w", err)
	}

	var rp, rpErr = dnssd.NewResponder()
	if rpErr != nil {
		return fmt.Errorf("pnet: dnssd responder: %w", rpErr)
	}

	var _, addErr = rp.Add(svc)
	if addErr != nil {
		return fmt.Errorf("pnet: dnssd add: %w", addErr)
	}

	a.responder = rp

	var runCtx, cancel = context.WithCancel(ctx)
	a.cancel = cancel

	go func() {
		_ = rp.Respond(runCtx)
	}()

	return nil
}

// Stop cancels the responder goroutine started by Start.
func (a *DiscoveryAnnouncer) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
}
