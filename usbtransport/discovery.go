/* carplaydongled - host-side protocol engine for CarPlay/Android Auto USB dongles
 *
 * Device discovery and endpoint claiming on top of gousb. The protocol
 * core above this package never sees a *gousb.Device directly — only the
 * resulting Transport.
 */

package usbtransport

import (
	"fmt"

	"github.com/google/gousb"
)

// Ident is a USB vendor/product ID pair identifying a recognized dongle
// model.
type Ident struct {
	Vendor  gousb.ID
	Product gousb.ID
}

// KnownDevices is the default set of dongle VID/PID pairs recognized
// out-of-the-box. Callers may extend this with vendor-specific pairs
// without modifying this package.
var KnownDevices = []Ident{
	{Vendor: 0x1314, Product: 0x1520},
	{Vendor: 0x1314, Product: 0x1521},
}

// Matches reports whether desc identifies one of the given idents.
func Matches(desc *gousb.DeviceDesc, idents []Ident) bool {
	for _, id := range idents {
		if desc.Vendor == id.Vendor && desc.Product == id.Product {
			return true
		}
	}
	return false
}

// Find opens the first connected device matching idents. It returns
// gousb.ErrorNotFound-shaped behavior through a plain nil, nil result when
// nothing matches — callers (the CLI's discovery loop) distinguish
// "nothing attached yet" from a real error and retry.
func Find(ctx *gousb.Context, idents []Ident) (*gousb.Device, error) {
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return Matches(desc, idents)
	})
	if err != nil {
		return nil, fmt.Errorf("usbtransport: enumerate devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, nil
	}
	// Keep the first match, release any duplicates (multiple dongles
	// plugged in at once is not a supported configuration).
	for _, extra := range devices[1:] {
		extra.Close()
	}
	return devices[0], nil
}

// Open claims configuration 1, interface (0,0) on device, identifies its
// single bulk IN and OUT endpoints by direction bit, and returns a
// Transport ready for ReadExact/Write. On any failure the device is left
// closed.
func Open(device *gousb.Device) (*Transport, error) {
	// Best-effort: detach a conflicting kernel driver where the platform
	// supports it. Not every platform needs this, so its failure isn't
	// treated as fatal.
	_ = device.SetAutoDetach(true)

	cfg, err := device.Config(1)
	if err != nil {
		device.Close()
		return nil, fmt.Errorf("%w: %v", ErrNoConfig, err)
	}

	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		device.Close()
		return nil, fmt.Errorf("%w: %v", ErrNoConfig, err)
	}

	var inDesc, outDesc *gousb.EndpointDesc
	for _, ep := range intf.Setting.Endpoints {
		ep := ep
		switch ep.Direction {
		case gousb.EndpointDirectionIn:
			if inDesc == nil {
				inDesc = &ep
			}
		case gousb.EndpointDirectionOut:
			if outDesc == nil {
				outDesc = &ep
			}
		}
	}
	if inDesc == nil {
		intf.Close()
		cfg.Close()
		device.Close()
		return nil, ErrNoInEndpoint
	}
	if outDesc == nil {
		intf.Close()
		cfg.Close()
		device.Close()
		return nil, ErrNoOutEndpoint
	}

	inEp, err := intf.InEndpoint(inDesc.Number)
	if err != nil {
		intf.Close()
		cfg.Close()
		device.Close()
		return nil, fmt.Errorf("%w: %v", ErrNoInEndpoint, err)
	}
	outEp, err := intf.OutEndpoint(outDesc.Number)
	if err != nil {
		intf.Close()
		cfg.Close()
		device.Close()
		return nil, fmt.Errorf("%w: %v", ErrNoOutEndpoint, err)
	}

	closer := func() error {
		intf.Close()
		if err := cfg.Close(); err != nil {
			device.Close()
			return err
		}
		return device.Close()
	}

	return New(inEp, outEp, closer), nil
}
