package audio

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/gen2brain/malgo"
)

// DeviceType represents the kind of audio device.
type DeviceType int

const (
	DeviceTypePlayback DeviceType = iota
	DeviceTypeCapture
)

// String returns the device type label used in device IDs.
func (t DeviceType) String() string {
	if t == DeviceTypeCapture {
		return "capture"
	}
	return "playback"
}

// DeviceInfo contains information about an audio device.
type DeviceInfo struct {
	ID        string     // Unique device identifier
	Name      string     // Human-readable device name
	Type      DeviceType // Playback or capture
	IsDefault bool       // Whether this is the default device
}

// String returns a human-readable representation of the device.
func (d DeviceInfo) String() string {
	defaultMarker := ""
	if d.IsDefault {
		defaultMarker = " [DEFAULT]"
	}
	return fmt.Sprintf("%s: %s%s", d.ID, d.Name, defaultMarker)
}

// ListDevices returns all available playback and capture devices.
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	var devices []DeviceInfo
	for _, t := range []DeviceType{DeviceTypePlayback, DeviceTypeCapture} {
		kind := malgo.Playback
		if t == DeviceTypeCapture {
			kind = malgo.Capture
		}

		infos, err := ctx.Devices(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate %s devices: %w", t, err)
		}
		for i, info := range infos {
			devices = append(devices, DeviceInfo{
				ID:        fmt.Sprintf("%s-%d", t, i),
				Name:      info.Name(),
				Type:      t,
				IsDefault: info.IsDefault > 0,
			})
		}
	}
	return devices, nil
}

// deviceByName resolves a device name (case-insensitive partial match) to the
// identifier InitDevice wants, using the same context the device will open
// on. Returns the matched device's full name for display.
func deviceByName(ctx *malgo.AllocatedContext, kind malgo.DeviceType, name string) (unsafe.Pointer, string, error) {
	infos, err := ctx.Devices(kind)
	if err != nil {
		return nil, "", fmt.Errorf("failed to enumerate devices: %w", err)
	}

	want := strings.ToLower(name)
	for i := range infos {
		if strings.Contains(strings.ToLower(infos[i].Name()), want) {
			return infos[i].ID.Pointer(), infos[i].Name(), nil
		}
	}
	return nil, "", fmt.Errorf("no device found matching name: %s", name)
}
