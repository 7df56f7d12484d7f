package app

import (
	"fmt"
	"os"

	"github.com/emmett/wavelink/internal/audio"
)

// DeviceManager handles audio device listing for the -list-devices flags.
type DeviceManager struct{}

// NewDeviceManager creates a new DeviceManager instance
func NewDeviceManager() *DeviceManager {
	return &DeviceManager{}
}

// ListDevices lists all available playback and capture devices
func (dm *DeviceManager) ListDevices() error {
	fmt.Println("Detecting audio devices...")
	fmt.Println()

	devices, err := audio.ListDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to list devices: %v\n", err)
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No audio devices found.")
		return fmt.Errorf("no devices found")
	}

	printDeviceGroup(devices, audio.DeviceTypePlayback, "playback")
	printDeviceGroup(devices, audio.DeviceTypeCapture, "capture")

	fmt.Println("To use a specific device, run:")
	fmt.Println("  wavelink-receiver -device \"<device-name>\"              (playback)")
	fmt.Println("  wavelink-sender -source mic -device \"<device-name>\"    (capture)")

	return nil
}

func printDeviceGroup(devices []audio.DeviceInfo, kind audio.DeviceType, label string) {
	var group []audio.DeviceInfo
	for _, d := range devices {
		if d.Type == kind {
			group = append(group, d)
		}
	}

	fmt.Printf("Found %d %s device(s):\n\n", len(group), label)
	for i, device := range group {
		marker := ""
		if device.IsDefault {
			marker = " [DEFAULT]"
		}
		fmt.Printf("%d. %s%s\n", i+1, device.Name, marker)
		fmt.Printf("   ID: %s\n", device.ID)
		fmt.Println()
	}
}
