package audio

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

// Enumerate lists capture-capable endpoints through a short-lived
// backend connection, blocking until the server responds. Zero devices
// is an empty slice, not an error. Must never be called from the
// capture callback thread.
func Enumerate() ([]Device, error) {
	ctx, err := malgo.InitContext(platformBackends(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnection, backendName(), err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("%w: listing capture endpoints: %v", ErrDeviceResolution, err)
	}

	devices := make([]Device, 0, len(infos))
	for i := range infos {
		uid := decodeDeviceUID(infos[i].ID)

		name := infos[i].Name()
		if name == "" {
			name = "(unnamed device)"
		}

		channels := 0
		if infos[i].FormatCount > 0 {
			channels = int(infos[i].Formats[0].Channels)
		}

		devices = append(devices, Device{
			Name:      name,
			UID:       uid,
			Channels:  channels,
			IsInput:   !isMonitorDevice(uid),
			IsDefault: infos[i].IsDefault == 1,
		})
	}
	return devices, nil
}

// DescribeDevices renders the device list as diagnostic text, grouping
// output monitors and input sources with the default marked in each.
func DescribeDevices() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s devices:\n\n", backendName())

	devices, err := Enumerate()
	if err != nil {
		fmt.Fprintf(&b, "enumeration failed: %v\n", err)
		return b.String()
	}

	b.WriteString("=== Output Monitors ===\n")
	none := true
	for _, d := range devices {
		if d.IsInput {
			continue
		}
		none = false
		writeDeviceLine(&b, d)
	}
	if none {
		b.WriteString("(none)\n")
	}

	b.WriteString("\n=== Input Sources ===\n")
	none = true
	for _, d := range devices {
		if !d.IsInput {
			continue
		}
		none = false
		writeDeviceLine(&b, d)
	}
	if none {
		b.WriteString("(none)\n")
	}

	b.WriteString("\nUsage:\n")
	b.WriteString("  -device-type monitor      meter the system output (sink monitor)\n")
	b.WriteString("  -device-type microphone   meter a live input source\n")
	b.WriteString("  -device-name <name>       use a specific endpoint by UID or name\n")
	return b.String()
}

func writeDeviceLine(b *strings.Builder, d Device) {
	marker := ""
	if d.IsDefault {
		marker = "   [DEFAULT]"
	}
	fmt.Fprintf(b, "%s%s\n", d.Name, marker)
	fmt.Fprintf(b, "  UID: %s\n", d.UID)
	if d.Channels > 0 {
		fmt.Fprintf(b, "  Channels: %d\n", d.Channels)
	}
	b.WriteString("\n")
}
