// Package media handles capture-device discovery, selection, and exclusive
// ownership of the microphone for the lifetime of an interview session.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
	"go.uber.org/zap"

	"mockly/internal/config"
)

// Device describes one Pulse input source.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// Selection is the resolved capture source plus fallback context.
type Selection struct {
	Device   Device
	Warning  string
	Fallback bool
}

// ListDevices returns available Pulse input sources with default and
// availability metadata.
func ListDevices(_ context.Context) ([]Device, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("mockly"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSource, err := client.DefaultSource()
	if err != nil {
		return nil, fmt.Errorf("read default source: %w", err)
	}
	defaultID := defaultSource.ID()

	var sourceInfos pulseproto.GetSourceInfoListReply
	if err := client.RawRequest(&pulseproto.GetSourceInfoList{}, &sourceInfos); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	devices := make([]Device, 0, len(sourceInfos))
	for _, source := range sourceInfos {
		if source == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          source.SourceName,
			Description: source.Device,
			State:       sourceStateString(source.State),
			Available:   sourceAvailable(source),
			Muted:       source.Mute,
			Default:     source.SourceName == defaultID,
		})
	}
	return devices, nil
}

// SelectDevice resolves the configured input and fallback preferences
// against live devices.
func SelectDevice(ctx context.Context, input, fallback string) (Selection, error) {
	devices, err := ListDevices(ctx)
	if err != nil {
		return Selection{}, err
	}
	return selectFromList(devices, input, fallback)
}

func selectFromList(devices []Device, input, fallback string) (Selection, error) {
	if len(devices) == 0 {
		return Selection{}, errors.New("no audio input devices found")
	}

	input = strings.TrimSpace(strings.ToLower(input))
	fallback = strings.TrimSpace(strings.ToLower(fallback))

	var defaultDevice, byInput, byFallback *Device
	for i := range devices {
		dev := &devices[i]
		if dev.Default {
			defaultDevice = dev
		}
		if byInput == nil && input != "" && input != "default" && deviceMatches(*dev, input) {
			byInput = dev
		}
		if byFallback == nil && fallback != "" && fallback != "default" && deviceMatches(*dev, fallback) {
			byFallback = dev
		}
	}

	chooseDefault := func() (*Device, error) {
		if defaultDevice == nil {
			return nil, errors.New("default audio source is unavailable")
		}
		return defaultDevice, nil
	}

	var primary *Device
	var err error
	if input == "" || input == "default" {
		primary, err = chooseDefault()
	} else if byInput != nil {
		primary = byInput
	} else {
		err = fmt.Errorf("media input %q did not match any device", input)
	}
	if err != nil {
		return Selection{}, err
	}

	if primary.Available && !primary.Muted {
		return Selection{Device: *primary}, nil
	}

	primaryReason := "unavailable"
	if primary.Muted {
		primaryReason = "muted"
	}

	fallbackDevice := primary
	if fallback != "" && fallback != "default" {
		if byFallback == nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and fallback %q not found", primary.ID, primaryReason, fallback)
		}
		fallbackDevice = byFallback
	} else {
		d, derr := chooseDefault()
		if derr != nil {
			return Selection{}, fmt.Errorf("primary input %q is %s and no usable fallback: %w", primary.ID, primaryReason, derr)
		}
		fallbackDevice = d
	}

	if !fallbackDevice.Available {
		return Selection{}, fmt.Errorf("fallback device %q is not available", fallbackDevice.ID)
	}
	if fallbackDevice.Muted {
		return Selection{}, fmt.Errorf("fallback device %q is muted", fallbackDevice.ID)
	}

	return Selection{
		Device:   *fallbackDevice,
		Warning:  fmt.Sprintf("media input %q is %s; falling back to %q", primary.ID, primaryReason, fallbackDevice.ID),
		Fallback: primary.ID != fallbackDevice.ID,
	}, nil
}

func deviceMatches(device Device, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(device.ID), term) ||
		strings.Contains(strings.ToLower(device.Description), term)
}

// MicDevice holds an exclusive capture stream on one Pulse source for the
// lifetime of a session. Captured PCM is discarded; the open stream is what
// keeps the device owned and lets the mic toggle mute at the source.
type MicDevice struct {
	device Device
	log    *zap.Logger

	client *pulse.Client
	stream *pulse.RecordStream

	mu       sync.Mutex
	enabled  bool
	released bool

	bytes atomic.Int64
}

// Acquire selects and opens the microphone per configuration. A disabled
// media config or a Pulse failure yields a no-op device; device trouble
// never blocks the interview.
func Acquire(ctx context.Context, cfg config.MediaConfig, log *zap.Logger) SessionDevice {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled {
		return NoopDevice{}
	}

	mic, err := acquire(ctx, cfg, log)
	if err != nil {
		log.Warn("microphone unavailable, continuing without device ownership", zap.Error(err))
		return NoopDevice{}
	}
	return mic
}

func acquire(ctx context.Context, cfg config.MediaConfig, log *zap.Logger) (*MicDevice, error) {
	selection, err := SelectDevice(ctx, cfg.Input, cfg.Fallback)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" {
		log.Warn("capture device fallback", zap.String("warning", selection.Warning))
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("mockly"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}

	source, err := client.SourceByID(selection.Device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selection.Device.ID, err)
	}

	mic := &MicDevice{
		device:  selection.Device,
		log:     log,
		client:  client,
		enabled: true,
	}

	writer := pulse.NewWriter(writerFunc(mic.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(16000),
		pulse.RecordMediaName("mockly interview"),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	mic.stream = stream
	stream.Start()

	log.Info("microphone acquired",
		zap.String("device", selection.Device.ID),
		zap.Bool("fallback", selection.Fallback),
	)
	return mic, nil
}

// Device returns capture metadata for diagnostics.
func (m *MicDevice) Device() Device {
	return m.device
}

// BytesCaptured reports total bytes accepted from Pulse.
func (m *MicDevice) BytesCaptured() int64 {
	return m.bytes.Load()
}

// SetMicEnabled pauses or resumes the stream. The device stays owned either
// way; toggling mutes, it does not release.
func (m *MicDevice) SetMicEnabled(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released || m.enabled == on {
		return
	}
	m.enabled = on
	if on {
		m.stream.Start()
	} else {
		m.stream.Stop()
	}
	m.log.Debug("microphone toggled", zap.Bool("enabled", on))
}

// Release gives the device back. Idempotent.
func (m *MicDevice) Release() {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return
	}
	m.released = true
	m.mu.Unlock()

	m.stream.Stop()
	m.stream.Close()
	m.client.Close()
	m.log.Info("microphone released", zap.String("device", m.device.ID))
}

func (m *MicDevice) onPCM(buffer []byte) (int, error) {
	m.mu.Lock()
	released := m.released
	m.mu.Unlock()
	if released {
		return 0, io.EOF
	}

	m.bytes.Add(int64(len(buffer)))
	return len(buffer), nil
}

// SessionDevice is what a session controller holds: mute control plus
// release on teardown.
type SessionDevice interface {
	SetMicEnabled(on bool)
	Release()
}

// NoopDevice stands in when media capture is disabled or unavailable.
type NoopDevice struct{}

func (NoopDevice) SetMicEnabled(bool) {}
func (NoopDevice) Release()           {}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}

func sourceStateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

func sourceAvailable(source *pulseproto.GetSourceInfoReply) bool {
	if source == nil {
		return false
	}
	if len(source.Ports) == 0 {
		return true
	}
	for _, port := range source.Ports {
		if port.Name != source.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
