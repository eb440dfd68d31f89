// Package main provides a stereo VU meter service that captures system
// audio or a live input and publishes analog-ballistics meter levels
// over WebSocket and REST.
//
// Usage:
//
//	vumeter [-config path/to/config.json] [-device-name name] [-device-type monitor|microphone] [-ref-dbfs level]
//
// If -config is not specified, the meter looks for config.json in the
// same directory as the binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/analogvu/vumeter/internal/audio"
	"github.com/analogvu/vumeter/internal/config"
	"github.com/analogvu/vumeter/internal/eventlog"
	"github.com/analogvu/vumeter/internal/util"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	listDevices := flag.Bool("list-devices", false, "List capture devices and exit")
	deviceName := flag.String("device-name", "", "Capture device UID or display-name substring")
	deviceType := flag.String("device-type", "", "Capture mode: monitor or microphone")
	refDbfs := flag.Float64("ref-dbfs", 0, "Pin the 0 VU reference level in dBFS")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *listDevices {
		fmt.Print(audio.DescribeDevices())
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	opts := cfg.CaptureOptions()
	if *deviceName != "" {
		opts.DeviceName = *deviceName
	}
	if *deviceType != "" {
		switch audio.DeviceType(*deviceType) {
		case audio.SystemOutputMonitor, audio.Microphone:
			opts.DeviceType = audio.DeviceType(*deviceType)
		default:
			slog.Error("invalid device type", "device_type", *deviceType)
			os.Exit(1)
		}
	}
	if isFlagSet("ref-dbfs") {
		opts.ReferenceDbfs = *refDbfs
		opts.ReferenceOverride = true
	}

	var events *eventlog.Logger
	if path := cfg.EventLogPath(); path != "" {
		var err error
		events, err = eventlog.NewLogger(path)
		if err != nil {
			slog.Error("failed to open event log", "path", path, "error", err)
			os.Exit(1)
		}
		slog.Info("event log enabled", "path", path)
	}

	engine := audio.NewEngine(opts, cfg.CalibrationTable())
	engine.OnError(func(message string) {
		if err := events.LogCaptureError(message); err != nil {
			slog.Error("failed to log capture error", "error", err)
		}
	})
	engine.OnDeviceChanged(func(uid string) {
		if err := events.LogDeviceChanged(uid); err != nil {
			slog.Error("failed to log device change", "error", err)
		}
	})

	// A capture failure is not fatal. The meter rests at the floor and
	// the device can be switched from a client.
	if err := engine.Start(); err != nil {
		slog.Warn("capture not started", "error", err)
	} else {
		slog.Info("capture started",
			"device", engine.CurrentDeviceUID(),
			"type", opts.DeviceType,
			"reference_dbfs", engine.EffectiveReferenceDbfs())
	}

	srv := NewServer(cfg, engine, events)
	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")

	srv.Stop()

	// Shut down HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	engine.Stop()

	if err := events.Close(); err != nil {
		slog.Error("error closing event log", "error", err)
	}

	slog.Info("shutdown complete")
}

// isFlagSet reports whether a flag was passed explicitly, so a zero
// value can still be a deliberate choice.
func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
