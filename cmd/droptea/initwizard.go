package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"

	"github.com/droptea/droptea/pkg/engine"
)

// runInit walks the user through a config file and writes it to out.
func runInit(out string) error {
	if _, err := os.Stat(out); err == nil {
		return fmt.Errorf("%s already exists", out)
	}

	cfg, err := runWizard()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Wrote %s\n", out)
	return nil
}

// runWizard collects the config interactively, starting from defaults.
func runWizard() (engine.Config, error) {
	cfg := engine.DefaultConfig()
	applyDefaults(&cfg)

	deviceName := cfg.DeviceName
	port := strconv.Itoa(int(cfg.Server.Port))
	mode := cfg.Server.Mode
	savePath := cfg.Storage.SavePath
	notifyEnabled := cfg.Notify.Enabled
	feedEnabled := cfg.Feed.Enabled
	feedListen := cfg.Feed.Listen

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Device name").
				Description("Shown to peers when they discover this device.").
				Value(&deviceName),
			huh.NewInput().
				Title("Listen port").
				Value(&port).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 || n > 65535 {
						return fmt.Errorf("port must be between 1 and 65535")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Transport").
				Options(
					huh.NewOption("TCP (TLS)", "tcp"),
					huh.NewOption("QUIC (UDP)", "quic"),
					huh.NewOption("Plain TCP (no TLS)", "plaintcp"),
				).
				Value(&mode),
			huh.NewInput().
				Title("Save received files to").
				Value(&savePath).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("save path is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Desktop notifications?").
				Description("Prompt for incoming files with an interactive notification.").
				Value(&notifyEnabled),
			huh.NewConfirm().
				Title("Local event feed?").
				Description("Stream events to companion frontends over WebSocket.").
				Value(&feedEnabled),
			huh.NewInput().
				Title("Feed listen address").
				Value(&feedListen),
		),
	)

	if err := form.Run(); err != nil {
		return engine.Config{}, err
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return engine.Config{}, fmt.Errorf("invalid port %q", port)
	}

	cfg.DeviceName = deviceName
	cfg.Server.Port = uint16(portNum)
	cfg.Server.Mode = mode
	cfg.Storage.SavePath = savePath
	cfg.Notify.Enabled = notifyEnabled
	cfg.Feed.Enabled = feedEnabled
	cfg.Feed.Listen = feedListen

	if err := cfg.Validate(); err != nil {
		return engine.Config{}, err
	}

	return cfg, nil
}
