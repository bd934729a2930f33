// Package config loads the engine's ambient configuration: a YAML
// document the way deviceid.go loads tocalls.yaml, with pflag-provided
// overrides layered on top the way cmd/direwolf/main.go and
// appserver.go build their flag sets (SPEC_FULL.md §A.2).
package config

import (
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the flat set of tunables the demo CLI and tests share.
type Config struct {
	Rates []uint32 `yaml:"rates"`

	QueueLength           int           `yaml:"queue_length"`
	FirstCallbackTimeout  time.Duration `yaml:"first_callback_timeout"`
	CommandTimeout        time.Duration `yaml:"command_timeout"`
	CommandRetries        int           `yaml:"command_retries"`
	CommandRetryDelay     time.Duration `yaml:"command_retry_delay"`

	PCMChannels int `yaml:"pcm_channels"`
	MIDIPorts   int `yaml:"midi_ports"`

	LogDiagnosticPattern string `yaml:"log_diagnostic_pattern"`
}

// Default returns the fixed parameters from spec §6 "Fixed parameters".
func Default() Config {
	return Config{
		Rates:                []uint32{32000, 44100, 48000, 88200, 96000, 176400, 192000},
		QueueLength:          48,
		FirstCallbackTimeout: 100 * time.Millisecond,
		CommandTimeout:       125 * time.Millisecond,
		CommandRetries:       3,
		CommandRetryDelay:    5 * time.Millisecond,
		PCMChannels:          2,
		MIDIPorts:            0,
		LogDiagnosticPattern: "amdtp-%Y%m%d.log",
	}
}

// Load reads path as YAML over the defaults. A missing file is not an
// error: it simply leaves the defaults in place, the way a first-run
// tocalls.yaml lookup falls back silently.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// BindFlags registers pflag overrides for the fields an operator is
// likely to tweak on the command line, mirroring appserver.go's
// pflag.StringP/BoolP style. Call Parse yourself after registering any
// additional flags.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&c.PCMChannels, "pcm-channels", "c", c.PCMChannels, "Number of PCM channels.")
	fs.IntVarP(&c.MIDIPorts, "midi-ports", "m", c.MIDIPorts, "Number of MPX-MIDI ports (0-8).")
	fs.DurationVar(&c.FirstCallbackTimeout, "first-callback-timeout", c.FirstCallbackTimeout, "First-callback wait timeout.")
	fs.DurationVar(&c.CommandTimeout, "command-timeout", c.CommandTimeout, "Vendor command per-try timeout.")
}
