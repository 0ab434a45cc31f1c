package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunHelpExitsZero(t *testing.T) {
	if code := run([]string{"--help"}); code != exitOK {
		t.Errorf("run(--help) = %d, want %d", code, exitOK)
	}
}

func TestRunVersionExitsZero(t *testing.T) {
	if code := run([]string{"--version"}); code != exitOK {
		t.Errorf("run(--version) = %d, want %d", code, exitOK)
	}
}

func TestRunUnknownFlagExitsUsage(t *testing.T) {
	if code := run([]string{"--no-such-flag"}); code != exitUsage {
		t.Errorf("run(--no-such-flag) = %d, want %d", code, exitUsage)
	}
}

func TestRunMissingConfigFileExitsUsage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	if code := run([]string{"--config", path}); code != exitUsage {
		t.Errorf("run(--config %s) = %d, want %d", path, code, exitUsage)
	}
}

func TestRunInvalidConfigExitsUsage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("baud_rate = 12345\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if code := run([]string{"--config", path}); code != exitUsage {
		t.Errorf("run with invalid config = %d, want %d", code, exitUsage)
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	cmd := newRootCommand()
	if err := cmd.ParseFlags([]string{
		"--midi-port", "UM-ONE",
		"--serial-port", "/dev/ttyUSB0",
		"--log-level", "debug",
	}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	opts := &rootOptions{
		midiPort:   "UM-ONE",
		serialPort: "/dev/ttyUSB0",
		logLevel:   "debug",
	}
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.MIDIPort != "UM-ONE" {
		t.Errorf("MIDIPort = %q, want flag override", cfg.MIDIPort)
	}
	if cfg.SerialPort != "/dev/ttyUSB0" {
		t.Errorf("SerialPort = %q, want flag override", cfg.SerialPort)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want flag override", cfg.Logging.Level)
	}
}

func TestLoadConfigRejectsBadLogLevelOverride(t *testing.T) {
	cmd := newRootCommand()
	if err := cmd.ParseFlags([]string{"--log-level", "verbose"}); err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}

	if _, err := loadConfig(cmd, &rootOptions{logLevel: "verbose"}); err == nil {
		t.Fatal("loadConfig accepted an unknown log level")
	}
}

func TestHelpMentionsDefaults(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute(--help): %v", err)
	}

	help := out.String()
	for _, want := range []string{"hw:1,0", "/dev/ttymxc1", "--midi-port", "--serial-port"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output does not mention %q", want)
		}
	}
}
