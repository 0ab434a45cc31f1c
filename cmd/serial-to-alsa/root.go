package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/WeAreROLI/serial-to-alsa/internal/alsa"
	"github.com/WeAreROLI/serial-to-alsa/internal/config"
	"github.com/WeAreROLI/serial-to-alsa/internal/logger"
	"github.com/WeAreROLI/serial-to-alsa/internal/metrics"
	"github.com/WeAreROLI/serial-to-alsa/internal/relay"
	"github.com/WeAreROLI/serial-to-alsa/internal/serial"
)

const version = "1.1.0"

// errUsage marks invalid startup parameters; main maps it to a distinct
// exit code.
var errUsage = errors.New("invalid usage")

type rootOptions struct {
	configPath string
	midiPort   string
	serialPort string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "serial-to-alsa",
		Short:   "Copy MIDI messages from a serial port to a MIDI output",
		Version: version,
		Long: `serial-to-alsa relays delimited MIDI message frames arriving on a serial
link to a system MIDI output port. Serial capture and MIDI delivery run as
independent tasks over a bounded in-memory frame buffer, so a slow output
never stalls capture and vice versa.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return fmt.Errorf("%w: %v", errUsage, err)
			}
			return runRelay(cfg)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	flags := cmd.Flags()
	flags.StringVarP(&opts.midiPort, "midi-port", "m", config.DefaultMIDIPort, "select MIDI output port by name")
	flags.StringVarP(&opts.serialPort, "serial-port", "s", config.DefaultSerialPort, "select serial port by name")
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to TOML configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	cmd.AddCommand(newListPortsCommand())
	return cmd
}

// loadConfig merges the optional config file with explicit flag overrides.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("midi-port") {
		cfg.MIDIPort = opts.midiPort
	}
	if flags.Changed("serial-port") {
		cfg.SerialPort = opts.serialPort
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runRelay wires the hardware endpoints to the relay coordinator and blocks
// until an interrupt or a fatal relay error.
func runRelay(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := logger.New(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	sink, err := alsa.Open(cfg.MIDIPort, log)
	if err != nil {
		log.Error("cannot open MIDI output port",
			zap.String("port", cfg.MIDIPort), zap.Error(err))
		return err
	}

	port, err := serial.Open(cfg.SerialPort, cfg.BaudRate)
	if err != nil {
		log.Error("cannot open serial port",
			zap.String("port", cfg.SerialPort), zap.Error(err))
		return multierr.Append(err, sink.Close())
	}
	log.Info("serial port configured",
		zap.String("port", cfg.SerialPort),
		zap.Int("baud_rate", cfg.BaudRate))

	m := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Address); err != nil {
				log.Warn("metrics endpoint failed", zap.Error(err))
			}
		}()
		log.Info("metrics endpoint enabled", zap.String("address", cfg.Metrics.Address))
	}

	coordinator := relay.New(port, sink,
		relay.WithLogger(log),
		relay.WithMetrics(m),
		relay.WithPollInterval(cfg.PollInterval()),
	)

	log.Info("relay started",
		zap.String("serial_port", cfg.SerialPort),
		zap.String("midi_port", cfg.MIDIPort))
	runErr := coordinator.Run(ctx)

	err = multierr.Combine(runErr, port.Close(), sink.Close())
	if err != nil {
		log.Error("relay stopped with errors", zap.Error(err))
		return err
	}
	log.Info("relay stopped")
	return nil
}

func newListPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-ports",
		Short: "List available MIDI output ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports := alsa.Ports()
			if len(ports) == 0 {
				return alsa.ErrNoOutputPorts
			}
			for _, port := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), port)
			}
			return nil
		},
	}
}
