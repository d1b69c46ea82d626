// cmd/gcui/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"gcu-service/internal/config"
	"gcu-service/internal/protocol/factory"
	"gcu-service/internal/service"
	"gcu-service/internal/shell"
	"gcu-service/internal/utils"
)

// options are the command line actions
type options struct {
	configPath string
	write      bool
	read       bool
	filename   string
	version    bool
	pressure   bool
	pulse      bool
	console    bool
}

func (o *options) validate() error {
	if o.write && o.read {
		return errors.New("--write and --read cannot be used together")
	}
	if (o.write || o.read) && o.version {
		return errors.New("--rwversion cannot be combined with --write or --read")
	}
	if (o.write || o.read) && o.filename == "" {
		return errors.New("--filename is required with --write or --read")
	}
	return nil
}

func main() {
	flags := pflag.NewFlagSet("gcui", pflag.ExitOnError)
	var opts options
	flags.StringVar(&opts.configPath, "config", "", "path to configuration file")
	flags.StringP("port", "p", "", "the serial port to use, or tcp://host:port")
	flags.Bool("simulate", false, "use the in-memory device simulator")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.BoolVarP(&opts.write, "write", "w", false, "write the power settings to GCU")
	flags.BoolVarP(&opts.read, "read", "r", false, "read the power settings from GCU")
	flags.StringVarP(&opts.filename, "filename", "f", "", "the filename to read/write")
	flags.BoolVarP(&opts.version, "rwversion", "e", false, "read the version string from GCU")
	flags.BoolVarP(&opts.pressure, "pressure", "P", false, "read the current pressure from GCU")
	flags.BoolVarP(&opts.pulse, "pulse", "A", false, "read the current pulse duration from GCU")
	flags.BoolVar(&opts.console, "shell", false, "start the interactive console")
	flags.Parse(os.Args[1:])

	if err := opts.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flags.Usage()
		os.Exit(2)
	}

	if err := execute(&opts, flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute(opts *options, flags *pflag.FlagSet) error {
	cfg, err := config.Load(opts.configPath, flags)
	if err != nil {
		return err
	}
	// Keep stdout for command output
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer utils.CloseLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := factory.OpenClient(ctx, cfg, logger)
	if err != nil {
		return err
	}
	svc := service.NewGCUService(client, nil, nil, nil, cfg, logger)
	defer func() {
		if err := client.Link().Close(); err != nil {
			logger.Warn("Failed to close link", zap.Error(err))
		}
	}()

	if opts.console {
		err := shell.New(svc, cfg.GCU.CommandTimeout*4).Run(flags.Args()...)
		if derr := svc.Disconnect(context.WithoutCancel(ctx)); derr != nil && err == nil {
			err = derr
		}
		return err
	}
	return run(ctx, opts, svc, os.Stdout)
}

// run connects, performs the requested actions in order and disconnects
func run(ctx context.Context, opts *options, device shell.Device, out io.Writer) error {
	if err := device.Connect(ctx); err != nil {
		return err
	}

	if err := actions(ctx, opts, device, out); err != nil {
		device.Disconnect(context.WithoutCancel(ctx))
		return err
	}
	return device.Disconnect(ctx)
}

func actions(ctx context.Context, opts *options, device shell.Device, out io.Writer) error {
	if opts.write {
		if _, err := device.WriteSettingsFile(ctx, opts.filename); err != nil {
			return err
		}
	}
	if opts.read {
		if _, err := device.ReadSettings(ctx); err != nil {
			return err
		}
		if err := device.SaveSettingsFile(opts.filename); err != nil {
			return err
		}
	}
	if opts.version {
		v, err := device.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Version : %s\n", v)
	}
	if opts.pressure {
		v, err := device.Pressure(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Pressure : %d\n", v)
	}
	if opts.pulse {
		v, err := device.PulseDuration(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Pulse Duration : %d\n", v)
	}
	return nil
}
