package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/itsneelabh/evel"
	"github.com/itsneelabh/evel/core"
	"github.com/itsneelabh/evel/telemetry"
)

// demoFlags holds the command line of one run.
type demoFlags struct {
	FQDN       string
	Port       int
	Path       string
	Topic      string
	HTTPS      bool
	Cycles     int
	Interval   time.Duration
	Verbose    bool
	Username   string
	Password   string
	ConfigFile string
	Trace      string
	OTLP       string
	HealthAddr string
}

func newRootCmd() *cobra.Command {
	flags := &demoFlags{}

	cmd := &cobra.Command{
		Use:   "evel-demo",
		Short: "Demonstrate use of the Vendor Event Listener API",
		Long: `Posts a heartbeat, a fault, a measurement and a report to the collector
once per cycle, waiting between cycles, then drains the event queue and exits.
Interrupt to stop early; queued events are still delivered.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return flags.validate(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.FQDN, "fqdn", "f", "", "FQDN or IP address of the collector")
	f.IntVarP(&flags.Port, "port", "n", 0, "Port number of the collector")
	f.StringVarP(&flags.Path, "path", "p", "", "Optional path prefix of the collector API")
	f.StringVarP(&flags.Topic, "topic", "t", "", "Optional topic part of the collector API")
	f.BoolVarP(&flags.HTTPS, "https", "s", false, "Use HTTPS rather than HTTP")
	f.IntVarP(&flags.Cycles, "cycles", "c", 1, "Loop this many times round the main loop")
	f.DurationVar(&flags.Interval, "interval", 10*time.Second, "Pause between cycles")
	f.BoolVarP(&flags.Verbose, "verbose", "v", false, "Generate much chattier logs")
	f.StringVar(&flags.Username, "username", "", "Basic authentication user")
	f.StringVar(&flags.Password, "password", "", "Basic authentication password")
	f.StringVar(&flags.ConfigFile, "config", "", "YAML or JSON configuration file")
	f.StringVar(&flags.Trace, "trace", "", "Export library spans: stdout or otlp")
	f.StringVar(&flags.OTLP, "otlp-endpoint", "localhost:4317", "OTLP gRPC endpoint used with --trace otlp")
	f.StringVar(&flags.HealthAddr, "health-addr", "", "Serve the handler health on this address, e.g. :8080")

	return cmd
}

func (f *demoFlags) validate(cmd *cobra.Command) error {
	// With a config file the collector may come from the file instead.
	if f.ConfigFile == "" {
		if f.FQDN == "" {
			return errors.New("--fqdn is required")
		}
		if !cmd.Flags().Changed("port") {
			return errors.New("--port is required")
		}
	}
	if cmd.Flags().Changed("port") && (f.Port < 1 || f.Port > 65535) {
		return fmt.Errorf("--port must be between 1 and 65535, got %d", f.Port)
	}
	if f.Cycles <= 0 {
		return fmt.Errorf("--cycles must be an integer greater than zero, got %d", f.Cycles)
	}
	if f.Interval < 0 {
		return fmt.Errorf("--interval must not be negative")
	}
	switch f.Trace {
	case "", telemetry.ExporterStdout, telemetry.ExporterOTLP:
	default:
		return fmt.Errorf("--trace must be %q or %q", telemetry.ExporterStdout, telemetry.ExporterOTLP)
	}
	return nil
}

// options turns the flags into configuration options. The file, when
// given, is applied first so explicit flags override it.
func (f *demoFlags) options(cmd *cobra.Command) []core.Option {
	var opts []core.Option
	if f.ConfigFile != "" {
		opts = append(opts, core.WithConfigFile(f.ConfigFile))
	}
	switch {
	case f.FQDN != "" && cmd.Flags().Changed("port"):
		opts = append(opts, core.WithCollector(f.FQDN, f.Port))
	case f.FQDN != "":
		opts = append(opts, func(c *core.Config) error {
			c.Collector.FQDN = f.FQDN
			return nil
		})
	case cmd.Flags().Changed("port"):
		opts = append(opts, func(c *core.Config) error {
			c.Collector.Port = f.Port
			return nil
		})
	}
	if f.Path != "" {
		opts = append(opts, core.WithPath(f.Path))
	}
	if f.Topic != "" {
		opts = append(opts, core.WithTopic(f.Topic))
	}
	if f.HTTPS {
		opts = append(opts, core.WithSecure(true))
	}
	if f.Username != "" {
		opts = append(opts, core.WithBasicAuth(f.Username, f.Password))
	}
	if f.Verbose {
		opts = append(opts, core.WithVerbosity(1))
	}
	opts = append(opts,
		core.WithSourceType(evel.SourceVirtualMachine.String()),
		core.WithFunctionalRole("EVEL demo client"),
	)
	return opts
}

func run(cmd *cobra.Command, flags *demoFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if flags.Trace != "" {
		tp, err := telemetry.NewTracerProvider(ctx, telemetry.TracerConfig{
			ServiceName:    "evel-demo",
			ServiceVersion: evel.Version,
			Exporter:       flags.Trace,
			Endpoint:       flags.OTLP,
			Writer:         cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	cfg, err := core.NewConfig(flags.options(cmd)...)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s\n", cmd.Name(), evel.Version)
	if err := evel.InitializeWithConfig(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize the EVEL library: %w", err)
	}

	if flags.HealthAddr != "" {
		server := &http.Server{
			Addr:              flags.HealthAddr,
			Handler:           evel.HealthHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(cmd.ErrOrStderr(), "health server: %v\n", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = server.Shutdown(sctx)
		}()
	}

	fmt.Fprintf(out, "Starting %d loops...\n", flags.Cycles)
loop:
	for cycle := 1; cycle <= flags.Cycles; cycle++ {
		fmt.Fprintln(out, "Starting main loop")
		postCycle(out)

		if cycle == flags.Cycles {
			break
		}
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Interrupted")
			break loop
		case <-time.After(flags.Interval):
		}
	}

	grace := cfg.TerminateGrace
	if grace <= 0 {
		grace = core.DefaultTerminateGrace
	}
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := evel.Shutdown(sctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Queue not drained: %v\n", err)
	}

	fmt.Fprintln(out, "All done - exiting!")
	return nil
}
