// Package cli implements the cns-orchestrator command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/cnscp/cns-orchestrator/internal/config"
	"github.com/cnscp/cns-orchestrator/internal/console"
	"github.com/cnscp/cns-orchestrator/internal/engine"
	"github.com/cnscp/cns-orchestrator/internal/metrics"
	"github.com/cnscp/cns-orchestrator/internal/store"
)

// Version is the orchestrator release version.
const Version = "1.0.0"

// Options holds the command-line flags.
type Options struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Monochrome  bool
	Silent      bool
	Debug       bool
	ConfigFile  string
	MetricsAddr string
}

// NewRootCommand creates the cns-orchestrator command. The returned
// Options are bound to the command's flags.
func NewRootCommand() (*cobra.Command, *Options) {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "cns-orchestrator",
		Short: "Reconciling controller for the cns configuration store",
		Long: `cns-orchestrator watches the cns key namespace and continuously brings
the connections subtree into agreement with the declared provider and
consumer capabilities, propagating property values across established
connections according to per-property directionality.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Host, "host", "H", "", "store host")
	cmd.Flags().IntVarP(&opts.Port, "port", "P", config.DefaultPort, "store port")
	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "store auth username")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "store auth password")
	cmd.Flags().BoolVarP(&opts.Monochrome, "monochrome", "m", false, "disable ANSI colour")
	cmd.Flags().BoolVarP(&opts.Silent, "silent", "s", false, "suppress non-error console output")
	cmd.Flags().BoolVarP(&opts.Debug, "debug", "d", false, "emit debug traces")
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "YAML config file")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")

	cmd.SetFlagErrorFunc(flagError)

	return cmd, opts
}

// flagError rewrites pflag parse failures into the orchestrator's
// invocation errors.
func flagError(_ *cobra.Command, err error) error {
	msg := err.Error()
	arg := msg
	if idx := strings.LastIndex(msg, " in "); idx >= 0 {
		arg = msg[idx+len(" in "):]
	} else if idx := strings.Index(msg, ": "); idx >= 0 {
		arg = msg[idx+len(": "):]
	}

	if strings.Contains(msg, "needs an argument") {
		return NewExitError(ExitFailure, "Missing argument: "+arg)
	}
	return NewExitError(ExitFailure, "Illegal option: "+arg)
}

// Resolve merges defaults, the optional config file, the environment,
// and the flags that were explicitly set, flags winning.
func Resolve(cmd *cobra.Command, opts *Options) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigFile != "" {
		if err := cfg.LoadFile(opts.ConfigFile); err != nil {
			return cfg, err
		}
	}
	if err := cfg.LoadEnv(); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = opts.Host
	}
	if flags.Changed("port") {
		cfg.Port = opts.Port
	}
	if flags.Changed("username") {
		cfg.Username = opts.Username
	}
	if flags.Changed("password") {
		cfg.Password = opts.Password
	}
	return cfg, nil
}

func run(cmd *cobra.Command, opts *Options) error {
	slog.SetDefault(slog.New(console.NewHandler(console.Options{
		Monochrome: opts.Monochrome,
		Silent:     opts.Silent,
		Debug:      opts.Debug,
	})))

	cfg, err := Resolve(cmd, opts)
	if err != nil {
		return WrapExitError(ExitFailure, "configuration", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parentCtx)
	defer cancel(nil)

	client, err := store.Connect(ctx, store.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "connect", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			slog.Error("error closing store client", "error", closeErr)
		}
	}()
	slog.Info("connected", "endpoint", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig.String())
			cancel(errAborted)
		case <-ctx.Done():
		}
	}()

	if opts.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, opts.MetricsAddr); err != nil {
				slog.Error("metrics listener failed", "addr", opts.MetricsAddr, "error", err)
			}
		}()
		slog.Info("metrics listening", "addr", opts.MetricsAddr)
	}

	eng := engine.New(client)
	err = eng.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if errors.Is(context.Cause(ctx), errAborted) {
			return NewExitError(ExitFailure, "aborted")
		}
		return nil
	}
	if err != nil {
		return WrapExitError(ExitFailure, "engine", err)
	}
	return nil
}

// errAborted marks a signal-initiated shutdown; per the exit-code
// contract a SIGINT abort exits 1.
var errAborted = errors.New("aborted by signal")

// Execute runs the command and exits the process with the proper code.
// Errors print to stderr in red unless monochrome output is forced.
func Execute() {
	cmd, opts := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		msg := err.Error()
		if !opts.Monochrome && isatty.IsTerminal(os.Stderr.Fd()) {
			msg = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(msg)
		}
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(GetExitCode(err))
	}
}
