// Command chordring runs one Chord process: a configurable number of
// virtual nodes sharing a single listening socket, speaking the text
// wire protocol to peers and operators alike.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abentley/chordring/internal/chordring"
	"github.com/abentley/chordring/internal/config"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port                 uint16
		host                 string
		outputBufferSize     int
		stabilizeFrequencyMS uint64
		idBits               int
		virtualNodeNumber    int
	)

	cmd := &cobra.Command{
		Use:   "chordring",
		Short: "Run a Chord distributed hash table node",
		RunE: func(cmd *cobra.Command, args []string) error {
			// config.New reads a zero field as "unset" and substitutes its
			// default, so an explicit zero on the command line is rejected here.
			if outputBufferSize == 0 {
				return fmt.Errorf("config: --output-buffer-size must be > 0, got 0")
			}
			if idBits == 0 {
				return fmt.Errorf("config: --id-bits must be >= 8, got 0")
			}
			if virtualNodeNumber == 0 {
				return fmt.Errorf("config: --virtual-node-number must be in 1..=32, got 0")
			}
			cfg, err := config.New(config.Config{
				Port:               port,
				Host:               host,
				OutputBufferSize:   outputBufferSize,
				StabilizeFrequency: time.Duration(stabilizeFrequencyMS) * time.Millisecond,
				IDBits:             idBits,
				VirtualNodeNumber:  virtualNodeNumber,
			})
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	// Flag names mirror original_source's Params struct field names, per
	// spec.md §6.1. --stabilize-frequency is a bare u64 count of
	// milliseconds there (not a cobra/pflag Duration string), so it is
	// bound as Uint64Var rather than DurationVar to keep the same
	// "--stabilize-frequency 1000" invocation the spec's type implies.
	flags := cmd.Flags()
	flags.Uint16Var(&port, "port", config.DefaultPort, "TCP port to listen on")
	flags.StringVar(&host, "host", "", "IP address to listen on and advertise (default: first non-loopback IPv4)")
	flags.IntVar(&outputBufferSize, "output-buffer-size", config.DefaultOutputBufferSize, "per-connection read/write buffer size in bytes")
	flags.Uint64Var(&stabilizeFrequencyMS, "stabilize-frequency", uint64(config.DefaultStabilizeFrequency/time.Millisecond), "interval between stabilize/fix_fingers passes, in milliseconds")
	flags.IntVar(&idBits, "id-bits", config.DefaultIDBits, "width in bits of the ring identifier space")
	flags.IntVar(&virtualNodeNumber, "virtual-node-number", config.DefaultVirtualNodeNumber, "number of virtual nodes this process hosts")

	return cmd
}

func run(cfg config.Config) error {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	logger = level.NewFilter(logger, level.AllowInfo())
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	registry := prometheus.NewRegistry()
	srv := chordring.NewServer(cfg, logger, registry)

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("chordring: %w", err)
	}
	level.Info(logger).Log("msg", "ready", "addr", srv.Addr().String())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	level.Info(logger).Log("msg", "shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("chordring: shutdown: %w", err)
	}
	return nil
}
