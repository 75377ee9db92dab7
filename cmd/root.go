// Package cmd wires the node engine to the command line: flag parsing,
// config validation, and process-level logging setup (spec.md §1's
// "command-line argument parsing" and "log file formatting", explicitly
// out of the core engine's scope).
package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kprusa/rpfmesh/internal/config"
	"github.com/kprusa/rpfmesh/internal/engine"
	"github.com/kprusa/rpfmesh/internal/metrics"
	"github.com/kprusa/rpfmesh/internal/transport"
	"github.com/kprusa/rpfmesh/internal/wire"
)

var (
	flagID             int
	flagDuration       int
	flagMode           string
	flagSendString     string
	flagObservedSender int
	flagWorkDir        string
	flagInboundFile    string
	flagOutboundFile   string
	flagVerbose        bool
)

// rootCmd is the base command when the binary is invoked with no
// subcommands: it runs exactly one node for the configured duration,
// reading from/writing to a pair of transport files it shares with an
// external controller process.
var rootCmd = &cobra.Command{
	Use:          "rpfmesh-node",
	Short:        "Runs one node of the reverse-path multicast mesh simulation.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.IntVar(&flagID, "id", -1, "this node's id, in [0, MAX_NODES)")
	flags.IntVar(&flagDuration, "duration", 0, "number of ticks to run")
	flags.StringVar(&flagMode, "mode", "forwarder", "forwarder|sender|receiver")
	flags.StringVar(&flagSendString, "send-string", "", "payload a sender emits every DATA_PERIOD ticks")
	flags.IntVar(&flagObservedSender, "observed-sender", -1, "root id a receiver wants traffic from")
	flags.StringVar(&flagWorkDir, "workdir", ".", "directory holding received-payload sinks")
	flags.StringVar(&flagInboundFile, "inbound", "", "path to the inbound transport file")
	flags.StringVar(&flagOutboundFile, "outbound", "", "path to the outbound transport file")
	flags.BoolVar(&flagVerbose, "verbose", false, "enable debug-level logging")
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("node exited with error")
	}
}

func run() error {
	log := logrus.New()
	if flagVerbose {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := log.WithField("run_id", uuid.New())

	mode, err := config.ParseMode(flagMode)
	if err != nil {
		return errors.Wrap(err, "configuration error")
	}

	cfg := config.NodeConfig{
		ID:             wire.NodeID(flagID),
		Mode:           mode,
		Duration:       flagDuration,
		SendString:     flagSendString,
		ObservedSender: wire.NodeID(flagObservedSender),
		WorkDir:        flagWorkDir,
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration error")
	}

	if flagInboundFile == "" || flagOutboundFile == "" {
		return errors.New("configuration error: --inbound and --outbound are required")
	}

	stream, err := transport.OpenFileStream(flagInboundFile, flagOutboundFile)
	if err != nil {
		return errors.Wrap(err, "open transport files")
	}
	defer stream.Close()

	sinks, err := transport.NewSinks(filepath.Join(flagWorkDir, "received"))
	if err != nil {
		return errors.Wrap(err, "open received sinks")
	}
	defer sinks.Close()

	mx := metrics.New(nil, cfg.ID.String())
	eng := engine.NewEngine(cfg, stream, sinks, mx, entry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng.Run(ctx)
	return nil
}
