// Command gherkin-lsp indexes Gherkin step definitions and serves
// completion, definition and diagnostics to editors over LSP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jarredhawkins/gherkin-lsp/internal/config"
	"github.com/jarredhawkins/gherkin-lsp/internal/lsp"
	"github.com/jarredhawkins/gherkin-lsp/internal/workspace"
)

// Version information, injected at build time.
var Version = "dev"

// globalFlags are shared by every subcommand
type globalFlags struct {
	root    string
	logFile string
	debug   bool

	logger *zap.Logger
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd creates the root command. Without a subcommand it serves LSP.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "gherkin-lsp",
		Short:         "Language server for Gherkin feature files and their step definitions",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return flags.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if flags.logger != nil {
				_ = flags.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&flags.root, "root", "", "Root path of the project (defaults to current directory)")
	root.PersistentFlags().StringVar(&flags.logFile, "log", "", "Log file path (defaults to stderr)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	serve := newServeCmd(flags)
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newStepsCmd(flags))
	root.AddCommand(newCheckCmd(flags))
	return root
}

// setup resolves the root and builds the logger. Logs never go to stdout,
// which carries the protocol.
func (f *globalFlags) setup() error {
	if f.root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		f.root = wd
	}
	root, err := filepath.Abs(f.root)
	if err != nil {
		return fmt.Errorf("failed to resolve root %s: %w", f.root, err)
	}
	f.root = root

	cfg := zap.NewProductionConfig()
	if f.logFile != "" {
		cfg.OutputPaths = []string{f.logFile}
		cfg.ErrorOutputPaths = []string{f.logFile}
	}
	if f.debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	f.logger = logger
	return nil
}

// loadWorkspace builds and indexes the workspace for the batch commands
func (f *globalFlags) loadWorkspace() (*workspace.Workspace, *workspace.Report, error) {
	cfg, err := config.LoadFromDir(f.root)
	if err != nil {
		return nil, nil, err
	}
	ws, err := workspace.New(f.root, cfg, nil, f.logger)
	if err != nil {
		return nil, nil, err
	}
	return ws, ws.Build(), nil
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve LSP over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := flags.logger
			logger.Info("gherkin-lsp starting", zap.String("root", flags.root), zap.String("version", Version))

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			server := lsp.NewServer(lsp.Options{
				Root:    flags.root,
				Watch:   !noWatch,
				Version: Version,
			}, logger)

			err := server.Serve(ctx, os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("LSP server error: %w", err)
			}

			logger.Info("gherkin-lsp shutdown complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not watch the workspace for file changes")
	return cmd
}
