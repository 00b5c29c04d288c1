package cmd

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbnav/pkg/catalog"
	"dbnav/pkg/config"
)

func newRootCmd() *cobra.Command {
	var connectURI string
	var cfgPath string
	var debugLog string

	cmd := &cobra.Command{
		Use:           "dbnav",
		Short:         "Browse databases, tables and rows of a SQL store from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(cfgPath)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config %s: %w", path, err)
			}
			if connectURI == "" {
				connectURI = cfg.Options.ConnectURI
			}
			if connectURI == "" {
				return fmt.Errorf("a connection URI is required (--connect or connect_uri in %s)", path)
			}
			if debugLog == "" {
				debugLog = cfg.Options.DebugLog
			}
			logger, err := newLogger(debugLog)
			if err != nil {
				return fmt.Errorf("open debug log: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			timeout := cfg.Options.QueryTimeout()
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			store, err := catalog.Open(ctx, connectURI, logger)
			cancel()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			// The top-level database list is fetched once, before the
			// event loop starts, and reused for the whole session.
			ctx, cancel = context.WithTimeout(cmd.Context(), timeout)
			databases, err := store.ListDatabases(ctx)
			cancel()
			if err != nil {
				return err
			}

			m := newBrowseModel(store, databases, cfg.Options, logger)
			p := tea.NewProgram(m, tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("terminal event loop: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&connectURI, "connect", "c", "", "Store connection URI (postgres://, mysql://, sqlite://)")
	cmd.Flags().StringVar(&cfgPath, "config", "", "Path to config file (default project .dbnav.yml else ~/.dbnav/config.yml)")
	cmd.Flags().StringVar(&debugLog, "debug", "", "Write debug logs to the given file")

	return cmd
}

// newLogger builds a file-backed debug logger. stdout belongs to the
// TUI, so without a file path logging is a no-op.
func newLogger(path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
