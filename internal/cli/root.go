// Package cli implements the graphdata command-line interface for inspecting
// dependency-graph indexes.
//
// # Commands
//
//   - ls: list the sources stored in an index
//   - dump: print records as JSON lines
//   - verify: decode every record and report corrupted ones
//   - stats: print record counts and sizes
//   - rm: delete the records of the given sources
//
// All commands accept --config (a TOML file, see Config) and --verbose (-v)
// for debug-level logging. Loggers are passed through context.Context.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/andreyvit/graphdata/store"
)

// Version is reported by --version.
var Version = "dev"

type app struct {
	configPath string
	verbose    bool
	cfg        Config
	logw       io.Writer
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stderr).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Logs go to logw.
func NewRootCommand(logw io.Writer) *cobra.Command {
	a := &app{logw: logw}

	root := &cobra.Command{
		Use:           "graphdata",
		Short:         "Inspect dependency-graph indexes",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			level := log.InfoLevel
			if a.verbose || cfg.Store.Verbose {
				level = log.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(a.logw, level)))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "TOML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(a.lsCommand())
	root.AddCommand(a.dumpCommand())
	root.AddCommand(a.verifyCommand())
	root.AddCommand(a.statsCommand())
	root.AddCommand(a.rmCommand())

	return root
}

func (a *app) openIndex(ctx context.Context, path string, readOnly bool) (*store.Index, error) {
	logger := loggerFromContext(ctx)
	opt := a.cfg.Store.options(readOnly)
	opt.Verbose = opt.Verbose || a.verbose
	opt.Logger = slogFor(logger)
	logger.Debug("opening index", "path", path, "read_only", opt.ReadOnly)
	return store.Open(path, nil, opt)
}
