// Package cli implements the sigfetch command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mstlab/sigfetch/internal/cache"
	"github.com/mstlab/sigfetch/internal/config"
	"github.com/mstlab/sigfetch/internal/fetch"
	"github.com/mstlab/sigfetch/internal/logging"
	"github.com/mstlab/sigfetch/internal/pool"
	"github.com/mstlab/sigfetch/internal/shot"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// app holds the wired-up components shared by all subcommands, built in
// setup once the persistent flags are known.
type app struct {
	router  *shot.Router
	store   *cache.Store
	pool    *pool.Manager
	fetcher *fetch.Fetcher
	logRes  logging.Result
}

// NewRootCmd creates the root Cobra command for the sigfetch CLI.
func NewRootCmd(version string) *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "sigfetch",
		Short: "Cached access to MST signal data",
		Long: "sigfetch retrieves MST measurement signals from the MDSplus servers,\n" +
			"routing each shot to the server that holds it and caching results on disk.",
		Version: version,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file (default ~/.sigfetch/config.yaml)")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().Bool("no-cache", false, "bypass the result cache entirely")
	cmd.PersistentFlags().StringP("tree", "t", fetch.DefaultTree, "tree to query")

	cmd.AddCommand(newSignalCmd(a), newUnitsCmd(a), newShotCmd(a), newCacheCmd(a), newBrowseCmd(a))

	return cmd
}

// setup loads config, configures logging, and wires the component graph.
func (a *app) setup(cmd *cobra.Command) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logCfg := logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logCfg.Level = "debug"
		logCfg.Format = "console"
		logCfg.File = ""
	}

	a.logRes, err = logging.New(logCfg, func() bool { return isTerminal(os.Stderr) })
	if err != nil {
		return err
	}

	ctx := a.logRes.Logger.WithContext(cmd.Context())
	ctx = logging.ContextWithTraceID(ctx, logging.NewTraceID())
	cmd.SetContext(ctx)

	cacheDir, err := cfg.CacheDir()
	if err != nil {
		return err
	}
	a.store, err = cache.NewStore(cacheDir, a.logRes.Logger)
	if err != nil {
		return err
	}

	a.router = shot.NewRouter(cfg.Servers.Current, cfg.Servers.Archive)
	a.pool = pool.NewManager(a.router, pool.DialMDSip)
	a.fetcher = fetch.New(a.pool, a.store)

	log := logging.ComponentLogger(a.logRes.Logger, "cli")
	log.Debug().
		Str("trace_id", logging.TraceIDFromContext(ctx)).
		Str("command", cmd.Name()).
		Str("cache_dir", cacheDir).
		Msg("command started")

	return nil
}

// teardown closes live sessions and the log file.
func (a *app) teardown(cmd *cobra.Command) error {
	if a.pool != nil {
		if err := a.pool.Close(); err != nil {
			logging.FromContext(cmd.Context()).Warn().Err(err).Msg("closing sessions")
		}
	}
	return a.logRes.Close()
}

// query assembles a fetch.Query from the persistent flags plus arguments.
func (a *app) query(cmd *cobra.Command, shotNum int64, signal string) fetch.Query {
	tree, _ := cmd.Flags().GetString("tree")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	return fetch.Query{Shot: shotNum, Signal: signal, Tree: tree, NoCache: noCache}
}

const rootCmdExample = `  # Fetch the plasma current for a shot and print a summary
  sigfetch signal 1140101001 ip

  # Dump a signal as CSV, bypassing the cache
  sigfetch signal 1140101001 ip --csv --no-cache

  # Units recorded for a signal
  sigfetch units 1140101001 ip

  # Decode a shot number, or find today's shot range
  sigfetch shot info 1140101001
  sigfetch shot range today

  # Inspect or prune the local result cache
  sigfetch cache ls
  sigfetch cache clear

  # Browse cached entries interactively
  sigfetch browse`
