// Package cli implements the stepgrid command-line interface.
//
// Documents are JSON files holding a traced program's timeline and the
// entities placed on its board. Commands edit a document in place, resolve
// it to per-step plans, step through it in the terminal, or serve it over
// HTTP.
//
// # Commands
//
//   - new: Create a document, optionally from tracer output
//   - place, move, clear, set: Edit the entities of a document
//   - resolve: Resolve steps to JSON or text plans
//   - validate: Report entities whose bindings break at some step
//   - play: Step through the timeline interactively
//   - serve: Serve a document over the read-only HTTP API
//   - store: Push, pull and list documents in the configured store
//   - cache: Manage the plan cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stepgrid/pkg/binding"
	"github.com/matzehuels/stepgrid/pkg/buildinfo"
	"github.com/matzehuels/stepgrid/pkg/cache"
	"github.com/matzehuels/stepgrid/pkg/config"
	"github.com/matzehuels/stepgrid/pkg/docstore"
	"github.com/matzehuels/stepgrid/pkg/document"
	"github.com/matzehuels/stepgrid/pkg/expr"
	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "stepgrid"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Stepgrid binds grid objects to the variables of a traced program",
		Long:         `Stepgrid places shapes, arrays, labels and panels on a grid whose positions and sizes are formulas over a program's variables, and resolves them at every step of its execution trace.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/stepgrid/stepgrid.toml)")

	root.AddCommand(c.newCommand())
	root.AddCommand(c.placeCommand())
	root.AddCommand(c.moveCommand())
	root.AddCommand(c.clearCommand())
	root.AddCommand(c.setCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.playCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	registerCompletions(root)

	return root
}

// =============================================================================
// Factories
// =============================================================================

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(ch, nil, loggerFromContext(ctx))
	r.TTL = c.Config.Cache.TTL
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		cfg := c.Config.Cache
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	dir, err := c.cacheDir()
	if err != nil {
		loggerFromContext(ctx).Warn("plan cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newDocStore opens the configured document store.
func (c *CLI) newDocStore(ctx context.Context) (docstore.Store, error) {
	cfg := c.Config.Store
	if cfg.Backend == config.BackendMongo {
		return docstore.NewMongoStore(ctx, docstore.MongoOptions{
			URI:        cfg.MongoURI,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		})
	}
	return docstore.NewFileStore(cfg.Dir)
}

// resolver returns the binding resolver for d: its own board with the
// configured parser limits.
func (c *CLI) resolver(d *document.Document) *binding.Resolver {
	return binding.NewResolver(d.Bounds(), expr.NewCache(c.Config.Expr.Options()))
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the user cache
// directory (~/.cache/stepgrid/ on Linux).
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cache.DefaultDir()
}

// =============================================================================
// Flag Helpers
// =============================================================================

// parseCellFlag parses a "row,col" flag value.
func parseCellFlag(name, s string) (layout.Cell, error) {
	if s == "" {
		return layout.Cell{}, fmt.Errorf("--%s is required", name)
	}
	cell, err := layout.ParseCell(s)
	if err != nil {
		return layout.Cell{}, fmt.Errorf("--%s: %w", name, err)
	}
	return cell, nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatText}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
