// Package cli implements the mtlxgen command-line interface.
//
// Invoked with three arguments, mtlxgen loads the node libraries found on
// a search path, reads a MaterialX document, validates it, and writes an
// OSL shader for its first renderable element:
//
//	mtlxgen <mtlx-file> <mtlx-library-search-path> <osl-outfile>
//
// # Commands
//
// The subcommands expose the same pipeline with more control:
//   - generate: Generate OSL or GLSL shaders, one or many
//   - validate: Report validation warnings
//   - renderables: List (or interactively pick) renderable elements
//   - graph: Draw the node graph of a renderable as DOT, SVG or PNG
//   - udim: Expand a UDIM document into one document per tile
//   - serve: Run the HTTP generation API
//   - cache: Manage the shader cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mtlxgen/internal/config"
	"github.com/matzehuels/mtlxgen/pkg/buildinfo"
	"github.com/matzehuels/mtlxgen/pkg/cache"
	"github.com/matzehuels/mtlxgen/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "mtlxgen"

	// usageLine is printed when the root command gets the wrong arguments.
	usageLine = "usage: mtlxgen <mtlx-file> <mtlx-library-search-path> <osl-outfile>"
)

// ErrUsage is returned when the root command is called with the wrong
// number of arguments. Its message is the usage line.
var ErrUsage = errors.New(usageLine)

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

	// Config is loaded before any command runs.
	Config *config.Config

	// Stdout receives echoed paths and command output; Stderr receives
	// validation warnings.
	Stdout io.Writer
	Stderr io.Writer

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: &config.Config{},
		Stdout: os.Stdout,
		Stderr: w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "mtlxgen <mtlx-file> <mtlx-library-search-path> <osl-outfile>",
		Short: "mtlxgen generates shaders from MaterialX documents",
		Long: `mtlxgen loads a MaterialX document, resolves it against the node libraries
found on a search path, validates it and writes an OSL shader for its first
renderable element.

The search path lists library roots separated by the OS path list separator.
The entry "builtin" refers to the library compiled into mtlxgen.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 3 {
				return ErrUsage
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := generateOpts{forceTarget: pipeline.DefaultTarget}
			return c.runGenerate(cmd.Context(), args[0], args[1], args[2], opts)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/mtlxgen/config.toml)")

	// Register all subcommands
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.renderablesCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.udimCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	store, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(store, nil, c.Logger)
	r.ShaderTTL = c.Config.CacheTTL
	return r, nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/mtlxgen/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Output Helpers
// =============================================================================

// printValidationWarnings writes the validation report of a document.
func (c *CLI) printValidationWarnings(document, message string) {
	fmt.Fprintf(c.Stderr, "*** Validation warnings for %s ***\n", document)
	fmt.Fprint(c.Stderr, message)
}
