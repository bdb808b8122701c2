package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mtlxgen/pkg/cache"
	"github.com/matzehuels/mtlxgen/pkg/pipeline"
	"github.com/matzehuels/mtlxgen/pkg/server"
)

// serveOpts holds the flags of the serve command.
type serveOpts struct {
	addr             string
	redisAddr        string
	maxDocumentBytes int64
	searchPath       string
	folders          []string
	noCache          bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP generation API",
		Long: `Run the HTTP generation API.

Shaders are cached in Redis when --redis (or serve.redis_addr in the config
file) is set, and in the local file cache otherwise.`,
		Example: `  mtlxgen serve --addr :9000
  mtlxgen serve --redis localhost:6379 --library-search-path /opt/materialx:builtin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "redis address for the shared shader cache")
	cmd.Flags().Int64Var(&opts.maxDocumentBytes, "max-document-bytes", 0, "request body limit (default 4 MiB)")
	cmd.Flags().StringVar(&opts.searchPath, "library-search-path", "", "library search path (default builtin)")
	cmd.Flags().StringSliceVar(&opts.folders, "library-folder", nil, "library folder below each search root (repeatable)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

// applyServeConfig fills empty flags from the config file.
func (c *CLI) applyServeConfig(opts *serveOpts) {
	if opts.addr == "" {
		opts.addr = c.Config.Serve.Addr
	}
	if opts.redisAddr == "" {
		opts.redisAddr = c.Config.Serve.RedisAddr
	}
	if opts.maxDocumentBytes == 0 {
		opts.maxDocumentBytes = c.Config.Serve.MaxDocumentBytes
	}
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	c.applyServeConfig(&opts)

	popts := c.pipelineOptions("", opts.searchPath, generateOpts{folders: opts.folders})

	var runner *pipeline.Runner
	if opts.redisAddr != "" && !opts.noCache {
		rc, err := cache.NewRedisCache(ctx, opts.redisAddr)
		if err != nil {
			return err
		}
		runner = pipeline.NewRunner(rc, cache.NewScopedKeyer(cache.NewDefaultKeyer(), appName+":v1:"), c.Logger)
		runner.ShaderTTL = c.Config.CacheTTL
		c.Logger.Info("using redis cache", "addr", opts.redisAddr)
	} else {
		var err error
		if runner, err = c.newRunner(opts.noCache); err != nil {
			return err
		}
	}
	defer runner.Close()

	srv := server.New(runner, server.Config{
		Addr:               opts.addr,
		MaxDocumentBytes:   opts.maxDocumentBytes,
		LibrarySearchPath:  popts.LibrarySearchPath,
		LibraryFolders:     popts.LibraryFolders,
		TargetColorSpace:   popts.TargetColorSpace,
		TargetDistanceUnit: popts.TargetDistanceUnit,
		Logger:             c.Logger,
	})
	return srv.ListenAndServe(ctx)
}
