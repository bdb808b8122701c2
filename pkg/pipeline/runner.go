package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mtlxgen/pkg/cache"
	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/observability"
	"github.com/matzehuels/mtlxgen/pkg/shadergen"
	"github.com/matzehuels/mtlxgen/pkg/shadergen/glsl"
	"github.com/matzehuels/mtlxgen/pkg/shadergen/osl"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner does not store pipeline results. Loaded libraries are memoised
// per search path and folder list, so multiple goroutines can safely use the
// same Runner with different options.
type Runner struct {
	Cache      cache.Cache
	Keyer      cache.Keyer
	Logger     *log.Logger
	Generators *shadergen.Registry

	// ShaderTTL overrides cache.TTLShader when positive.
	ShaderTTL time.Duration

	mu        sync.Mutex
	libraries map[string]*library
}

// library is a loaded set of node definitions and the files their
// implementations are read from.
type library struct {
	doc  *mtlx.Document
	fsys fs.FS
	hash string
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:      c,
		Keyer:      keyer,
		Logger:     logger,
		Generators: shadergen.NewRegistry(osl.New(), glsl.New()),
		libraries:  make(map[string]*library),
	}
}

// Execute runs the complete load → validate → generate pipeline with caching.
// Validation problems are reported in the result and never stop the run.
// When generation fails the result of the earlier stages is returned along
// with the error so callers can still report the validation outcome.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)

	// Stage 1: Load
	loadStart := time.Now()
	loaded, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	result := &Result{Document: loaded.Name}
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.ElementCount = len(loaded.Document.LocalElements())

	r.Logger.Debug("loaded document",
		"document", loaded.Name,
		"elements", result.Stats.ElementCount,
		"duration", result.Stats.LoadTime)

	// Stage 2: Validate
	validateStart := time.Now()
	valid, msg, validateHit := r.ValidateWithCacheInfo(ctx, loaded)
	result.Valid = valid
	result.Warnings = msg
	result.Stats.ValidateTime = time.Since(validateStart)
	result.CacheInfo.ValidateHit = validateHit

	if !valid {
		r.Logger.Debug("document has validation warnings", "document", loaded.Name)
	}

	// Stage 3: Generate
	generateStart := time.Now()
	shaders, generateHit, err := r.GenerateWithCacheInfo(ctx, loaded, opts)
	if err != nil {
		return result, err
	}
	result.Shaders = shaders
	result.Stats.ShaderCount = len(shaders)
	result.Stats.GenerateTime = time.Since(generateStart)
	result.CacheInfo.GenerateHit = generateHit

	r.Logger.Debug("generated shaders",
		"target", opts.Target,
		"shaders", len(shaders),
		"cached", generateHit,
		"duration", result.Stats.GenerateTime)

	return result, nil
}

// ValidateWithCacheInfo validates a loaded document and reports whether the
// outcome came from the cache.
func (r *Runner) ValidateWithCacheInfo(ctx context.Context, loaded *Loaded) (bool, string, bool) {
	type report struct {
		Valid   bool   `json:"valid"`
		Message string `json:"message"`
	}
	key := r.Keyer.DocumentKey(loaded.DocumentHash, loaded.LibraryHash)

	var rep report
	hit := r.cacheGet(ctx, "document", key, &rep)
	if !hit {
		rep.Valid, rep.Message = loaded.Document.Validate()
		r.cacheSet(ctx, "document", key, rep, cache.TTLDocument)
	}
	observability.Pipeline().OnValidate(ctx, loaded.Name, rep.Valid, countLines(rep.Message))
	return rep.Valid, rep.Message, hit
}

// Validate is a convenience wrapper that calls ValidateWithCacheInfo and discards the cache hit info.
func (r *Runner) Validate(ctx context.Context, loaded *Loaded) (bool, string) {
	valid, msg, _ := r.ValidateWithCacheInfo(ctx, loaded)
	return valid, msg
}

// GenerateWithCacheInfo generates shaders with caching and returns cache hit info.
func (r *Runner) GenerateWithCacheInfo(ctx context.Context, loaded *Loaded, opts Options) ([]Artifact, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	key := r.Keyer.ShaderKey(loaded.DocumentHash, loaded.LibraryHash, opts.ShaderKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		var cached []Artifact
		if r.cacheGet(ctx, "shader", key, &cached) && len(cached) > 0 {
			return cached, true, nil
		}
	}

	shaders, err := r.generate(ctx, loaded, opts)
	if err != nil {
		return nil, false, err
	}
	ttl := cache.TTLShader
	if r.ShaderTTL > 0 {
		ttl = r.ShaderTTL
	}
	r.cacheSet(ctx, "shader", key, shaders, ttl)
	return shaders, false, nil
}

// Generate is a convenience wrapper that calls GenerateWithCacheInfo and discards the cache hit info.
func (r *Runner) Generate(ctx context.Context, loaded *Loaded, opts Options) ([]Artifact, error) {
	shaders, _, err := r.GenerateWithCacheInfo(ctx, loaded, opts)
	return shaders, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// cacheGet decodes a cached JSON value into v. Cache failures count as misses.
func (r *Runner) cacheGet(ctx context.Context, keyType, key string, v any) bool {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Debug("cache read failed", "key", key, "err", err)
	}
	if err != nil || !hit || json.Unmarshal(data, v) != nil {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return true
}

// cacheSet stores v as JSON. Errors are logged and otherwise ignored.
func (r *Runner) cacheSet(ctx context.Context, keyType, key string, v any, ttl time.Duration) {
	if !cache.Enabled(r.Cache) {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Debug("cache write failed", "key", key, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

func countLines(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

// libraryKey identifies a memoised library load.
func libraryKey(searchPath string, folders []string) string {
	return fmt.Sprintf("%s|%s", searchPath, strings.Join(folders, ","))
}
