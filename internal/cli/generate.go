package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mtlxgen/pkg/errors"
	"github.com/matzehuels/mtlxgen/pkg/observability"
	"github.com/matzehuels/mtlxgen/pkg/pipeline"
)

// generateOpts holds the flags of the generate command.
type generateOpts struct {
	target       string
	element      string
	all          bool
	udim         bool
	colorSpace   string
	distanceUnit string
	folders      []string
	noFlip       bool
	noCache      bool
	refresh      bool

	// forceTarget overrides both the flag and the config file.
	forceTarget string
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOpts

	cmd := &cobra.Command{
		Use:   "generate <mtlx-file> <mtlx-library-search-path> <outfile>",
		Short: "Generate shaders for renderable elements",
		Long: `Generate a shader for the first renderable element of a MaterialX document.

With --all or --udim several shaders are generated and <outfile> names the
directory they are written to.`,
		Example: `  # OSL shader for the first renderable
  mtlxgen generate wood.mtlx builtin wood.osl

  # GLSL for a named material
  mtlxgen generate wood.mtlx builtin wood.glsl --target genglsl --element M_wood

  # One OSL shader per renderable and UDIM tile
  mtlxgen generate tiles.mtlx /opt/materialx:builtin out/ --all --udim`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), args[0], args[1], args[2], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "implementation target: genosl, genglsl (default genosl)")
	cmd.Flags().StringVarP(&opts.element, "element", "e", "", "generate for this renderable element (name path)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "generate one shader per renderable element")
	cmd.Flags().BoolVar(&opts.udim, "udim", false, "generate one shader per UDIM tile")
	cmd.Flags().StringVar(&opts.colorSpace, "color-space", "", "target color space (default lin_rec709)")
	cmd.Flags().StringVar(&opts.distanceUnit, "distance-unit", "", "target distance unit (default meter)")
	cmd.Flags().StringSliceVar(&opts.folders, "library-folder", nil, "library folder below each search root (repeatable)")
	cmd.Flags().BoolVar(&opts.noFlip, "no-vertical-flip", false, "do not flip texture V coordinates")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "regenerate even if cached")

	return cmd
}

// pipelineOptions builds pipeline options from flags and the config file.
func (c *CLI) pipelineOptions(input, searchPath string, opts generateOpts) pipeline.Options {
	popts := pipeline.Options{
		Input:              input,
		LibrarySearchPath:  searchPath,
		LibraryFolders:     opts.folders,
		Target:             opts.target,
		Element:            opts.element,
		AllElements:        opts.all,
		ExpandUDIM:         opts.udim,
		TargetColorSpace:   opts.colorSpace,
		TargetDistanceUnit: opts.distanceUnit,
		NoVerticalFlip:     opts.noFlip,
		Refresh:            opts.refresh,
		Logger:             c.Logger,
	}
	c.Config.Apply(&popts)
	if opts.forceTarget != "" {
		popts.Target = opts.forceTarget
	}
	return popts
}

// runGenerate runs the pipeline and writes the generated shaders.
func (c *CLI) runGenerate(ctx context.Context, input, searchPath, output string, opts generateOpts) error {
	fmt.Fprintf(c.Stdout, "\n%s\n%s\n\n", input, output)

	// Several shaders go into the directory named by output.
	multi := opts.all || opts.udim
	check := output
	if multi {
		check = filepath.Clean(output)
	}
	if err := errors.ValidateOutputPath(check); err != nil {
		return err
	}

	popts := c.pipelineOptions(input, searchPath, opts)
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, c.Stderr, "Generating shaders...")
	prev := observability.Pipeline()
	observability.SetPipelineHooks(spinner)
	spinner.Start()
	result, err := runner.Execute(ctx, popts)
	observability.SetPipelineHooks(prev)
	if err != nil {
		spinner.StopWithError("Generation failed")
	} else {
		spinner.Stop()
	}

	if result != nil && !result.Valid {
		c.printValidationWarnings(filepath.Base(input), result.Warnings)
	}
	if err != nil {
		return err
	}

	var written []string
	if multi {
		written, err = writeArtifacts(output, result.Shaders)
	} else {
		err = writeShader(output, result.Shaders[0].Source)
		written = []string{output}
	}
	if err != nil {
		return err
	}
	prog.done("Generated " + pluralize(len(written), "shader"))

	for _, a := range result.Shaders {
		for _, w := range a.Warnings {
			printWarning("%s: %s", a.Element, w)
		}
	}
	printSuccess("Generated %s %s", popts.Target, pluralize(len(written), "shader"))
	for _, path := range written {
		printFile(path)
	}
	printStats(result.Stats.ElementCount, result.Stats.ShaderCount, result.CacheInfo.GenerateHit)
	return nil
}

// writeArtifacts writes every artifact into dir under its suggested name.
func writeArtifacts(dir string, shaders []pipeline.Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory %s", dir)
	}
	paths := make([]string, 0, len(shaders))
	for _, a := range shaders {
		path := filepath.Join(dir, a.FileName)
		if err := writeShader(path, a.Source); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeShader(path, source string) error {
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write shader %s", path)
	}
	return nil
}

func pluralize(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
