package cli

import (
	"bytes"
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mtlxgen/pkg/errors"
	"github.com/matzehuels/mtlxgen/pkg/pipeline"
	"github.com/matzehuels/mtlxgen/pkg/render/nodelink"
)

// graph output formats.
const (
	formatDOT  = "dot"
	formatJSON = "json"
	formatSVG  = "svg"
	formatPNG  = "png"
)

// graphOpts holds the flags of the graph command.
type graphOpts struct {
	element  string
	format   string
	output   string
	detailed bool
	folders  []string
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	opts := graphOpts{format: formatDOT}

	cmd := &cobra.Command{
		Use:   "graph <mtlx-file> <mtlx-library-search-path>",
		Short: "Draw the node graph of a renderable element",
		Long: `Draw the nodes upstream of a renderable element as a node-link diagram.

DOT, JSON and SVG are written to standard output unless -o is given. PNG
requires -o.`,
		Example: `  mtlxgen graph wood.mtlx builtin --format svg -o wood.svg
  mtlxgen graph wood.mtlx builtin --element M_wood --detailed | dot -Tpdf > wood.pdf`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.element, "element", "e", "", "element to draw (default first renderable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatDOT, "output format: dot, json, svg, png")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show category, type and row in node labels")
	cmd.Flags().StringSliceVar(&opts.folders, "library-folder", nil, "library folder below each search root (repeatable)")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, input, searchPath string, opts graphOpts) error {
	switch opts.format {
	case formatDOT, formatJSON, formatSVG:
	case formatPNG:
		if opts.output == "" {
			return errors.New(errors.ErrCodeInvalidInput, "png output requires -o")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (valid: dot, json, svg, png)", opts.format)
	}
	if opts.output != "" {
		if err := errors.ValidateOutputPath(opts.output); err != nil {
			return err
		}
	}

	runner, loaded, err := c.load(ctx, input, searchPath, opts.folders)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := c.pipelineOptions(input, searchPath, generateOpts{element: opts.element, folders: opts.folders})
	elements, err := pipeline.Renderables(loaded.Document, popts)
	if err != nil {
		return err
	}
	element := elements[0].NamePath()

	g, err := nodelink.FromDocument(loaded.Document, element)
	if g == nil {
		return errors.Wrap(errors.ErrCodeInvalidElement, err, "graph %s", element)
	}
	if err != nil {
		c.Logger.Warn("node graph has a cycle", "element", element, "err", err)
		err = nil
	}
	c.Logger.Debug("built node graph", "element", element, "nodes", g.NodeCount(), "edges", g.EdgeCount())

	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: opts.detailed})
	var data []byte
	switch opts.format {
	case formatDOT:
		data = []byte(dot)
	case formatJSON:
		var buf bytes.Buffer
		err = nodelink.WriteJSON(g, &buf)
		data = buf.Bytes()
	case formatSVG:
		data, err = nodelink.RenderSVG(ctx, dot)
	case formatPNG:
		data, err = nodelink.RenderPNG(ctx, dot)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "render %s", opts.format)
	}

	if opts.output == "" {
		_, err := c.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", opts.output)
	}
	printSuccess("Rendered %s graph of %s", opts.format, StyleHighlight.Render(element))
	printFile(opts.output)
	return nil
}
