package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mtlxgen/pkg/errors"
	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/pipeline"
)

// renderablesCommand creates the renderables command.
func (c *CLI) renderablesCommand() *cobra.Command {
	var (
		pick    bool
		output  string
		target  string
		folders []string
	)

	cmd := &cobra.Command{
		Use:   "renderables <mtlx-file> <mtlx-library-search-path>",
		Short: "List the renderable elements of a document",
		Long: `List the renderable elements of a MaterialX document.

With --pick an interactive list opens and a shader is generated for the
selected element.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rows, err := c.listRenderables(ctx, args[0], args[1], folders)
			if err != nil {
				return err
			}
			if !pick {
				fmt.Fprintln(c.Stdout, renderableTable(rows, 0, len(rows), -1))
				return nil
			}

			element, err := pickRenderable(rows)
			if err != nil || element == "" {
				return err
			}
			opts := generateOpts{target: target, element: element, folders: folders}
			if output == "" {
				output = defaultOutputName(element, c.pipelineOptions(args[0], args[1], opts).Target)
			}
			return c.runGenerate(ctx, args[0], args[1], output, opts)
		},
	}

	cmd.Flags().BoolVar(&pick, "pick", false, "pick an element interactively and generate its shader")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file for --pick (default <element> plus target extension)")
	cmd.Flags().StringVarP(&target, "target", "t", "", "implementation target for --pick")
	cmd.Flags().StringSliceVar(&folders, "library-folder", nil, "library folder below each search root (repeatable)")

	return cmd
}

func (c *CLI) listRenderables(ctx context.Context, input, searchPath string, folders []string) ([]renderableRow, error) {
	runner, loaded, err := c.load(ctx, input, searchPath, folders)
	if err != nil {
		return nil, err
	}
	defer runner.Close()

	elements := mtlx.FindRenderableElements(loaded.Document)
	if len(elements) == 0 {
		return nil, errors.New(errors.ErrCodeNoRenderable, "no renderable elements in %s", filepath.Base(input))
	}
	return renderableRows(elements), nil
}

// pickRenderable runs the interactive picker and returns the selected name
// path, or "" if the user quit.
func pickRenderable(rows []renderableRow) (string, error) {
	final, err := tea.NewProgram(NewRenderableListModel(rows)).Run()
	if err != nil {
		return "", fmt.Errorf("run picker: %w", err)
	}
	m, ok := final.(RenderableListModel)
	if !ok || m.Selected == "" {
		printInfo("No element selected")
		return "", nil
	}
	return m.Selected, nil
}

// defaultOutputName derives a shader file name from an element name path.
func defaultOutputName(element, target string) string {
	if target == "" {
		target = pipeline.DefaultTarget
	}
	return strings.ReplaceAll(element, "/", "_") + pipeline.FileExtension(target)
}
