package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mtlxgen/pkg/errors"
	"github.com/matzehuels/mtlxgen/pkg/mtlx"
	"github.com/matzehuels/mtlxgen/pkg/shadergen"
	"github.com/matzehuels/mtlxgen/pkg/udim"
)

// udimCommand creates the udim command.
func (c *CLI) udimCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "udim <mtlx-file>",
		Short: "Expand a UDIM document into one document per tile",
		Long: `Expand a MaterialX document whose filenames use the <UDIM> token into one
document per tile of its udimset. Each copy is written as <name>_<tile>.mtlx.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runUDIM(args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", ".", "output directory")

	return cmd
}

func (c *CLI) runUDIM(input, output string) error {
	doc, err := mtlx.ReadFile(input)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "document not found: %s", input)
		}
		return errors.Wrap(errors.ErrCodeInvalidDocument, err, "read %s", input)
	}

	tiles, err := udim.Expand(doc)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDocument, err, "expand %s", filepath.Base(input))
	}
	if err := os.MkdirAll(output, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory %s", output)
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	ids := make([]string, len(tiles))
	for i, t := range tiles {
		ids[i] = t.UDIM
		path := filepath.Join(output, udim.ShaderName(base, t.UDIM)+".mtlx")
		if err := mtlx.WriteFile(path, t.Document); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
		}
		printFile(path)
	}

	scale, offset, err := udim.ScaleAndOffset(ids)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDocument, err, "udimset of %s", filepath.Base(input))
	}
	printSuccess("Expanded %s", pluralize(len(tiles), "tile"))
	printKeyValue("scale", shadergen.FormatFloats(scale[:]))
	printKeyValue("offset", shadergen.FormatFloats(offset[:]))
	fmt.Fprintln(c.Stdout)
	return nil
}
