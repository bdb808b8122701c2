package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mtlxgen/pkg/errors"
	"github.com/matzehuels/mtlxgen/pkg/pipeline"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var (
		strict  bool
		folders []string
	)

	cmd := &cobra.Command{
		Use:   "validate <mtlx-file> <mtlx-library-search-path>",
		Short: "Validate a MaterialX document against its libraries",
		Long: `Validate a MaterialX document against the node libraries on a search path.

Warnings are printed to standard error. The command succeeds even when the
document has warnings unless --strict is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args[0], args[1], folders, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "treat validation warnings as errors")
	cmd.Flags().StringSliceVar(&folders, "library-folder", nil, "library folder below each search root (repeatable)")

	return cmd
}

func (c *CLI) runValidate(ctx context.Context, input, searchPath string, folders []string, strict bool) error {
	runner, loaded, err := c.load(ctx, input, searchPath, folders)
	if err != nil {
		return err
	}
	defer runner.Close()

	valid, msg := runner.Validate(ctx, loaded)
	if valid {
		printSuccess("%s is valid", StyleHighlight.Render(loaded.Name))
		return nil
	}

	name := filepath.Base(input)
	c.printValidationWarnings(name, msg)
	if strict {
		return &errors.ValidationWarnings{Document: name, Message: msg}
	}
	printWarning("%s has validation warnings", name)
	printNextStep("Fail on warnings", "mtlxgen validate --strict "+input+" "+searchPath)
	return nil
}

// load runs the load stage for commands that inspect a document.
func (c *CLI) load(ctx context.Context, input, searchPath string, folders []string) (*pipeline.Runner, *pipeline.Loaded, error) {
	popts := c.pipelineOptions(input, searchPath, generateOpts{folders: folders})
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return nil, nil, err
	}
	runner, err := c.newRunner(false)
	if err != nil {
		return nil, nil, err
	}
	loaded, err := runner.Load(ctx, popts)
	if err != nil {
		runner.Close()
		return nil, nil, err
	}
	return runner, loaded, nil
}
