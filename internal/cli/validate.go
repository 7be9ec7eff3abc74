package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyfold/keyfold/internal/settings"
	"github.com/keyfold/keyfold/internal/tree"
	"github.com/keyfold/keyfold/internal/validate"
)

// ValidationResult holds the validate command's payload.
type ValidationResult struct {
	Valid  bool             `json:"valid"`
	Path   string           `json:"path"`
	Errors []validate.Error `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate the configuration document",
		Long: `Validate a launcher configuration document.

Checks the raw JSON against the document schema, decodes it into a tree,
and runs the standard rule set (duplicate keys, unreachable nodes, empty
values, empty groups). Without an argument, the path from the settings
file is used.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(rootOpts, args)
			if err != nil {
				return err
			}
			return runValidate(rootOpts, path, cmd)
		},
	}
	return cmd
}

// resolveConfigPath picks the document path: explicit argument first,
// settings file otherwise.
func resolveConfigPath(opts *RootOptions, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	s, err := loadSettings(opts)
	if err != nil {
		return "", err
	}
	return s.ConfigPath, nil
}

func loadSettings(opts *RootOptions) (*settings.Settings, error) {
	path := opts.Settings
	if path == "" {
		var err error
		path, err = settings.DefaultPath()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "cannot resolve settings path", err)
		}
	}
	s, err := settings.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "cannot load settings", err)
	}
	return s, nil
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		_ = formatter.Error(ErrCodeConfigRead, fmt.Sprintf("config file %s does not exist", path), nil)
		return NewExitError(ExitCommandError, "config file not found")
	}
	if err != nil {
		_ = formatter.Error(ErrCodeConfigRead, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot read config file", err)
	}
	formatter.VerboseLog("Read %d bytes from %s", len(data), path)

	if err := validate.CheckDocument(data); err != nil {
		_ = formatter.Error(ErrCodeMalformedConfig, err.Error(), nil)
		return NewExitError(ExitFailure, "document failed schema validation")
	}

	root, err := tree.Decode(data)
	if err != nil {
		_ = formatter.Error(ErrCodeMalformedConfig, err.Error(), nil)
		return NewExitError(ExitFailure, "document cannot be decoded")
	}

	errs := validate.Rules{}.Validate(root)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, path, errs)
	}
	return outputValidateSuccess(formatter, path)
}

func outputValidateSuccess(formatter *OutputFormatter, path string) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Path: path})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is valid\n", path)
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, path string, errs []validate.Error) error {
	if formatter.Format == "json" {
		if err := formatter.Error(ErrCodeValidationFailed, fmt.Sprintf("%d validation error(s)", len(errs)),
			ValidationResult{Valid: false, Path: path, Errors: errs}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintf(formatter.Writer, "✗ %s failed validation\n\n", path)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s at /%s: %s\n", e.Kind, e.Path, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
