package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyfold/keyfold/internal/store"
	"github.com/keyfold/keyfold/internal/tree"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and initialize the configuration document",
	}
	cmd.AddCommand(newConfigShowCommand(rootOpts))
	cmd.AddCommand(newConfigInitCommand(rootOpts))
	return cmd
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [config-file]",
		Short: "Print the document in canonical form",
		Long: `Decode the configuration document and print its canonical encoding:
pretty-printed, keys sorted, optional fields omitted when empty. The
canonical form is what the store writes and checksums.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(rootOpts, args)
			if err != nil {
				return err
			}
			return runConfigShow(rootOpts, path, cmd)
		},
	}
}

func runConfigShow(opts *RootOptions, path string, cmd *cobra.Command) error {
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

	root, err := tree.Decode(data)
	if err != nil {
		_ = formatter.Error(ErrCodeMalformedConfig, err.Error(), nil)
		return NewExitError(ExitFailure, "document cannot be decoded")
	}

	canonical, err := tree.Encode(root)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot encode document", err)
	}

	// The canonical document is itself JSON, so both formats print it raw.
	_, err = formatter.Writer.Write(canonical)
	return err
}

func newConfigInitCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:           "init [config-file]",
		Short:         "Write the bundled default document",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(rootOpts, args)
			if err != nil {
				return err
			}
			return runConfigInit(rootOpts, path, force, cmd)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing document")
	return cmd
}

func runConfigInit(opts *RootOptions, path string, force bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if !force {
		if _, err := os.Stat(path); err == nil {
			_ = formatter.Error(ErrCodeConfigExists,
				fmt.Sprintf("config file %s already exists (use --force to overwrite)", path), nil)
			return NewExitError(ExitCommandError, "config file already exists")
		}
	}

	s := store.New(store.Options{Path: path})
	res := s.Save(store.DefaultTree())
	if res.Err != nil {
		_ = formatter.Error(ErrCodeGeneric, res.Err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot write default document", res.Err)
	}

	return formatter.Success(fmt.Sprintf("wrote default config to %s", path))
}
