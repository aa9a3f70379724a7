package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rowdelta/internal/harness"
)

// FileValidation is the outcome of validating one file.
type FileValidation struct {
	File  string `json:"file"`
	Kind  string `json:"kind"` // "config" or "scenario"
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate capture configs and scenario files",
		Long: `Validate CUE capture configs (.cue) and YAML scenarios (.yaml, .yml)
without touching a database.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result := ValidationResult{Valid: true}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		fv := validateFile(file)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	var text strings.Builder
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(&text, "ok   %s (%s)\n", fv.File, fv.Kind)
		} else {
			fmt.Fprintf(&text, "FAIL %s (%s): %s\n", fv.File, fv.Kind, fv.Error)
		}
	}
	if err := formatter.Success(result, text.String()); err != nil {
		return err
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateFile(file string) FileValidation {
	var (
		fv  = FileValidation{File: file}
		err error
	)
	switch filepath.Ext(file) {
	case ".cue":
		fv.Kind = "config"
		_, err = LoadConfig(file)
	case ".yaml", ".yml":
		fv.Kind = "scenario"
		_, err = harness.LoadScenario(file)
	default:
		fv.Kind = "unknown"
		err = fmt.Errorf("unsupported file type %q", filepath.Ext(file))
	}
	if err != nil {
		fv.Error = err.Error()
		return fv
	}
	fv.Valid = true
	return fv
}
