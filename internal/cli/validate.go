package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/storylet/internal/compiler"
	"github.com/roach88/storylet/internal/config"
	"github.com/roach88/storylet/internal/director"
	"github.com/roach88/storylet/internal/library"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Config string // optional director config to check against the library
}

// ValidationIssue is one problem found in a library or configuration.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid         bool              `json:"valid"`
	Files         int               `json:"files"`
	Storylets     int               `json:"storylets"`
	LibraryDigest string            `json:"library_digest,omitempty"`
	ConfigDigest  string            `json:"config_digest,omitempty"`
	Errors        []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <library-dir>",
		Short: "Validate a storylet library and director config",
		Long: `Compile every CUE storylet in a library directory and report all problems.

With --config, the director configuration is validated too, and checked
against the library: every storylet's heat tier must have a center.

Exit codes:
  0 - Library (and config) valid
  1 - Validation failed
  2 - Command error (directory not found, no CUE files, etc.)

Examples:
  storylet validate ./library
  storylet validate ./library --config director.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "director config YAML to validate with the library")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, loadErrs := compiler.LoadStorylets(dir, compiler.LoadModeCollectAll)
	if loaded == nil {
		// Directory-level failure: nothing to validate
		code, msg := ErrCodeGeneric, loadErrs[0].Error()
		var le *compiler.LoadError
		if errors.As(loadErrs[0], &le) {
			code, msg = le.Code, le.Message
		}
		return formatter.Fail(ExitCommandError, code, msg, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)
	result := ValidationResult{Files: loaded.FileCount, Storylets: len(loaded.Storylets)}
	for _, err := range loadErrs {
		result.Errors = append(result.Errors, loadIssue(err))
	}

	var lib *library.Library
	if len(loadErrs) == 0 {
		var err error
		if lib, err = library.New(loaded.Storylets); err != nil {
			result.Errors = append(result.Errors, ValidationIssue{Code: compiler.ErrCodeDefinition, Message: err.Error()})
		} else if result.LibraryDigest, err = lib.Digest(); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "digest library", err)
		}
	}

	if opts.Config != "" {
		formatter.VerboseLog("Validating config %s", opts.Config)
		cfg, err := config.Load(opts.Config)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, configIssues(err)...)
		case lib != nil:
			if _, err := director.New(cfg, lib, director.WithLogger(opts.logger(cmd))); err != nil {
				result.Errors = append(result.Errors, configIssues(err)...)
			}
		}
		if err == nil {
			if result.ConfigDigest, err = cfg.Digest(); err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeGeneric, "digest config", err)
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// loadIssue converts a library load error, keeping its CUE position.
func loadIssue(err error) ValidationIssue {
	var le *compiler.LoadError
	if !errors.As(err, &le) {
		return ValidationIssue{Code: ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{Code: le.Code, Message: le.Message}
	if le.Pos.IsValid() {
		issue.File = le.Pos.Filename()
		issue.Line = le.Pos.Line()
	}
	return issue
}

// configIssues flattens configuration errors into one issue each.
func configIssues(err error) []ValidationIssue {
	var es config.Errors
	if errors.As(err, &es) {
		issues := make([]ValidationIssue, len(es))
		for i, ce := range es {
			issues[i] = ValidationIssue{Code: ce.Code, Message: configMessage(ce)}
		}
		return issues
	}
	var ce *config.ConfigError
	if errors.As(err, &ce) {
		return []ValidationIssue{{Code: ce.Code, Message: configMessage(ce)}}
	}
	return []ValidationIssue{{Code: ErrCodeGeneric, Message: err.Error()}}
}

func configMessage(ce *config.ConfigError) string {
	if ce.Field == "" {
		return ce.Message
	}
	return ce.Field + ": " + ce.Message
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Library valid (%d storylets in %d files)\n", result.Storylets, result.Files)
	if result.ConfigDigest != "" {
		fmt.Fprintln(formatter.Writer, "✓ Config valid")
	}
	return nil
}

// outputValidationErrors outputs every validation issue.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.JSON() {
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range result.Errors {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", issue.File, issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return failure
}
