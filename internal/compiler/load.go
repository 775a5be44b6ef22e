package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/storylet/internal/library"
)

// LoadMode controls how errors are handled during library loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading a library directory.
type LoadResult struct {
	Storylets []library.Storylet
	FileCount int // Number of CUE files found
}

// LoadStorylets loads and compiles every storylet in a CUE directory.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadStorylets(dir string, mode LoadMode) (*LoadResult, []error) {
	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("library directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing library directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	storylets, errs := CompileValue(value, mode)
	return &LoadResult{Storylets: storylets, FileCount: len(cueFiles)}, errs
}

// CompileValue compiles every field of the top-level "storylet" struct.
func CompileValue(value cue.Value, mode LoadMode) ([]library.Storylet, []error) {
	var errs []error
	var out []library.Storylet

	storyletsVal := value.LookupPath(cue.ParsePath("storylet"))
	if !storyletsVal.Exists() {
		return nil, []error{&LoadError{Code: ErrCodeEmpty, Message: "no storylets found"}}
	}
	iter, err := storyletsVal.Fields()
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("iterating storylets: %v", err)}}
	}
	for iter.Next() {
		s, compileErr := CompileStorylet(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "storylet."+iter.Label()))
			if mode == LoadModeFailFast {
				return out, errs
			}
			continue
		}
		out = append(out, *s)
	}

	if len(out) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeEmpty, Message: "no storylets found"})
	}
	return out, errs
}

// LoadLibrary loads a CUE directory into a validated Library. All problems
// are reported, joined into one error.
func LoadLibrary(dir string) (*library.Library, error) {
	result, errs := LoadStorylets(dir, LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	lib, err := library.New(result.Storylets)
	if err != nil {
		return nil, fmt.Errorf("library %s: %w", dir, err)
	}
	return lib, nil
}

// CompileLibrary compiles CUE source text into a Library. Useful for tests
// and embedded libraries.
func CompileLibrary(filename, src string) (*library.Library, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	storylets, errs := CompileValue(value, LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return library.New(storylets)
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeDefinition,
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeDefinition,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
