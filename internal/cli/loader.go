package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/byname/internal/compiler"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll compiles every entity and repository and reports
	// all their errors.
	LoadModeCollectAll
)

// LoadResult contains the repositories compiled from a directory.
type LoadResult struct {
	Entities     []compiler.EntitySpec
	Repositories []*compiler.RepositorySpec
	Files        []string
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants for failures outside the compiler. Compile errors
// keep their own E2xx codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeNoRepos     = "E006" // No repository declared
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeCallFailed  = "E008" // Repository call failed
)

// LoadSpecs loads every CUE file under dir and compiles the entities and
// repositories they declare.
//
// A nil result means the directory could not be loaded at all. Otherwise
// the result holds everything that compiled, and errs what did not.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	value, err := compiler.LoadFiles(files...)
	if err != nil {
		return nil, []error{convertCompileError(err, ErrCodeLoadFailed)}
	}

	result := &LoadResult{Files: files}
	var errs []error
	fail := func(err error) bool {
		errs = append(errs, convertCompileError(err, ErrCodeGeneric))
		return mode == LoadModeFailFast
	}

	entities := make(map[string]compiler.EntitySpec)
	if ev := value.LookupPath(cue.ParsePath("entity")); ev.Exists() {
		iter, err := ev.Fields()
		if err != nil {
			fail(err)
			return result, errs
		}
		for iter.Next() {
			e, err := compiler.CompileEntity(iter.Value())
			if err != nil {
				if fail(err) {
					return result, errs
				}
				continue
			}
			entities[e.Name] = *e
			result.Entities = append(result.Entities, *e)
		}
	}

	if rv := value.LookupPath(cue.ParsePath("repository")); rv.Exists() {
		iter, err := rv.Fields()
		if err != nil {
			fail(err)
			return result, errs
		}
		for iter.Next() {
			r, err := compiler.CompileRepository(iter.Value(), entities)
			if err != nil {
				if fail(err) {
					return result, errs
				}
				continue
			}
			result.Repositories = append(result.Repositories, r)
		}
	}

	if len(result.Repositories) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoRepos, Message: "no repositories found in specs"})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
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
	return files, err
}

// convertCompileError keeps the compiler's code and position; other errors
// get fallback.
func convertCompileError(err error, fallback string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		msg := compileErr.Message
		if compileErr.Method != "" {
			msg = compileErr.Method + ": " + msg
		}
		return &LoadError{Code: compileErr.Code, Message: msg, Pos: compileErr.Pos}
	}
	return &LoadError{Code: fallback, Message: err.Error()}
}

// errorParts returns the code, message and position of a load error.
func errorParts(err error) (string, string, token.Pos) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message, loadErr.Pos
	}
	return ErrCodeGeneric, err.Error(), token.NoPos
}

// findRepository picks the repository called name, or the only one when
// name is empty.
func findRepository(repos []*compiler.RepositorySpec, name string) (*compiler.RepositorySpec, error) {
	if name == "" {
		if len(repos) != 1 {
			return nil, fmt.Errorf("specs declare %d repositories, choose one with --repository", len(repos))
		}
		return repos[0], nil
	}
	for _, r := range repos {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no repository %q in specs", name)
}
