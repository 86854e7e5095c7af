package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// LoadFiles compiles each CUE file and unifies them into one value. Files
// need not share a package; conflicting declarations surface as E211.
func LoadFiles(paths ...string) (cue.Value, error) {
	if len(paths) == 0 {
		return cue.Value{}, &CompileError{Code: ErrCodeDeclaration, Message: "no CUE files given"}
	}
	ctx := cuecontext.New()

	var v cue.Value
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, fmt.Errorf("read %s: %w", path, err)
		}
		fv := ctx.CompileBytes(data, cue.Filename(path))
		if err := fv.Err(); err != nil {
			return cue.Value{}, formatCUEError(err)
		}
		if i == 0 {
			v = fv
			continue
		}
		v = v.Unify(fv)
	}
	if err := v.Validate(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// LoadRepositories loads paths and compiles every repository they declare.
func LoadRepositories(paths ...string) ([]*RepositorySpec, error) {
	v, err := LoadFiles(paths...)
	if err != nil {
		return nil, err
	}
	return CompileRepositories(v)
}
