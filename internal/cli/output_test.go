package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/byname/internal/compiler"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))

	wrapped := fmt.Errorf("run: %w", WrapExitError(ExitFailure, "scenarios failed", errors.New("1 failure")))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "run: scenarios failed: 1 failure", wrapped.Error())
}

func TestFormatterSuccessJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.Success(map[string]int{"methods": 7}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"methods": float64(7)}, resp.Data)
}

func TestFormatterErrorText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}
	require.NoError(t, f.Error("E005", "specs directory not found: x", "stat x"))
	assert.Equal(t, "Error [E005]: specs directory not found: x\nDetails: stat x\n", buf.String())
}

func TestFormatterFail(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	err := f.Fail(ExitCommandError, ErrCodeNotFound, "database not found: x.db")

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.EqualError(t, err, "E005: database not found: x.db")

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, &CLIError{Code: "E005", Message: "database not found: x.db"}, resp.Error)
}

func TestVerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	quiet := &OutputFormatter{Writer: out, ErrWriter: errOut}
	quiet.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	loud := &OutputFormatter{Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestErrorParts(t *testing.T) {
	compileErr := convertCompileError(&compiler.CompileError{
		Code:    compiler.ErrCodeEntity,
		Method:  "findAllPlanes",
		Message: "cannot detect entity",
	}, ErrCodeGeneric)
	code, message, pos := errorParts(compileErr)
	assert.Equal(t, "E202", code)
	assert.Equal(t, "findAllPlanes: cannot detect entity", message)
	assert.False(t, pos.IsValid())

	code, message, _ = errorParts(convertCompileError(errors.New("disk full"), ErrCodeLoadFailed))
	assert.Equal(t, ErrCodeLoadFailed, code)
	assert.Equal(t, "disk full", message)

	code, _, _ = errorParts(errors.New("plain"))
	assert.Equal(t, ErrCodeGeneric, code)
}

func TestToCLIErrors(t *testing.T) {
	errs := []error{
		&LoadError{Code: ErrCodeNoRepos, Message: "no repositories found in specs"},
		errors.New("plain"),
	}
	assert.Equal(t, []CLIError{
		{Code: ErrCodeNoRepos, Message: "no repositories found in specs"},
		{Code: ErrCodeGeneric, Message: "plain"},
	}, toCLIErrors(errs))
}
