package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AplusKminus/GraphWalker/internal/errors"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E001", "graph 7: not found", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "graph 7: not found", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"node": "n1", "connector": "west"}
	err := formatter.Error("E002", "unknown connector", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("Created graph 1")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Created graph 1")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E001", "graph 7: not found", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "graph 7: not found")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"node": "n1"}
	err := formatter.Error("E001", "graph 7: not found", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Decoding %s", "metro.yaml")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Decoding metro.yaml")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   map[string]int{"count": 42},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    "E100",
		Message: "document invalid",
		Details: []string{"nodes[0].name is blank"},
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	var decoded CLIError
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "E100", decoded.Code)
	assert.Equal(t, "document invalid", decoded.Message)
}

func TestOutputFormatter_Render(t *testing.T) {
	buf := &bytes.Buffer{}
	text := func(w io.Writer) { fmt.Fprintln(w, "Graph 1: Metro") }

	f := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, f.Render(map[string]int{"id": 1}, text))
	assert.Equal(t, "Graph 1: Metro\n", buf.String())

	buf.Reset()
	f.Format = "json"
	require.NoError(t, f.Render(map[string]string{"tag": "x<y"}, text))
	assert.JSONEq(t, `{"status":"ok","data":{"tag":"x<y"}}`, buf.String())
	assert.Contains(t, buf.String(), "x<y")
}

func TestOutputFormatter_Fail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"not_found", errors.NotFoundf("graph 3"), ErrCodeNotFound},
		{"invalid", errors.Invalidf("blank name"), ErrCodeInvalid},
		{"conflict", errors.Conflictf("duplicate"), ErrCodeConflict},
		{"other", errors.New("disk on fire"), ErrCodeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			f := &OutputFormatter{Format: "json", Writer: buf}
			require.NoError(t, f.Fail(tt.err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestOutputFormatter_FailHints(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.Fail(errors.WithHint(errors.Invalidf("bad id"), "ids are positive")))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, []any{"ids are positive"}, resp.Error.Details)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.NotFoundf("graph %d", 4)))
	assert.Equal(t, ExitFailure, GetExitCode(errors.Wrap(errors.Invalidf("bad id"), "parse")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.Conflictf("duplicate connector")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	wrapped := errors.Wrap(WrapExitError(ExitCommandError, "open", errors.New("denied")), "run")
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}
