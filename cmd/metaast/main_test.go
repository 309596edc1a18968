package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

func TestMain(m *testing.M) {
	color.NoColor = true

	os.Exit(m.Run())
}

// execute runs the root command with an empty configuration file.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), ".metaast.yaml")
	require.NoError(t, os.WriteFile(cfgPath, nil, 0o600))

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := cmd.Execute()

	return out.String(), err
}

func writeSource(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestParse_JSON(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "parse", writeSource(t, "calc.py", "x + 5\n"))
	require.NoError(t, err)

	var doc struct {
		AST      json.RawMessage `json:"ast"`
		Language string          `json:"language"`
	}

	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "python", doc.Language)

	root, err := meta.DecodeJSON(doc.AST)
	require.NoError(t, err)
	assert.Equal(t, meta.KindBinaryOp, root.Kind())
}

func TestParse_TreeFromStdin(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "x + 5\n", "parse", "-l", "elixir", "-f", "tree")
	require.NoError(t, err)
	assert.Contains(t, out, "BinaryOp")
	assert.Contains(t, out, "x")
}

func TestParse_SeveralFiles(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "parse", "-f", "tree",
		writeSource(t, "a.py", "a = 1\n"),
		writeSource(t, "b.exs", "b = 2\n"),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "a.py (python)")
	assert.Contains(t, out, "b.exs (elixir)")
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want  error
		name  string
		stdin string
		args  []string
	}{
		{name: "stdin without language", stdin: "x\n", args: []string{"parse"}, want: ErrUnknownLanguage},
		{name: "unknown language", stdin: "x\n", args: []string{"parse", "-l", "cobol"}, want: ErrUnknownLanguage},
		{name: "format", stdin: "x\n", args: []string{"parse", "-l", "python", "-f", "xml"}, want: ErrUnsupportedFormat},
		{name: "syntax", stdin: "def (:\n", args: []string{"parse", "-l", "python"}, want: meta.ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, tt.stdin, tt.args...)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_ParsedDocument(t *testing.T) {
	t.Parallel()

	parsed, err := execute(t, "total = price * 2\n", "parse", "-l", "python")
	require.NoError(t, err)

	out, err := execute(t, parsed, "validate", "--counts")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ stdin")
	assert.Contains(t, out, "core layer")
	assert.Contains(t, out, "Assignment")
}

func TestValidate_Malformed(t *testing.T) {
	t.Parallel()

	malformed := `{"kind": "Conditional", "children": [{"kind": "Variable", "attrs": {"name": "c"}, "children": []}]}`

	out, err := execute(t, malformed, "validate")
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, out, "✗ stdin")
	assert.Contains(t, out, "schema:")
}

func TestValidate_YAMLAndSource(t *testing.T) {
	t.Parallel()

	tree := "kind: Variable\nattrs:\n  name: x\nchildren: []\n"

	out, err := execute(t, tree, "validate", "-f", "json")
	require.NoError(t, err)

	var results []validation

	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.True(t, results[0].Valid)
	assert.Equal(t, []string{"x"}, results[0].FreeVariables)

	_, err = execute(t, "", "validate", "--source", writeSource(t, "ok.exs", "Enum.map(items, fn x -> x * 2 end)\n"))
	require.NoError(t, err)
}

func TestRoundtrip(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "",
		"roundtrip",
		writeSource(t, "double.py", "map(lambda x: x * 2, items)\n"),
		writeSource(t, "double.exs", "Enum.map(items, fn x -> x * 2 end)\n"),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "double.py")
	assert.Contains(t, out, "double.exs")
	assert.NotContains(t, out, "FAIL")
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "translate", "--to", "elixir", writeSource(t, "double.py", "map(lambda x: x * 2, items)\n"))
	require.NoError(t, err)
	assert.Equal(t, "Enum.map(items, fn x -> x * 2 end)\n", out)

	_, err = execute(t, "x\n", "translate", "--to", "elixir")
	require.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	path := writeSource(t, "io.py", "with open(path) as handle:\n    content = handle.read()\n")

	out, err := execute(t, "", "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "native_escape")

	_, err = execute(t, "", "analyze", "--fail-on", "info", path)
	require.ErrorIs(t, err, ErrIssuesFound)

	_, err = execute(t, "", "analyze", "--fail-on", "fatal", path)
	require.ErrorIs(t, err, ErrInvalidSeverity)

	out, err = execute(t, "", "analyze", "-f", "json", path)
	require.NoError(t, err)

	var reports []analysisReport

	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	require.NotEmpty(t, reports[0].Issues)
	assert.Equal(t, meta.KindLanguageSpecific, reports[0].Issues[0].Kind)
}

func TestSchemaAndVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "", "schema")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))

	out, err = execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "metaast "))
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		want    meta.Language
		name    string
		forced  string
		in      input
		wantErr bool
	}{
		{name: "python extension", in: input{label: "a.py", path: "/src/a.py", content: []byte("x = 1\n")}, want: meta.LanguagePython},
		{name: "elixir script", in: input{label: "a.exs", path: "/src/a.exs", content: []byte("x = 1\n")}, want: meta.LanguageElixir},
		{name: "forced wins", in: input{label: "a.py", path: "/src/a.py"}, forced: "ex", want: meta.LanguageElixir},
		{name: "stdin needs flag", in: input{label: "stdin"}, wantErr: true},
		{name: "other language", in: input{label: "a.rb", path: "/src/a.rb", content: []byte("puts 1\n")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := detectLanguage(tt.in, tt.forced)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownLanguage)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadInputs(t *testing.T) {
	t.Parallel()

	inputs, err := readInputs([]string{"-", "-"}, strings.NewReader("x"))
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "stdin", inputs[0].label)

	_, err = readInputs([]string{t.TempDir()}, strings.NewReader(""))
	require.ErrorIs(t, err, ErrDirectoryPath)

	_, err = readInputs([]string{" "}, strings.NewReader(""))
	require.ErrorIs(t, err, ErrEmptyPath)

	_, err = readInputs(nil, strings.NewReader("x\x00"))
	require.ErrorIs(t, err, ErrBinaryInput)

	inputs, err = readInputs([]string{writeSource(t, "crlf.py", "a = 1\r\nb = 2\r\n")}, strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "a = 1\nb = 2\n", string(inputs[0].content))
}

func TestSanitizeForTerminal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", sanitizeForTerminal("a\nb\tc\x1b"))
}
