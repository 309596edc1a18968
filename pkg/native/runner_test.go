package native_test

import (
	"context"
	"errors"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
	"github.com/Sumatoshi-tech/metaast/pkg/native"
)

func shellRunner(t *testing.T, opts ...native.Option) *native.Runner {
	t.Helper()

	runner := native.NewRunner(meta.LanguagePython, "sh", opts...)
	if !runner.Available() {
		t.Skip("sh not available")
	}

	return runner
}

func TestRunner_Stdout(t *testing.T) {
	t.Parallel()

	runner := shellRunner(t)

	out, err := runner.Run(context.Background(), []byte("x + 5"), "-c", "cat")
	require.NoError(t, err)
	assert.Equal(t, "x + 5", string(out))
}

func TestRunner_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script string
		code   meta.Code
		reason string
	}{
		{name: "syntax", script: "echo 'line 1: bad token' >&2; exit 2", code: meta.CodeSyntaxError, reason: "line 1: bad token"},
		{name: "crash", script: "echo boom >&2; exit 1", code: meta.CodeExternalToolFailure, reason: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := shellRunner(t)

			_, err := runner.Run(context.Background(), nil, "-c", tt.script)
			require.Error(t, err)
			assert.Equal(t, tt.code, meta.CodeOf(err))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestRunner_Timeout(t *testing.T) {
	t.Parallel()

	runner := shellRunner(t, native.WithTimeout(50*time.Millisecond))

	_, err := runner.Run(context.Background(), nil, "-c", "sleep 5")
	require.Error(t, err)
	require.ErrorIs(t, err, meta.ErrExternalToolFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunner_TimeoutWithOrphanedOutput(t *testing.T) {
	t.Parallel()

	runner := shellRunner(t, native.WithTimeout(50*time.Millisecond))

	started := time.Now()

	_, err := runner.Run(context.Background(), nil, "-c", "sleep 30 & wait")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(started), 10*time.Second)
}

func TestRunner_LongStderrStaysValidText(t *testing.T) {
	t.Parallel()

	runner := shellRunner(t)

	script := "head -c 511 /dev/zero | tr '\\0' a >&2; printf 'ééé' >&2; exit 1"

	_, err := runner.Run(context.Background(), nil, "-c", script)
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()), err.Error())
	assert.Contains(t, err.Error(), "aaa...")
}

func TestRunner_MissingTool(t *testing.T) {
	t.Parallel()

	runner := native.NewRunner(meta.LanguageElixir, "metaast-no-such-tool")
	assert.False(t, runner.Available())

	_, err := runner.Run(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, native.ErrToolNotFound))
	assert.Equal(t, meta.CodeExternalToolFailure, meta.CodeOf(err))
}

type callRecorder struct {
	errs     []error
	commands []string
}

func (recorder *callRecorder) ObserveToolCall(_ context.Context, _ meta.Language, command string, _ time.Duration, err error) {
	recorder.commands = append(recorder.commands, command)
	recorder.errs = append(recorder.errs, err)
}

func TestRunner_Observer(t *testing.T) {
	t.Parallel()

	recorder := &callRecorder{}
	runner := shellRunner(t, native.WithObserver(recorder))

	_, err := runner.Run(context.Background(), nil, "-c", "true")
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), nil, "-c", "exit 2")
	require.Error(t, err)

	assert.Equal(t, []string{"sh", "sh"}, recorder.commands)
	require.Len(t, recorder.errs, 2)
	require.NoError(t, recorder.errs[0])
	require.ErrorIs(t, recorder.errs[1], meta.ErrSyntax)
}
