package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/metaast/pkg/version"
)

func TestCurrent(t *testing.T) {
	t.Parallel()

	info := version.Current()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.Contains(t, info.String(), "(commit: "+info.Commit)
}

func TestInfoString(t *testing.T) {
	t.Parallel()

	info := version.Info{Version: "v1.2.0", Commit: "abc123", Date: "2026-01-02"}

	assert.Equal(t, "v1.2.0 (commit: abc123, built: 2026-01-02)", info.String())
}
