package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.NotEmpty(t, info.BuildTime)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "v1.0.0", Commit: "abc123", BuildTime: "2026-01-01T00:00:00Z", GoVersion: "go1.25.0"}
	assert.Equal(t, "v1.0.0 (commit abc123, built 2026-01-01T00:00:00Z, go1.25.0)", info.String())
}
