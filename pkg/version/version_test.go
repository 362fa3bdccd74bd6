package version

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ReportsRuntime(t *testing.T) {
	i := Get()

	assert.Equal(t, runtime.Version(), i.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, i.Platform)
	assert.NotEmpty(t, i.Version)
}

func TestFromBuildInfo_FillsUnsetFields(t *testing.T) {
	// Given: no ldflags and a VCS stamp from the toolchain
	i := Info{Version: "dev", Commit: unknown, Date: unknown}
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	// When: merging
	fromBuildInfo(&i, bi)

	// Then: every gap is filled and the hash is shortened
	assert.Equal(t, "v1.4.0", i.Version)
	assert.Equal(t, "0123456789ab", i.Commit)
	assert.Equal(t, "2026-01-02T03:04:05Z", i.Date)
	assert.True(t, i.Modified)
	assert.Contains(t, i.String(), "0123456789ab+dirty")
}

func TestFromBuildInfo_LdflagsWin(t *testing.T) {
	i := Info{Version: "2.0.0", Commit: "abc1234", Date: "2026-05-01"}
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "ffffffffffff"},
			{Key: "vcs.time", Value: "1999-01-01T00:00:00Z"},
		},
	}

	fromBuildInfo(&i, bi)

	assert.Equal(t, "2.0.0", i.Version)
	assert.Equal(t, "abc1234", i.Commit)
	assert.Equal(t, "2026-05-01", i.Date)
}

func TestInfo_JSONKeys(t *testing.T) {
	data, err := json.Marshal(Info{Version: "1.0.0", GoVersion: "go1.25", Platform: "linux/amd64"})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "go1.25", m["go_version"])
	assert.Equal(t, "linux/amd64", m["platform"])
	assert.NotContains(t, m, "modified")
}
