package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFull_AlwaysCarriesAppNameAndVersion(t *testing.T) {
	full := Full()
	assert.True(t, strings.HasPrefix(full, AppName+"/"), "got %q", full)
	assert.Contains(t, full, Build.Version)
}

func TestResolve_CommitFormat(t *testing.T) {
	// Under `go test` there is usually no VCS stamp; when there is one, it
	// must be the 8-char short form, optionally marked dirty.
	if Build.Commit == "" {
		return
	}
	base := strings.TrimSuffix(Build.Commit, "-dirty")
	assert.Len(t, base, 8)
}
