package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	defer func(v, c string) { Version, GitCommit = v, c }(Version, GitCommit)
	Version, GitCommit = "1.2.3", "abc123"

	assert.Equal(t, "gridlens 1.2.3 (commit abc123, built unknown)", String())
}
