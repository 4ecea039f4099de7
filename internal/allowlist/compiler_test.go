package allowlist

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileDedupByPriority(t *testing.T) {
	// Same /24 arrives via remote and via the operator connection;
	// argument order is deliberately backwards.
	sources := []Source{
		{Tag: TagRemote, Raw: []string{"9.9.9.200"}},
		{Tag: TagOperator, Raw: []string{"9.9.9.1"}},
	}

	res := Compile(sources, true)
	require.Equal(t, 1, res.List.Len())
	entry := res.List.Entries()[0]
	assert.Equal(t, "9.9.9.0/24", entry.Block.String())
	assert.Equal(t, TagOperator, entry.Tag, "higher-priority source owns the block")
}

func TestCompileSkipsMalformed(t *testing.T) {
	sources := []Source{
		{Tag: TagCustom, Raw: []string{"203.0.113.7", "garbage", "also.not.an.ip"}},
	}

	res := Compile(sources, true)
	assert.Equal(t, 1, res.List.Len())
	assert.Equal(t, 2, res.Skipped)
}

func TestCompileCustomNotCoarsened(t *testing.T) {
	sources := []Source{
		{Tag: TagCustom, Raw: []string{"203.0.113.7"}},
		{Tag: TagOperator, Raw: []string{"198.51.100.9"}},
	}

	res := Compile(sources, true)
	require.Equal(t, 2, res.List.Len())
	assert.True(t, res.List.Contains("198.51.100.0/24"), "operator address coarsened")
	assert.True(t, res.List.Contains("203.0.113.7/32"), "custom entry kept exact")
}

func TestCompilePrivateRanges(t *testing.T) {
	res := Compile([]Source{PrivateSource()}, true)
	require.Equal(t, 3, res.List.Len())
	assert.True(t, res.List.Contains("192.168.0.0/16"))
	assert.True(t, res.List.Contains("10.0.0.0/8"))
	assert.True(t, res.List.Contains("172.16.0.0/12"))
	for _, e := range res.List.Entries() {
		assert.Equal(t, TagPrivate, e.Tag)
	}
}

func TestCompileOrderWithinAndAcrossGroups(t *testing.T) {
	sources := []Source{
		{Tag: TagRemote, Raw: []string{"9.9.9.9", "8.8.8.8"}},
		{Tag: TagOperator, Raw: []string{"1.1.1.1"}},
	}

	res := Compile(sources, true)
	entries := res.List.Entries()
	require.Len(t, entries, 3)
	// operator first, then remote in input order
	assert.Equal(t, "1.1.1.0/24", entries[0].Block.String())
	assert.Equal(t, "9.9.9.0/24", entries[1].Block.String())
	assert.Equal(t, "8.8.8.0/24", entries[2].Block.String())
}

func TestCompileNoCoarsen(t *testing.T) {
	sources := []Source{
		{Tag: TagRemote, Raw: []string{"9.9.9.9"}},
	}

	res := Compile(sources, false)
	require.Equal(t, 1, res.List.Len())
	assert.True(t, res.List.Contains("9.9.9.9/32"))
}

func TestOperatorAddress(t *testing.T) {
	t.Setenv("SSH_CLIENT", "203.0.113.50 51234 22")
	addr, ok := OperatorAddress()
	require.True(t, ok)
	assert.Equal(t, "203.0.113.50", addr)

	os.Unsetenv("SSH_CLIENT")
	t.Setenv("SSH_CONNECTION", "198.51.100.2 40000 10.0.0.1 22")
	addr, ok = OperatorAddress()
	require.True(t, ok)
	assert.Equal(t, "198.51.100.2", addr)

	os.Unsetenv("SSH_CONNECTION")
	_, ok = OperatorAddress()
	assert.False(t, ok)
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "operator", TagOperator.String())
	assert.Equal(t, "remote", TagRemote.String())
	assert.Equal(t, "unknown", Tag(99).String())
}
