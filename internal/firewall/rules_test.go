//go:build linux

package firewall

import (
	"testing"

	"github.com/google/nftables/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPad(t *testing.T) {
	b := pad("lo")
	require.Len(t, b, 16)
	assert.Equal(t, byte('l'), b[0])
	assert.Equal(t, byte('o'), b[1])
	assert.Equal(t, byte(0), b[2])
}

func TestLogExprs_PrefixAndRate(t *testing.T) {
	exprs := logExprs("PALISADE-DROP: ")

	var limit *expr.Limit
	var log *expr.Log
	for _, e := range exprs {
		switch v := e.(type) {
		case *expr.Limit:
			limit = v
		case *expr.Log:
			log = v
		case *expr.Verdict:
			t.Fatal("log rule must not carry a verdict")
		}
	}

	require.NotNil(t, limit)
	assert.Equal(t, uint64(LogRatePerMinute), limit.Rate)
	assert.Equal(t, uint32(LogBurst), limit.Burst)
	assert.Equal(t, expr.LimitTimeMinute, limit.Unit)

	require.NotNil(t, log)
	assert.Equal(t, []byte("PALISADE-DROP: "), log.Data)
}
