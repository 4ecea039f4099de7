//go:build linux

package firewall

import (
	"testing"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/palisade/internal/allowlist"
)

func TestRules_DecodedView(t *testing.T) {
	f := newSyncFixture(t)
	f.conn.On("Flush").Return(nil)

	_, err := f.sync.ApplyAllowList(testList(t, "203.0.113.0/24", "198.51.100.7"))
	require.NoError(t, err)
	_, err = f.sync.EnsureLogRule()
	require.NoError(t, err)

	records, err := f.sync.Rules()
	require.NoError(t, err)
	require.Len(t, records, 6)

	assert.Equal(t, KindLoopback, records[0].Kind)
	assert.Equal(t, KindEstablished, records[1].Kind)
	assert.Equal(t, KindAllow, records[2].Kind)
	assert.Equal(t, "203.0.113.0/24", records[2].CIDR)
	assert.Equal(t, KindAllow, records[3].Kind)
	assert.Equal(t, "198.51.100.7/32", records[3].CIDR)
	assert.Equal(t, KindLog, records[4].Kind)
	assert.Equal(t, KindDeny, records[5].Kind)
}

func TestRules_NoTable(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.sync.Rules()
	require.Error(t, err)
}

func TestDecodeRule_Counters(t *testing.T) {
	b, err := allowlist.Normalize("10.0.0.0/8")
	require.NoError(t, err)

	exprs := allowExprs(b)
	for _, e := range exprs {
		if c, ok := e.(*expr.Counter); ok {
			c.Packets = 42
			c.Bytes = 4200
		}
	}
	rec := decodeRule(&nftables.Rule{Handle: 7, Exprs: exprs})

	assert.Equal(t, uint64(7), rec.Handle)
	assert.Equal(t, KindAllow, rec.Kind)
	assert.Equal(t, "10.0.0.0/8", rec.CIDR)
	assert.Equal(t, uint64(42), rec.Packets)
	assert.Equal(t, uint64(4200), rec.Bytes)
}

func TestDecodeRule_UnknownShape(t *testing.T) {
	rec := decodeRule(&nftables.Rule{Exprs: []expr.Any{
		&expr.Verdict{Kind: expr.VerdictAccept},
	}})
	assert.Equal(t, KindOther, rec.Kind)
}
