//go:build linux

package firewall

import (
	"testing"

	"github.com/google/nftables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/palisade/internal/allowlist"
)

func TestEnsureLogRule_InsertsBeforeDeny(t *testing.T) {
	f := newSyncFixture(t)
	f.conn.On("Flush").Return(nil)

	_, err := f.sync.ApplyAllowList(testList(t, "192.0.2.0/24"))
	require.NoError(t, err)

	inserted, err := f.sync.EnsureLogRule()
	require.NoError(t, err)
	assert.True(t, inserted)

	rules := f.conn.ChainRules(testTable, InputChainName)
	require.Len(t, rules, 5) // loopback, established, allow, log, deny
	assert.Equal(t, KindLog, decodeRule(rules[3]).Kind)
	assert.Equal(t, KindDeny, decodeRule(rules[4]).Kind)
}

func TestEnsureLogRule_Idempotent(t *testing.T) {
	f := newSyncFixture(t)
	f.conn.On("Flush").Return(nil)

	_, err := f.sync.ApplyAllowList(testList(t, "192.0.2.0/24"))
	require.NoError(t, err)

	inserted, err := f.sync.EnsureLogRule()
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = f.sync.EnsureLogRule()
	require.NoError(t, err)
	assert.False(t, inserted)

	rules := f.conn.ChainRules(testTable, InputChainName)
	logCount := 0
	for _, r := range rules {
		if decodeRule(r).Kind == KindLog {
			logCount++
		}
	}
	assert.Equal(t, 1, logCount)
}

func TestEnsureLogRule_StrayLogRuleNotAdjacent(t *testing.T) {
	f := newSyncFixture(t)
	f.conn.On("Flush").Return(nil)

	// Hand-build a chain where a log rule sits ahead of an allow rule
	// instead of directly before the deny rule
	table := f.conn.AddTable(&nftables.Table{Name: testTable, Family: nftables.TableFamilyIPv4})
	chain := f.conn.AddChain(&nftables.Chain{Name: InputChainName, Table: table})
	b, err := allowlist.Normalize("192.0.2.0/24")
	require.NoError(t, err)
	f.conn.AddRule(&nftables.Rule{Table: table, Chain: chain, Exprs: logExprs("PALISADE-DROP: ")})
	f.conn.AddRule(&nftables.Rule{Table: table, Chain: chain, Exprs: allowExprs(b)})
	f.conn.AddRule(&nftables.Rule{Table: table, Chain: chain, Exprs: denyExprs()})

	inserted, err := f.sync.EnsureLogRule()
	require.NoError(t, err)
	assert.True(t, inserted)

	rules := f.conn.ChainRules(testTable, InputChainName)
	require.Len(t, rules, 4)
	assert.Equal(t, KindLog, decodeRule(rules[2]).Kind)
	assert.Equal(t, KindDeny, decodeRule(rules[3]).Kind)

	inserted, err = f.sync.EnsureLogRule()
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestEnsureLogRule_NoDenyRule(t *testing.T) {
	f := newSyncFixture(t)
	f.conn.On("Flush").Return(nil)

	// Hand-build a chain that only accepts, no final deny
	table := f.conn.AddTable(&nftables.Table{Name: testTable, Family: nftables.TableFamilyIPv4})
	chain := f.conn.AddChain(&nftables.Chain{Name: InputChainName, Table: table})
	b, err := allowlist.Normalize("192.0.2.0/24")
	require.NoError(t, err)
	f.conn.AddRule(&nftables.Rule{Table: table, Chain: chain, Exprs: allowExprs(b)})

	_, err = f.sync.EnsureLogRule()
	assert.ErrorIs(t, err, ErrNoDenyRule)
}

func TestEnsureLogRule_NoManagedTable(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.sync.EnsureLogRule()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
