//go:build linux

package firewall

import (
	"errors"
	"testing"
	"time"

	"github.com/google/nftables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"grimm.is/palisade/internal/allowlist"
	"grimm.is/palisade/internal/backup"
	"grimm.is/palisade/internal/clock"
)

const testTable = "palisade"

type syncFixture struct {
	sync   *Synchronizer
	conn   *MockNFTablesConn
	runner *MockCommandRunner
	store  *backup.Store
	clk    *clock.MockClock
	dump   *string
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	conn := NewMockNFTablesConn()
	conn.On("DelTable", mock.Anything).Maybe()
	conn.On("AddTable", mock.Anything).Maybe()
	conn.On("AddChain", mock.Anything).Maybe()
	conn.On("AddRule", mock.Anything).Maybe()
	conn.On("InsertRule", mock.Anything).Maybe()
	conn.On("ListTables").Return(nil, nil).Maybe()
	conn.On("ListChains").Return(nil, nil).Maybe()
	conn.On("GetRules", mock.Anything, mock.Anything).Return(nil, nil).Maybe()

	runner := &MockCommandRunner{}

	dumpText := "table ip palisade {\n}\n"
	dump := &dumpText
	clk := clock.NewMockClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local))
	store := backup.NewStore(t.TempDir(), func() (string, error) {
		return *dump, nil
	}, clk, nil)

	s := NewWithConn(conn, runner, testTable, "PALISADE-DROP: ", store, nil)
	s.clk = clk

	return &syncFixture{sync: s, conn: conn, runner: runner, store: store, clk: clk, dump: dump}
}

func testList(t *testing.T, cidrs ...string) *allowlist.List {
	t.Helper()
	list := allowlist.NewList()
	for _, c := range cidrs {
		b, err := allowlist.Normalize(c)
		require.NoError(t, err)
		list.Add(b, allowlist.TagCustom)
	}
	return list
}

func TestApplyAllowList_ChainLayout(t *testing.T) {
	f := newSyncFixture(t)
	f.conn.On("Flush").Return(nil)

	list := testList(t, "203.0.113.0/24", "198.51.100.7", "5.6.7.0/28")
	summary, err := f.sync.ApplyAllowList(list)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Entries)
	assert.Equal(t, 6, summary.RulesApplied) // loopback + established + 3 allows + deny
	assert.NotEmpty(t, summary.TransactionID)
	assert.NotEmpty(t, summary.Snapshot)

	rules := f.conn.ChainRules(testTable, InputChainName)
	require.Len(t, rules, 6)

	kinds := make([]RuleKind, 0, len(rules))
	for _, r := range rules {
		kinds = append(kinds, decodeRule(r).Kind)
	}
	assert.Equal(t, []RuleKind{KindLoopback, KindEstablished, KindAllow, KindAllow, KindAllow, KindDeny}, kinds)

	// Allow rules keep list order
	assert.Equal(t, "203.0.113.0/24", decodeRule(rules[2]).CIDR)
	assert.Equal(t, "198.51.100.7/32", decodeRule(rules[3]).CIDR)
	assert.Equal(t, "5.6.7.0/28", decodeRule(rules[4]).CIDR)

	// Default policy on the chain is drop
	chain := rules[0].Chain
	require.NotNil(t, chain.Policy)
	assert.Equal(t, nftables.ChainPolicyDrop, *chain.Policy)
}

func TestApplyAllowList_SingleCommit(t *testing.T) {
	f := newSyncFixture(t)
	f.conn.On("Flush").Return(nil)

	// First install, no table to delete yet
	_, err := f.sync.ApplyAllowList(testList(t, "192.0.2.0/24"))
	require.NoError(t, err)
	f.conn.AssertNumberOfCalls(t, "Flush", 1)
	f.conn.AssertNotCalled(t, "DelTable", mock.Anything)

	// Reapply deletes the old table inside the same batch
	f.clk.Advance(time.Minute)
	_, err = f.sync.ApplyAllowList(testList(t, "203.0.113.0/24"))
	require.NoError(t, err)
	f.conn.AssertNumberOfCalls(t, "Flush", 2)
	f.conn.AssertNumberOfCalls(t, "DelTable", 1)

	rules := f.conn.ChainRules(testTable, InputChainName)
	require.Len(t, rules, 4)
	assert.Equal(t, "203.0.113.0/24", decodeRule(rules[2]).CIDR)
}

func TestApplyAllowList_SnapshotTakenBeforeApply(t *testing.T) {
	f := newSyncFixture(t)
	f.conn.On("Flush").Return(nil)

	_, err := f.sync.ApplyAllowList(testList(t, "192.0.2.0/24"))
	require.NoError(t, err)

	snaps, err := f.store.List()
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "pre-apply", snaps[0].Label)

	content, err := f.store.Load(snaps[0].Name)
	require.NoError(t, err)
	assert.Equal(t, *f.dump, content)
}

func TestApplyAllowList_EmptyListRefused(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.sync.ApplyAllowList(allowlist.NewList())
	require.Error(t, err)
	_, err = f.sync.ApplyAllowList(nil)
	require.Error(t, err)

	f.conn.AssertNotCalled(t, "Flush")
}

func TestApplyAllowList_RollbackOnCommitFailure(t *testing.T) {
	f := newSyncFixture(t)

	f.conn.On("Flush").Return(errors.New("netlink: invalid argument")).Once()

	f.runner.On("Run", "nft", "flush", "ruleset").Return(nil).Once()
	f.runner.On("RunInput", *f.dump, "nft", "-f", "-").Return(nil).Once()

	_, err := f.sync.ApplyAllowList(testList(t, "192.0.2.0/24"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRollback)

	f.runner.AssertExpectations(t)
}

func TestApplyAllowList_BackupFailureAborts(t *testing.T) {
	conn := NewMockNFTablesConn()
	runner := &MockCommandRunner{}
	clk := clock.NewMockClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local))
	store := backup.NewStore(t.TempDir(), func() (string, error) {
		return "", errors.New("nft: command not found")
	}, clk, nil)
	s := NewWithConn(conn, runner, testTable, "PALISADE-DROP: ", store, nil)

	_, err := s.ApplyAllowList(testList(t, "192.0.2.0/24"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRollback)

	// No mutation reached the kernel
	conn.AssertNotCalled(t, "Flush")
	conn.AssertNotCalled(t, "AddTable", mock.Anything)
}

func TestClearAll(t *testing.T) {
	f := newSyncFixture(t)
	f.conn.On("Flush").Return(nil)

	_, err := f.sync.ApplyAllowList(testList(t, "192.0.2.0/24"))
	require.NoError(t, err)
	f.clk.Advance(time.Minute)

	snap, err := f.sync.ClearAll()
	require.NoError(t, err)
	assert.Equal(t, "pre-clear", snap.Label)

	// Chain rebuilt empty with accept policy
	assert.Equal(t, 0, f.conn.GetRuleCount())
	assert.Equal(t, 1, f.conn.GetTableCount())
	chains, err := f.conn.ListChains()
	require.NoError(t, err)
	require.Len(t, chains, 1)
	require.NotNil(t, chains[0].Policy)
	assert.Equal(t, nftables.ChainPolicyAccept, *chains[0].Policy)

	snaps, err := f.store.List()
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestRestore_ByIndexAndName(t *testing.T) {
	f := newSyncFixture(t)

	*f.dump = "table ip palisade { # old\n}\n"
	older, err := f.store.Save("manual")
	require.NoError(t, err)
	f.clk.Advance(time.Hour)
	*f.dump = "table ip palisade { # new\n}\n"
	_, err = f.store.Save("manual")
	require.NoError(t, err)
	f.clk.Advance(time.Hour)

	// Index 2 is the second-newest, the old content
	f.runner.On("Run", "nft", "flush", "ruleset").Return(nil).Once()
	f.runner.On("RunInput", "table ip palisade { # old\n}\n", "nft", "-f", "-").Return(nil).Once()

	restored, err := f.sync.Restore("2")
	require.NoError(t, err)
	assert.Equal(t, older.Name, restored.Name)
	f.runner.AssertExpectations(t)

	// Restore itself left a pre-restore snapshot behind
	snaps, err := f.store.List()
	require.NoError(t, err)
	require.NotEmpty(t, snaps)
	assert.Equal(t, "pre-restore", snaps[0].Label)
}

func TestRestore_UnknownRef(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.sync.Restore("rules.19990101-000000.nft")
	assert.ErrorIs(t, err, backup.ErrSnapshotNotFound)

	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}

func TestRestore_FlushFailureStopsBeforeLoad(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.store.Save("manual")
	require.NoError(t, err)

	f.runner.On("Run", "nft", "flush", "ruleset").Return(errors.New("nft: permission denied")).Once()

	_, err = f.sync.Restore("1")
	require.Error(t, err)
	f.runner.AssertNotCalled(t, "RunInput", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDump(t *testing.T) {
	f := newSyncFixture(t)
	f.runner.On("Output", "nft", "list", "ruleset").Return([]byte("table ip palisade {\n}\n"), nil).Once()

	out, err := f.sync.Dump()
	require.NoError(t, err)
	assert.Contains(t, out, "table ip palisade")
}
