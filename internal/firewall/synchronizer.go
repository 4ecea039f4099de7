//go:build linux

package firewall

import (
	"fmt"

	"github.com/google/nftables"
	"github.com/google/uuid"

	"grimm.is/palisade/internal/allowlist"
	"grimm.is/palisade/internal/backup"
	"grimm.is/palisade/internal/clock"
	"grimm.is/palisade/internal/logging"
	"grimm.is/palisade/internal/metrics"
)

// Synchronizer owns one nftables table and reconciles it against a
// compiled allow-list. All mutations go through a single batched
// commit, every destructive operation snapshots the ruleset first.
type Synchronizer struct {
	conn      NFTablesConn
	runner    CommandRunner
	store     *backup.Store
	logger    *logging.Logger
	clk       clock.Clock
	tableName string
	logPrefix string
}

// New creates a Synchronizer backed by a live netlink connection.
func New(tableName, logPrefix string, store *backup.Store, logger *logging.Logger) (*Synchronizer, error) {
	conn, err := nftables.New()
	if err != nil {
		return nil, fmt.Errorf("opening netlink connection: %w", err)
	}
	return NewWithConn(NewRealNFTablesConn(conn), &RealCommandRunner{}, tableName, logPrefix, store, logger), nil
}

// NewWithConn creates a Synchronizer with an injected connection and
// command runner, used in tests.
func NewWithConn(conn NFTablesConn, runner CommandRunner, tableName, logPrefix string, store *backup.Store, logger *logging.Logger) *Synchronizer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Synchronizer{
		conn:      conn,
		runner:    runner,
		store:     store,
		logger:    logger.WithComponent("firewall"),
		clk:       &clock.RealClock{},
		tableName: tableName,
		logPrefix: logPrefix,
	}
}

func (s *Synchronizer) table() *nftables.Table {
	return &nftables.Table{
		Name:   s.tableName,
		Family: nftables.TableFamilyIPv4,
	}
}

func (s *Synchronizer) tableExists() (bool, error) {
	tables, err := s.conn.ListTables()
	if err != nil {
		return false, fmt.Errorf("listing tables: %w", err)
	}
	for _, t := range tables {
		if t.Name == s.tableName && t.Family == nftables.TableFamilyIPv4 {
			return true, nil
		}
	}
	return false, nil
}

// ApplyAllowList replaces the managed table with rules admitting
// exactly the given allow-list. The previous ruleset is snapshotted
// first, a failed commit restores it and returns ErrRollback.
func (s *Synchronizer) ApplyAllowList(list *allowlist.List) (*ApplySummary, error) {
	if list == nil || list.Len() == 0 {
		return nil, fmt.Errorf("refusing to apply an empty allow-list")
	}

	start := s.clk.Now()
	txID := uuid.NewString()

	snap, err := s.store.Save("pre-apply")
	if err != nil {
		return nil, fmt.Errorf("pre-apply backup failed: %w", err)
	}

	s.logger.Info("applying allow-list",
		"transaction", txID,
		"entries", list.Len(),
		"snapshot", snap.Name)

	// Deleting a missing table fails the whole batch, so the delete
	// is only queued when the table exists. Delete and rebuild commit
	// together, there is no window without the table.
	exists, err := s.tableExists()
	if err != nil {
		return nil, err
	}
	if exists {
		s.conn.DelTable(s.table())
	}
	rules := s.queueRules(list)

	if err := s.conn.Flush(); err != nil {
		metrics.Get().RollbacksTotal.Inc()
		s.logger.Error("commit failed, restoring snapshot",
			"transaction", txID,
			"snapshot", snap.Name,
			"error", err)
		if rerr := s.restoreSnapshot(snap); rerr != nil {
			return nil, fmt.Errorf("%w: %v (restore also failed: %v)", ErrRollback, err, rerr)
		}
		return nil, fmt.Errorf("%w: %v", ErrRollback, err)
	}

	metrics.Get().AppliesTotal.Inc()
	metrics.Get().AllowedEntries.Set(float64(list.Len()))
	summary := &ApplySummary{
		TransactionID: txID,
		Entries:       list.Len(),
		RulesApplied:  rules,
		Snapshot:      snap.Name,
		Duration:      s.clk.Now().Sub(start),
	}
	s.logger.Info("allow-list applied",
		"transaction", txID,
		"rules", summary.RulesApplied,
		"duration", summary.Duration)
	return summary, nil
}

// queueRules stages the full table, chain and rule set on the
// connection and returns the number of rules queued.
func (s *Synchronizer) queueRules(list *allowlist.List) int {
	table := s.conn.AddTable(s.table())

	policy := nftables.ChainPolicyDrop
	chain := s.conn.AddChain(&nftables.Chain{
		Name:     InputChainName,
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookInput,
		Priority: nftables.ChainPriorityFilter,
		Policy:   &policy,
	})

	rules := 0
	s.conn.AddRule(&nftables.Rule{Table: table, Chain: chain, Exprs: loopbackExprs()})
	rules++
	s.conn.AddRule(&nftables.Rule{Table: table, Chain: chain, Exprs: establishedExprs()})
	rules++
	for _, e := range list.Entries() {
		s.conn.AddRule(&nftables.Rule{Table: table, Chain: chain, Exprs: allowExprs(e.Block)})
		rules++
	}
	s.conn.AddRule(&nftables.Rule{Table: table, Chain: chain, Exprs: denyExprs()})
	rules++
	return rules
}

// ClearAll removes all filtering: the managed table is rebuilt with an
// empty accept-all input chain. An emergency escape hatch, it still
// takes a snapshot first.
func (s *Synchronizer) ClearAll() (*backup.Snapshot, error) {
	snap, err := s.store.Save("pre-clear")
	if err != nil {
		return nil, fmt.Errorf("pre-clear backup failed: %w", err)
	}

	exists, err := s.tableExists()
	if err != nil {
		return nil, err
	}
	if exists {
		s.conn.DelTable(s.table())
	}
	table := s.conn.AddTable(s.table())
	policy := nftables.ChainPolicyAccept
	s.conn.AddChain(&nftables.Chain{
		Name:     InputChainName,
		Table:    table,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookInput,
		Priority: nftables.ChainPriorityFilter,
		Policy:   &policy,
	})
	if err := s.conn.Flush(); err != nil {
		return nil, fmt.Errorf("clearing rules: %w", err)
	}

	s.logger.Warn("all filtering cleared, input policy is accept", "snapshot", snap.Name)
	return snap, nil
}

// Restore replaces the entire ruleset with a snapshot, referenced by
// name or by 1-based newest-first index. The pre-restore state is
// snapshotted so a restore can itself be undone.
func (s *Synchronizer) Restore(ref string) (*backup.Snapshot, error) {
	target, err := s.store.Resolve(ref)
	if err != nil {
		return nil, err
	}
	text, err := s.store.Load(target.Name)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Save("pre-restore"); err != nil {
		return nil, fmt.Errorf("pre-restore backup failed: %w", err)
	}

	if err := s.runner.Run("nft", "flush", "ruleset"); err != nil {
		return nil, fmt.Errorf("flushing ruleset: %w", err)
	}
	if err := s.runner.RunInput(text, "nft", "-f", "-"); err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", target.Name, err)
	}

	s.logger.Info("ruleset restored", "snapshot", target.Name)
	return target, nil
}

// Dump returns the current ruleset as nft text.
func (s *Synchronizer) Dump() (string, error) {
	out, err := s.runner.Output("nft", "list", "ruleset")
	if err != nil {
		return "", fmt.Errorf("listing ruleset: %w", err)
	}
	return string(out), nil
}

// restoreSnapshot loads a snapshot back into the kernel after a failed
// commit. Used by the rollback path only, no additional backup.
func (s *Synchronizer) restoreSnapshot(snap *backup.Snapshot) error {
	text, err := s.store.Load(snap.Name)
	if err != nil {
		return err
	}
	if err := s.runner.Run("nft", "flush", "ruleset"); err != nil {
		return err
	}
	return s.runner.RunInput(text, "nft", "-f", "-")
}
