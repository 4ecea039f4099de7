//go:build linux

package firewall

import (
	"fmt"

	"github.com/google/nftables"
)

// EnsureLogRule installs the rate-limited logging rule directly before
// the final deny rule so rejected packets show up in the kernel log.
// Idempotent, a second call finds the existing rule and does nothing.
// Reports whether a rule was inserted.
func (s *Synchronizer) EnsureLogRule() (bool, error) {
	table, chain, err := s.findInputChain()
	if err != nil {
		return false, err
	}

	rules, err := s.conn.GetRules(table, chain)
	if err != nil {
		return false, fmt.Errorf("reading input chain: %w", err)
	}

	var deny *nftables.Rule
	for i, r := range rules {
		if decodeRule(r).Kind != KindDeny {
			continue
		}
		// Only a log rule directly ahead of the deny rule counts,
		// one elsewhere in the chain never sees the dropped packets.
		if i > 0 && decodeRule(rules[i-1]).Kind == KindLog {
			return false, nil
		}
		deny = r
		break
	}
	if deny == nil {
		return false, ErrNoDenyRule
	}

	s.conn.InsertRule(&nftables.Rule{
		Table:    table,
		Chain:    chain,
		Position: deny.Handle,
		Exprs:    logExprs(s.logPrefix),
	})
	if err := s.conn.Flush(); err != nil {
		return false, fmt.Errorf("installing log rule: %w", err)
	}

	s.logger.Info("log rule installed", "prefix", s.logPrefix)
	return true, nil
}

// findInputChain locates the managed table and its input chain via the
// netlink API.
func (s *Synchronizer) findInputChain() (*nftables.Table, *nftables.Chain, error) {
	tables, err := s.conn.ListTables()
	if err != nil {
		return nil, nil, fmt.Errorf("listing tables: %w", err)
	}
	var table *nftables.Table
	for _, t := range tables {
		if t.Name == s.tableName && t.Family == nftables.TableFamilyIPv4 {
			table = t
			break
		}
	}
	if table == nil {
		return nil, nil, fmt.Errorf("table %s not found, apply an allow-list first", s.tableName)
	}

	chains, err := s.conn.ListChains()
	if err != nil {
		return nil, nil, fmt.Errorf("listing chains: %w", err)
	}
	for _, c := range chains {
		if c.Table != nil && c.Table.Name == s.tableName && c.Name == InputChainName {
			return table, c, nil
		}
	}
	return nil, nil, fmt.Errorf("chain %s not found in table %s", InputChainName, s.tableName)
}
