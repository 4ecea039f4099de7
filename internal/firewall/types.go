package firewall

import "time"

// Chain and rule constants for the managed table. The table name is
// configurable, the chain layout is not.
const (
	InputChainName = "input"

	// Rate limit for the blocked-traffic log rule.
	LogRatePerMinute = 10
	LogBurst         = 20
)

// ApplySummary reports what a successful apply committed.
type ApplySummary struct {
	TransactionID string
	Entries       int    // allow-list entries installed
	RulesApplied  int    // total rules in the chain, infrastructure included
	Snapshot      string // name of the pre-apply snapshot
	Duration      time.Duration
}

// RuleKind classifies a decoded rule from the managed input chain.
type RuleKind int

const (
	KindOther RuleKind = iota
	KindLoopback
	KindEstablished
	KindAllow
	KindLog
	KindDeny
)

func (k RuleKind) String() string {
	switch k {
	case KindLoopback:
		return "loopback"
	case KindEstablished:
		return "established"
	case KindAllow:
		return "allow"
	case KindLog:
		return "log"
	case KindDeny:
		return "deny"
	default:
		return "other"
	}
}

// RuleRecord is a decoded view of one rule in the managed chain,
// built from the kernel's netlink representation rather than by
// scraping nft output.
type RuleRecord struct {
	Handle  uint64
	Kind    RuleKind
	CIDR    string // set for KindAllow
	Packets uint64
	Bytes   uint64
}
