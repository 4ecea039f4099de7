package firewall

import "errors"

var (
	// ErrRollback indicates a failed apply whose previous ruleset was
	// restored from the pre-apply snapshot. The wrapped error carries
	// the original commit failure.
	ErrRollback = errors.New("apply failed, previous ruleset restored")

	// ErrNoDenyRule is returned when a rule needs to be positioned
	// relative to the final deny rule and no such rule exists.
	ErrNoDenyRule = errors.New("no deny rule found in input chain")

	// ErrUnsupported is returned on platforms without nftables.
	ErrUnsupported = errors.New("firewall operations require Linux")
)
