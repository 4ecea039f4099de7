//go:build !linux

package firewall

import (
	"grimm.is/palisade/internal/allowlist"
	"grimm.is/palisade/internal/backup"
	"grimm.is/palisade/internal/logging"
)

// Synchronizer is a stub for non-Linux platforms so the CLI still
// compiles there. Every operation reports ErrUnsupported.
type Synchronizer struct{}

func New(tableName, logPrefix string, store *backup.Store, logger *logging.Logger) (*Synchronizer, error) {
	return nil, ErrUnsupported
}

func (s *Synchronizer) ApplyAllowList(list *allowlist.List) (*ApplySummary, error) {
	return nil, ErrUnsupported
}

func (s *Synchronizer) EnsureLogRule() (bool, error) {
	return false, ErrUnsupported
}

func (s *Synchronizer) ClearAll() (*backup.Snapshot, error) {
	return nil, ErrUnsupported
}

func (s *Synchronizer) Restore(ref string) (*backup.Snapshot, error) {
	return nil, ErrUnsupported
}

func (s *Synchronizer) Rules() ([]RuleRecord, error) {
	return nil, ErrUnsupported
}

func (s *Synchronizer) Dump() (string, error) {
	return "", ErrUnsupported
}
