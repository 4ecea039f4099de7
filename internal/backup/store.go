// Package backup persists point-in-time snapshots of the live firewall
// ruleset as plain text dumps, named by creation time. Snapshots are
// immutable once written and are never pruned automatically.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"grimm.is/palisade/internal/clock"
	"grimm.is/palisade/internal/logging"
)

// ErrSnapshotNotFound is returned when a reference resolves to nothing.
var ErrSnapshotNotFound = errors.New("snapshot not found")

const (
	snapshotPrefix = "rules."
	snapshotExt    = ".nft"
	timeLayout     = "20060102-150405"
)

// DumpFunc captures the live ruleset as text. Injected so the store can
// be exercised without a kernel.
type DumpFunc func() (string, error)

// Snapshot describes one stored ruleset dump.
type Snapshot struct {
	Name      string
	Label     string
	Timestamp time.Time
	Path      string
	Size      int64
}

// Store manages the snapshot directory.
type Store struct {
	dir    string
	dump   DumpFunc
	clk    clock.Clock
	logger *logging.Logger
}

// NewStore creates a snapshot store rooted at dir.
func NewStore(dir string, dump DumpFunc, clk clock.Clock, logger *logging.Logger) *Store {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	if logger == nil {
		logger = logging.New(logging.DefaultConfig())
	}
	return &Store{dir: dir, dump: dump, clk: clk, logger: logger}
}

// Save captures the live ruleset into a new timestamp-named snapshot.
// The optional label becomes part of the filename.
func (s *Store) Save(label string) (*Snapshot, error) {
	if s.dump == nil {
		return nil, fmt.Errorf("no ruleset dumper configured")
	}
	text, err := s.dump()
	if err != nil {
		return nil, fmt.Errorf("failed to dump ruleset: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	ts := s.clk.Now()
	name := snapshotName(ts, label, 0)
	// Same-second saves happen (apply takes a backup, then clear may take
	// another); bump a suffix rather than overwrite.
	for n := 1; ; n++ {
		if _, err := os.Stat(filepath.Join(s.dir, name)); os.IsNotExist(err) {
			break
		}
		name = snapshotName(ts, label, n)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(text), 0600); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	snap := &Snapshot{
		Name:      name,
		Label:     label,
		Timestamp: ts,
		Path:      path,
		Size:      int64(len(text)),
	}
	s.logger.Info("Saved ruleset snapshot", "name", name, "bytes", snap.Size)
	return snap, nil
}

// List returns all snapshots, newest first.
func (s *Store) List() ([]*Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var snaps []*Snapshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		snap, ok := parseSnapshotName(e.Name())
		if !ok {
			continue
		}
		snap.Path = filepath.Join(s.dir, e.Name())
		if info, err := e.Info(); err == nil {
			snap.Size = info.Size()
		}
		snaps = append(snaps, snap)
	}

	// Timestamp layout sorts lexically, so name order is time order.
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Name > snaps[j].Name
	})
	return snaps, nil
}

// Resolve turns a reference into a snapshot. The reference is either a
// snapshot name or a 1-based index into the list, newest first ("1" is
// the most recent save).
func (s *Store) Resolve(ref string) (*Snapshot, error) {
	snaps, err := s.List()
	if err != nil {
		return nil, err
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(snaps) {
			return nil, fmt.Errorf("%w: index %d of %d", ErrSnapshotNotFound, n, len(snaps))
		}
		return snaps[n-1], nil
	}

	for _, snap := range snaps {
		if snap.Name == ref {
			return snap, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrSnapshotNotFound, ref)
}

// Load returns the ruleset text of the referenced snapshot.
func (s *Store) Load(ref string) (string, error) {
	snap, err := s.Resolve(ref)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(snap.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read snapshot %s: %w", snap.Name, err)
	}
	return string(data), nil
}

func snapshotName(ts time.Time, label string, n int) string {
	var sb strings.Builder
	sb.WriteString(snapshotPrefix)
	sb.WriteString(ts.Format(timeLayout))
	if n > 0 {
		fmt.Fprintf(&sb, "-%d", n)
	}
	if label != "" {
		sb.WriteByte('.')
		sb.WriteString(sanitizeLabel(label))
	}
	sb.WriteString(snapshotExt)
	return sb.String()
}

func parseSnapshotName(name string) (*Snapshot, bool) {
	if !strings.HasPrefix(name, snapshotPrefix) || !strings.HasSuffix(name, snapshotExt) {
		return nil, false
	}
	core := strings.TrimSuffix(strings.TrimPrefix(name, snapshotPrefix), snapshotExt)

	stamp := core
	label := ""
	if i := strings.IndexByte(core, '.'); i >= 0 {
		stamp, label = core[:i], core[i+1:]
	}
	// Strip a collision suffix before parsing the time
	base := stamp
	if i := strings.LastIndexByte(stamp, '-'); i > len(timeLayout)-1 {
		base = stamp[:i]
	}
	ts, err := time.ParseInLocation(timeLayout, base, time.Local)
	if err != nil {
		return nil, false
	}
	return &Snapshot{Name: name, Label: label, Timestamp: ts}, true
}

func sanitizeLabel(label string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, label)
}
