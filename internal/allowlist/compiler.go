package allowlist

import (
	"os"
	"sort"
	"strings"
)

// Tag identifies the source an allow-list entry came from. Lower values
// are higher priority: they win deduplication and sort closer to the top
// of the generated rule set.
type Tag int

const (
	TagLoopback Tag = iota
	TagEstablished
	TagOperator
	TagCustom
	TagPrivate
	TagRemote
)

// String returns a short label used in rule comments and summaries.
func (t Tag) String() string {
	switch t {
	case TagLoopback:
		return "loopback"
	case TagEstablished:
		return "established"
	case TagOperator:
		return "operator"
	case TagCustom:
		return "custom"
	case TagPrivate:
		return "private"
	case TagRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Entry is one allow-list member with its source attribution.
type Entry struct {
	Block Block
	Tag   Tag
}

// Source feeds raw entries or pre-normalized blocks into the compiler.
type Source struct {
	Tag    Tag
	Raw    []string
	Blocks []Block
}

// List is the compiled allow-list: deduplicated by canonical CIDR string,
// insertion order preserved within each source group.
type List struct {
	entries []Entry
	index   map[string]int
}

// NewList returns an empty allow-list.
func NewList() *List {
	return &List{index: make(map[string]int)}
}

// Add appends a block unless its canonical form is already present.
// Reports whether the block was inserted.
func (l *List) Add(b Block, tag Tag) bool {
	key := b.String()
	if _, dup := l.index[key]; dup {
		return false
	}
	l.index[key] = len(l.entries)
	l.entries = append(l.entries, Entry{Block: b, Tag: tag})
	return true
}

// Entries returns the entries in rule order.
func (l *List) Entries() []Entry {
	return l.entries
}

// Len returns the number of unique entries.
func (l *List) Len() int {
	return len(l.entries)
}

// Contains reports whether the canonical CIDR string is present.
func (l *List) Contains(canonical string) bool {
	_, ok := l.index[canonical]
	return ok
}

// Result carries the compiled list plus soft-failure accounting.
type Result struct {
	List    *List
	Skipped int // entries that failed normalization, a warning not an error
}

// PrivateBlocks are the fixed RFC1918 ranges, included when configured.
var PrivateBlocks = []string{
	"192.168.0.0/16",
	"10.0.0.0/8",
	"172.16.0.0/12",
}

// Compile aggregates sources into one deduplicated allow-list. Sources are
// processed in tag priority order regardless of argument order, so the
// higher-priority source always owns a duplicated block. Malformed raw
// entries are counted and skipped.
func Compile(sources []Source, coarsen bool) *Result {
	ordered := make([]Source, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Tag < ordered[j].Tag
	})

	res := &Result{List: NewList()}
	for _, src := range ordered {
		for _, raw := range src.Raw {
			b, err := normalizeEntry(raw, coarsen && src.Tag != TagCustom && src.Tag != TagPrivate)
			if err != nil {
				res.Skipped++
				continue
			}
			res.List.Add(b, src.Tag)
		}
		for _, b := range src.Blocks {
			res.List.Add(b, src.Tag)
		}
	}
	return res
}

// PrivateSource returns the fixed private-range source.
func PrivateSource() Source {
	return Source{Tag: TagPrivate, Raw: append([]string(nil), PrivateBlocks...)}
}

// OperatorAddress resolves the address of the current operator connection
// from the SSH environment. Absence is normal for console sessions.
func OperatorAddress() (string, bool) {
	for _, env := range []string{"SSH_CLIENT", "SSH_CONNECTION"} {
		if v := os.Getenv(env); v != "" {
			fields := strings.Fields(v)
			if len(fields) > 0 && fields[0] != "" {
				return fields[0], true
			}
		}
	}
	return "", false
}
