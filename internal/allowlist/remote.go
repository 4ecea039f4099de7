package allowlist

import (
	"bufio"
	"io"
	"strings"
)

// RemoteList is the parsed form of a fetched address list, with counts
// kept for preview and reporting. The counts never drive control flow.
type RemoteList struct {
	Blocks  []Block
	Total   int // valid addresses seen, before deduplication
	Skipped int // lines that were neither addresses, comments nor separators
}

// Unique returns the deduplicated entry count.
func (r *RemoteList) Unique() int {
	return len(r.Blocks)
}

// ParseRemoteList reads a newline-delimited address list. Lines starting
// with '#' and decorative separator runs are skipped. Bare dotted-quads
// are coarsened to their /24 when coarsen is set; explicit CIDRs pass
// through unchanged. The result is deduplicated in input order.
func ParseRemoteList(r io.Reader, coarsen bool) (*RemoteList, error) {
	out := &RemoteList{}
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || isSeparator(line) {
			continue
		}

		b, err := normalizeEntry(line, coarsen)
		if err != nil {
			out.Skipped++
			continue
		}
		out.Total++

		key := b.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Blocks = append(out.Blocks, b)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// isSeparator reports whether the line is a decorative run of one filler
// character, e.g. "-----" or "======".
func isSeparator(line string) bool {
	if len(line) < 3 {
		return false
	}
	first := rune(line[0])
	switch first {
	case '-', '=', '*', '_', '~', '+':
	default:
		return false
	}
	for _, r := range line {
		if r != first {
			return false
		}
	}
	return true
}
