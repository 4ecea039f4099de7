package monitor

import (
	"strings"
	"time"
)

// parseLine extracts a BlockedEvent from a kernel log line carrying the
// firewall log prefix. Lines without the prefix return (zero, false, false);
// prefixed lines missing the SRC field return (zero, true, false) so the
// caller can count the discard. The event timestamp is the receive time,
// kernel timestamps vary too much across syslog daemons to be worth parsing.
func parseLine(line, prefix string, now time.Time) (BlockedEvent, bool, bool) {
	idx := strings.Index(line, prefix)
	if idx < 0 {
		return BlockedEvent{}, false, false
	}
	fields := parseKV(line[idx+len(prefix):])

	src, ok := fields["SRC"]
	if !ok || src == "" {
		return BlockedEvent{}, true, false
	}

	dpt := fields["DPT"]
	ev := BlockedEvent{
		Timestamp: now,
		SrcIP:     src,
		Protocol:  fields["PROTO"],
		SrcPort:   fields["SPT"],
		DstPort:   dpt,
		Service:   ServiceName(dpt),
	}
	return ev, true, true
}

// parseKV splits a netfilter log suffix into KEY=value pairs. Bare
// tokens like "OUT=" or "DF" are kept with empty values.
func parseKV(s string) map[string]string {
	fields := make(map[string]string)
	for _, tok := range strings.Fields(s) {
		if eq := strings.IndexByte(tok, '='); eq >= 0 {
			fields[tok[:eq]] = tok[eq+1:]
		}
	}
	return fields
}
