package monitor

import (
	"fmt"
	"strings"
	"time"
)

// BlockedEvent is one rejected packet lifted from the kernel log.
type BlockedEvent struct {
	Timestamp time.Time
	SrcIP     string
	Protocol  string
	SrcPort   string
	DstPort   string
	Service   string
}

// eventHeader is written once at the top of each daily event file.
const eventHeader = "# palisade blocked traffic\n# timestamp|source|protocol|sport|dport|service\n"

// Line renders the event in the pipe-delimited on-disk format.
func (e BlockedEvent) Line() string {
	return strings.Join([]string{
		e.Timestamp.Format(time.RFC3339),
		e.SrcIP,
		e.Protocol,
		e.SrcPort,
		e.DstPort,
		e.Service,
	}, "|") + "\n"
}

// eventFileName returns the date-keyed file name for a given day.
func eventFileName(day time.Time) string {
	return fmt.Sprintf("blocked-%s.log", day.Format("20060102"))
}
