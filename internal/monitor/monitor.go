package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"grimm.is/palisade/internal/clock"
	"grimm.is/palisade/internal/logging"
	"grimm.is/palisade/internal/metrics"
)

// ErrNoLogSource means none of the candidate kernel log files exist.
var ErrNoLogSource = errors.New("no readable kernel log source found")

// State tracks where the monitor is in its lifecycle.
type State int

const (
	StateInitializing State = iota
	StateTailing
	StateRotatingDay
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateTailing:
		return "tailing"
	case StateRotatingDay:
		return "rotating-day"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Summary is delivered once when the monitor stops. UniqueSources
// counts distinct source addresses seen on the current day, the set
// resets at day rollover along with the event file.
type Summary struct {
	TotalEvents   int
	UniqueSources int
	Started       time.Time
	Stopped       time.Time
}

// Monitor tails the kernel log for firewall drop lines and appends them
// as structured events to a daily file. Single goroutine, all state is
// confined to it.
type Monitor struct {
	eventDir    string
	sources     []string
	prefix      string
	statusEvery int
	clk         clock.Clock
	logger      *logging.Logger

	state     State
	file      *os.File
	day       time.Time
	dayEvents int
	total     int
	unique    map[string]struct{}
	started   time.Time
}

// New creates a Monitor. sources is the ordered candidate list of
// kernel log paths, the first one that exists wins.
func New(eventDir string, sources []string, prefix string, statusEvery int, clk clock.Clock, logger *logging.Logger) *Monitor {
	if clk == nil {
		clk = &clock.RealClock{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	if statusEvery <= 0 {
		statusEvery = 100
	}
	return &Monitor{
		eventDir:    eventDir,
		sources:     sources,
		prefix:      prefix,
		statusEvery: statusEvery,
		clk:         clk,
		logger:      logger.WithComponent("monitor"),
		unique:      make(map[string]struct{}),
	}
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	return m.state
}

// Run tails the log until the context is cancelled, then returns the
// session summary. ErrNoLogSource is fatal at startup.
func (m *Monitor) Run(ctx context.Context) (*Summary, error) {
	m.state = StateInitializing
	m.started = m.clk.Now()

	source, err := m.findSource()
	if err != nil {
		m.state = StateStopped
		return nil, err
	}
	m.logger.Info("watching kernel log", "source", source, "prefix", m.prefix)

	if err := m.openDay(m.started); err != nil {
		m.state = StateStopped
		return nil, err
	}
	defer m.closeDay()

	m.state = StateTailing
	t := newTailer(source, m.handleLine, m.logger)
	err = t.run(ctx)

	m.state = StateStopped
	summary := &Summary{
		TotalEvents:   m.total,
		UniqueSources: len(m.unique),
		Started:       m.started,
		Stopped:       m.clk.Now(),
	}
	m.logger.Info("monitor stopped",
		"events", summary.TotalEvents,
		"unique_sources", summary.UniqueSources)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return summary, nil
	}
	return summary, err
}

func (m *Monitor) findSource() (string, error) {
	for _, path := range m.sources {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: tried %v", ErrNoLogSource, m.sources)
}

// handleLine runs inside the tailer for every new log line.
func (m *Monitor) handleLine(line string) {
	now := m.clk.Now()
	if !sameDay(now, m.day) {
		if err := m.rotateDay(now); err != nil {
			m.logger.Error("day rollover failed", "error", err)
			return
		}
	}

	ev, matched, ok := parseLine(line, m.prefix, now)
	if !matched {
		return
	}
	if !ok {
		// Prefix matched but the kernel line was truncated
		metrics.Get().ParseDiscards.Inc()
		return
	}

	if _, err := m.file.WriteString(ev.Line()); err != nil {
		m.logger.Error("event append failed", "error", err)
		return
	}

	m.total++
	m.dayEvents++
	m.unique[ev.SrcIP] = struct{}{}
	proto := ev.Protocol
	if proto == "" {
		proto = "unknown"
	}
	metrics.Get().BlockedEvents.WithLabelValues(proto).Inc()
	metrics.Get().UniqueSources.Set(float64(len(m.unique)))

	if m.total%m.statusEvery == 0 {
		m.logger.Info("monitor status",
			"events_total", m.total,
			"events_today", m.dayEvents,
			"unique_sources", len(m.unique))
	}
}

// openDay opens (creating if needed) the event file for the given day
// and writes the header when the file is new.
func (m *Monitor) openDay(day time.Time) error {
	if err := os.MkdirAll(m.eventDir, 0755); err != nil {
		return fmt.Errorf("creating event directory: %w", err)
	}
	path := filepath.Join(m.eventDir, eventFileName(day))

	info, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr) || (statErr == nil && info.Size() == 0)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening event file: %w", err)
	}
	if fresh {
		if _, err := f.WriteString(eventHeader); err != nil {
			f.Close()
			return fmt.Errorf("writing event header: %w", err)
		}
	}

	m.file = f
	m.day = day
	m.dayEvents = 0
	return nil
}

func (m *Monitor) closeDay() {
	if m.file != nil {
		m.file.Close()
		m.file = nil
	}
}

// rotateDay switches to the next day's event file at the first line
// received past midnight.
func (m *Monitor) rotateDay(now time.Time) error {
	m.state = StateRotatingDay
	defer func() { m.state = StateTailing }()

	m.logger.Info("rolling event file to new day",
		"from", m.day.Format("2006-01-02"),
		"to", now.Format("2006-01-02"),
		"events_yesterday", m.dayEvents,
		"unique_sources_yesterday", len(m.unique))
	m.closeDay()
	m.unique = make(map[string]struct{})
	return m.openDay(now)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
