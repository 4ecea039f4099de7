package monitor

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"grimm.is/palisade/internal/logging"
	"grimm.is/palisade/internal/metrics"
)

const (
	pollInterval  = 250 * time.Millisecond
	maxLineLength = 1024 * 1024
)

// tailer follows one log file through rotation and truncation. Syslog
// daemons recreate or truncate their files on rotation, so position
// tracking alone is not enough.
type tailer struct {
	path     string
	callback func(string)
	logger   *logging.Logger

	position int64
	size     int64
	inode    uint64
	modTime  time.Time
}

func newTailer(path string, callback func(string), logger *logging.Logger) *tailer {
	return &tailer{
		path:     path,
		callback: callback,
		logger:   logger,
		position: -1,
	}
}

// run polls the file until the context is cancelled. The first poll
// seeks to the end, only lines written after startup are reported.
func (t *tailer) run(ctx context.Context) error {
	if err := t.seekToEnd(); err != nil {
		return err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := t.check(); err != nil {
				// Transient read errors should not kill the monitor
				t.logger.Warn("log poll failed", "path", t.path, "error", err)
			}
		}
	}
}

func (t *tailer) seekToEnd() error {
	file, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	if t.position == -1 {
		pos, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return err
		}
		t.position = pos
	}
	t.size = info.Size()
	t.modTime = info.ModTime()
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		t.inode = stat.Ino
	}
	return nil
}

func (t *tailer) check() error {
	file, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			// Mid-rotation gap, the daemon will recreate it
			return nil
		}
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	size := info.Size()
	modTime := info.ModTime()
	var inode uint64
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		inode = stat.Ino
	}

	start := t.position
	if reason := t.rotationReason(size, modTime, inode); reason != "" {
		metrics.Get().MonitorRotations.Inc()
		t.logger.Info("log rotation detected", "path", t.path, "reason", reason)
		start = 0
		t.position = 0
	}
	t.size = size
	t.modTime = modTime
	t.inode = inode

	if size <= start {
		return nil
	}

	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return err
	}
	reader := bufio.NewReaderSize(file, 64*1024)
	pos := start
	for {
		chunk, err := reader.ReadString('\n')
		if err == io.EOF {
			// Unterminated tail, the writer is mid-line. Leave
			// position at the last full line so the next poll reads
			// it whole, unless it has grown past any sane length.
			if len(chunk) > maxLineLength {
				pos += int64(len(chunk))
			}
			break
		}
		if err != nil {
			t.position = pos
			return err
		}
		pos += int64(len(chunk))
		line := strings.TrimRight(chunk, "\r\n")
		if line == "" || len(line) > maxLineLength {
			continue
		}
		t.callback(line)
	}
	t.position = pos
	return nil
}

// rotationReason reports why the file is considered rotated, or "".
func (t *tailer) rotationReason(size int64, modTime time.Time, inode uint64) string {
	switch {
	case size < t.size:
		return "size decrease"
	case modTime.Before(t.modTime) && size <= t.size:
		return "modification time reset"
	case t.position > size:
		return "position beyond file size"
	case t.inode != 0 && inode != 0 && inode != t.inode && size < t.position:
		return "inode change"
	}
	return ""
}
