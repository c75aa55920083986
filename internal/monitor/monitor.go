// Package monitor keeps running counters and process stats for the
// /admin status command.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"
)

// Stats is a snapshot of bot activity and process health.
type Stats struct {
	Uptime      time.Duration
	Goroutines  int
	HeapMB      float64
	DiskPercent float64 // of the filesystem holding the data dir

	Commands int64
	Spawns   int64
	Catches  int64
}

// Monitor counts bot events and samples process stats periodically.
type Monitor struct {
	started  time.Time
	dataDir  string
	interval time.Duration

	commands atomic.Int64
	spawns   atomic.Int64
	catches  atomic.Int64

	sample atomic.Pointer[Stats]
}

// New creates a Monitor. dataDir is the directory whose filesystem usage
// is reported; empty skips the disk reading.
func New(dataDir string, interval time.Duration) *Monitor {
	m := &Monitor{
		started:  time.Now(),
		dataDir:  dataDir,
		interval: interval,
	}
	m.sample.Store(&Stats{})
	return m
}

// RecordCommand counts one handled slash command.
func (m *Monitor) RecordCommand() { m.commands.Add(1) }

// RecordSpawn counts one spawned encounter.
func (m *Monitor) RecordSpawn() { m.spawns.Add(1) }

// RecordCatch counts one successful catch.
func (m *Monitor) RecordCatch() { m.catches.Add(1) }

// Stats returns the latest sample combined with the live counters.
func (m *Monitor) Stats() Stats {
	s := *m.sample.Load()
	s.Uptime = time.Since(m.started)
	s.Commands = m.commands.Load()
	s.Spawns = m.spawns.Load()
	s.Catches = m.catches.Load()
	return s
}

// Run samples process stats until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	// Immediate first read
	m.refresh()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refresh()
		}
	}
}

func (m *Monitor) refresh() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m.sample.Store(&Stats{
		Goroutines:  runtime.NumGoroutine(),
		HeapMB:      float64(ms.HeapAlloc) / (1 << 20),
		DiskPercent: readDiskPercent(m.dataDir),
	})
}

// --- Disk (syscall.Statfs, Linux and macOS) ---

func readDiskPercent(dir string) float64 {
	if dir == "" {
		return 0
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		slog.Debug("monitor: statfs failed", "dir", dir, "err", err)
		return 0
	}

	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	if total == 0 {
		return 0
	}
	return float64(total-free) / float64(total) * 100
}

// FormatStats returns a human-readable stats summary.
func FormatStats(s Stats) string {
	return fmt.Sprintf("Up: %s | Goroutines: %d | Heap: %.1fMB | Disk: %.1f%%\nCommands: %d | Spawns: %d | Catches: %d",
		s.Uptime.Truncate(time.Second), s.Goroutines, s.HeapMB, s.DiskPercent,
		s.Commands, s.Spawns, s.Catches)
}
