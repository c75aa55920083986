package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New("", time.Minute)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordCommand()
			m.RecordSpawn()
		}()
	}
	wg.Wait()
	m.RecordCatch()

	s := m.Stats()
	assert.Equal(t, int64(20), s.Commands)
	assert.Equal(t, int64(20), s.Spawns)
	assert.Equal(t, int64(1), s.Catches)
}

func TestRefreshSamplesProcess(t *testing.T) {
	m := New(t.TempDir(), time.Minute)
	assert.Zero(t, m.Stats().Goroutines)

	m.refresh()
	s := m.Stats()
	assert.Positive(t, s.Goroutines)
	assert.Positive(t, s.HeapMB)
	assert.GreaterOrEqual(t, s.DiskPercent, 0.0)
	assert.LessOrEqual(t, s.DiskPercent, 100.0)
}

func TestRunStopsOnCancel(t *testing.T) {
	m := New("", 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Stats().Goroutines > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestFormatStats(t *testing.T) {
	out := FormatStats(Stats{Uptime: 90*time.Second + 300*time.Millisecond, Goroutines: 12, HeapMB: 3.3, Commands: 4, Spawns: 2, Catches: 1})
	assert.Equal(t, "Up: 1m30s | Goroutines: 12 | Heap: 3.3MB | Disk: 0.0%\nCommands: 4 | Spawns: 2 | Catches: 1", out)
}
