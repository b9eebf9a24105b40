package system

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/xmy86/chase/common"
	"github.com/xmy86/chase/ecs"
	"github.com/xmy86/chase/ecs/component"
)

// NextLogPath returns the log file to create in dir: Log.txt when no log
// exists yet, otherwise Log<N+1>.txt where N is the highest index present
// (Log.txt counts as 1).
func NextLogPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("snapshot log: %w", err)
	}
	maxIndex := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "Log") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		stem := strings.TrimSuffix(strings.TrimPrefix(name, "Log"), ".txt")
		if stem == "" {
			maxIndex = max(maxIndex, 1)
			continue
		}
		if n, err := strconv.Atoi(stem); err == nil {
			maxIndex = max(maxIndex, n)
		}
	}
	if maxIndex == 0 {
		return filepath.Join(dir, "Log.txt"), nil
	}
	return filepath.Join(dir, fmt.Sprintf("Log%d.txt", maxIndex+1)), nil
}

// SnapshotLog appends periodic position and velocity snapshots of the
// tagged agents to a trajectory log. Log lines written through Messages are
// interleaved as "[Log] ..." records.
type SnapshotLog struct {
	mu       sync.Mutex
	file     *os.File
	out      *bufio.Writer
	path     string
	runID    uuid.UUID
	interval float64
	next     float64

	// LaserActive reports the weapon state for each snapshot.
	LaserActive func() bool
}

// OpenSnapshotLog creates dir if needed and opens the next free log file.
func OpenSnapshotLog(dir string, interval float64) (*SnapshotLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot log: %w", err)
	}
	path, err := NextLogPath(dir)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("snapshot log: %w", err)
	}
	l := &SnapshotLog{
		file:     f,
		out:      bufio.NewWriter(f),
		path:     path,
		runID:    uuid.New(),
		interval: interval,
	}
	l.writeLine(fmt.Sprintf("[Log] Run %s", l.runID))
	return l, nil
}

func (l *SnapshotLog) Path() string {
	return l.path
}

func (l *SnapshotLog) RunID() uuid.UUID {
	return l.runID
}

// Messages returns a writer that records each written line as a log
// message. Use it as (part of) a log.Logger's output.
func (l *SnapshotLog) Messages() io.Writer {
	return messageWriter{l}
}

type messageWriter struct {
	l *SnapshotLog
}

func (m messageWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		m.l.writeLine("[Log] " + line)
	}
	return len(p), nil
}

func (l *SnapshotLog) writeLine(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return
	}
	_, _ = l.out.WriteString(s + "\n")
}

// Update writes a snapshot whenever the world clock passes the next
// interval boundary, starting at time zero.
func (l *SnapshotLog) Update(w *ecs.World, dt float64) {
	now := w.Elapsed()
	if now+common.Epsilon < l.next {
		return
	}
	l.next = now + l.interval

	var b strings.Builder
	fmt.Fprintf(&b, "Timestamp: %.2f\n", now)
	for _, row := range []struct {
		label string
		tag   component.Tag
	}{
		{"Evader", component.TagEvader},
		{"Pursuer", component.TagPursuer},
	} {
		pos, vel := agentState(w, row.tag)
		fmt.Fprintf(&b, "%s Position: %s, Velocity: %s\n", row.label, pos, vel)
	}
	if l.LaserActive != nil {
		fmt.Fprintf(&b, "Laser Active: %t\n", l.LaserActive())
	}
	for _, e := range w.Tagged(component.TagTarget) {
		if s, ok := w.Spawns().Get(e); ok {
			fmt.Fprintf(&b, "Target Position: %s\n", s.Position)
		}
	}
	l.writeLine(b.String())
}

func agentState(w *ecs.World, tag component.Tag) (pos, vel common.Vec3) {
	found := false
	ecs.Join(w.Bodies(), w.Tags(), func(e ecs.Entity, b component.Body, t component.Tag) {
		if found || t != tag || b.Body == nil || !w.IsAlive(e) {
			return
		}
		found = true
		pos = common.FromPlane(b.Body.Position(), b.Height)
		vel = common.FromPlane(b.Body.Velocity(), 0)
	})
	return pos, vel
}

// Flush writes buffered records to disk.
func (l *SnapshotLog) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return nil
	}
	return l.out.Flush()
}

func (l *SnapshotLog) Close() error {
	if err := l.Flush(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = nil
	return l.file.Close()
}
