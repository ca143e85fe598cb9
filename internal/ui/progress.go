package ui

import (
	"sync"
	"time"

	"github.com/Aman-CERP/corpusrag/pkg/indexer"
)

// ProgressTracker holds the state of the current stage. It is safe for
// concurrent use.
type ProgressTracker struct {
	mu         sync.Mutex
	now        func() time.Time
	stage      indexer.Stage
	current    int
	total      int
	startTime  time.Time
	stageStart time.Time
	warnings   []string

	lastETA time.Duration
}

// ProgressStats is a snapshot of the tracker.
type ProgressStats struct {
	Stage    indexer.Stage
	Current  int
	Total    int
	Progress float64
	Rate     float64
	ETA      time.Duration
	Warnings int
}

// NewProgressTracker creates a tracker starting in the scanning stage.
func NewProgressTracker() *ProgressTracker {
	return newProgressTracker(time.Now)
}

func newProgressTracker(now func() time.Time) *ProgressTracker {
	t := now()
	return &ProgressTracker{
		now:        now,
		stage:      indexer.StageScanning,
		startTime:  t,
		stageStart: t,
	}
}

// Update records an event, resetting rate and ETA when the stage changes.
func (p *ProgressTracker) Update(event ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.Stage != p.stage {
		p.stage = event.Stage
		p.stageStart = p.now()
		p.lastETA = 0
	}
	p.current = event.Current
	p.total = event.Total
}

// AddWarning records a warning.
func (p *ProgressTracker) AddWarning(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.warnings = append(p.warnings, msg)
}

// Warnings returns the recorded warnings.
func (p *ProgressTracker) Warnings() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.warnings...)
}

// Elapsed returns time since the tracker was created.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.now().Sub(p.startTime)
}

// Stats returns a snapshot.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := ProgressStats{
		Stage:    p.stage,
		Current:  p.current,
		Total:    p.total,
		Warnings: len(p.warnings),
	}
	if p.total > 0 {
		s.Progress = min(float64(p.current)/float64(p.total), 1.0)
	}
	if elapsed := p.now().Sub(p.stageStart); elapsed > 0 && p.current > 0 {
		s.Rate = float64(p.current) / elapsed.Seconds()
	}
	s.ETA = p.calculateETA()
	return s
}

// etaSmoothingFactor weights the newest ETA estimate; batch latency varies
// enough that unsmoothed estimates jump around.
const etaSmoothingFactor = 0.3

// calculateETA must be called with the lock held.
func (p *ProgressTracker) calculateETA() time.Duration {
	if p.current == 0 || p.total == 0 || p.current >= p.total {
		return 0
	}

	elapsed := p.now().Sub(p.stageStart)
	progress := float64(p.current) / float64(p.total)
	remaining := time.Duration(float64(elapsed)/progress) - elapsed
	if remaining < 0 {
		return 0
	}

	if p.lastETA == 0 {
		p.lastETA = remaining
		return remaining
	}
	p.lastETA = time.Duration(etaSmoothingFactor*float64(remaining) +
		(1-etaSmoothingFactor)*float64(p.lastETA))
	return p.lastETA
}
