// Package engine runs the turn-based simulation: the economic tick, nation
// processing and the real-time turn scheduler that drives them.
package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// MaxSpeed is the fastest multiplier the scheduler accepts.
const MaxSpeed = 1000.0

// Engine drives the simulation forward one turn at a time.
type Engine struct {
	Interval time.Duration // Base turn interval at speed 1

	// Called once per turn with the new turn number.
	OnTurn func(turn int)

	turn    atomic.Int64
	running atomic.Bool

	mu    sync.Mutex
	speed float64 // Multiplier: 1.0 = real-time, 0 = paused
}

// NewEngine creates a scheduler with default settings.
func NewEngine(interval time.Duration) *Engine {
	if interval <= 0 {
		interval = time.Second
	}
	return &Engine{Interval: interval, speed: 1.0}
}

// Turn returns the last turn played.
func (e *Engine) Turn() int {
	return int(e.turn.Load())
}

// SetTurn positions the counter, e.g. when continuing a recorded run.
func (e *Engine) SetTurn(turn int) {
	e.turn.Store(int64(max(turn, 0)))
}

// Speed returns the current multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the multiplier, clamped to [0, MaxSpeed]. Zero pauses.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = min(max(speed, 0), MaxSpeed)
}

// Running reports whether Run is looping.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run starts the turn loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("turn scheduler started", "turn", e.Turn(), "speed", e.Speed(), "interval", e.Interval)

	for e.running.Load() {
		speed := e.Speed()
		if speed <= 0 {
			// Paused, sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.Step()

		// Sleep for the remainder of the turn interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("turn scheduler stopped", "turn", e.Turn())
}

// Stop halts the turn loop after the current turn.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Step plays one turn immediately and returns its number.
func (e *Engine) Step() int {
	turn := int(e.turn.Add(1))
	if e.OnTurn != nil {
		e.OnTurn(turn)
	}
	return turn
}
