package pipeline

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	// creepCap is the ceiling for the idle-looking-bar avoidance increments;
	// only completion pushes the value past it.
	creepCap = 90.0

	animationTick = 120 * time.Millisecond
)

// progress is the monotonic progress value of one run. Milestone targets are
// set at stage boundaries and an animation goroutine interpolates the visible
// value toward them; between milestones it creeps upward by small random
// increments so the bar never looks stalled during a long model call. The
// value only ever increases.
type progress struct {
	mu     sync.Mutex
	val    float64
	target float64

	done     chan struct{}
	stopOnce sync.Once
}

func newProgress() *progress {
	p := &progress{done: make(chan struct{})}
	go p.animate()
	return p
}

// setTarget raises the milestone target. Lower targets are ignored.
func (p *progress) setTarget(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t > p.target {
		p.target = t
	}
}

func (p *progress) value() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(math.Round(p.val))
}

func (p *progress) animate() {
	ticker := time.NewTicker(animationTick)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *progress) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.val < p.target {
		step := (p.target - p.val) * 0.25
		if step < 0.5 {
			step = 0.5
		}
		p.val = math.Min(p.val+step, p.target)
		return
	}
	if p.val < creepCap {
		p.val = math.Min(p.val+rand.Float64()*0.8, creepCap)
	}
}

// complete stops the animation and forces the value to 100.
func (p *progress) complete() {
	p.stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.val = 100
	p.target = 100
}

// freeze stops the animation and leaves the value where it is.
func (p *progress) freeze() {
	p.stop()
}

// stop cancels the animation goroutine. Always called on a terminal
// transition so no ticker outlives its run.
func (p *progress) stop() {
	p.stopOnce.Do(func() { close(p.done) })
}
