package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Bar shows the progress of a worker step with a message and the time spent
// in the current step. It is safe for concurrent use.
type Bar struct {
	total       int64
	current     int64
	width       int
	message     string
	stepMessage string
	stepStart   time.Time
	cycleStart  time.Time
	cycles      int
	mu          sync.Mutex
}

// NewBar creates a bar of the given character width.
func NewBar(total int64, width int, message string) *Bar {
	now := time.Now()
	return &Bar{
		total:      max(total, 1),
		width:      width,
		message:    message,
		stepStart:  now,
		cycleStart: now,
	}
}

// SetTotal updates the value that represents 100% progress.
func (b *Bar) SetTotal(total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total = max(total, 1)
	b.current = min(b.current, b.total)
}

// SetCurrent sets the progress value, capped at the total.
func (b *Bar) SetCurrent(current int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = min(max(current, 0), b.total)
}

// Increment adds to the progress value, capped at the total.
func (b *Bar) Increment(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = min(b.current+n, b.total)
}

// SetStepMessage starts a new step at the given percentage of the total.
func (b *Bar) SetStepMessage(message string, percent int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stepMessage = message
	b.stepStart = time.Now()
	b.current = min(max(b.total*percent/100, 0), b.total)
}

// Reset starts a new cycle.
func (b *Bar) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = 0
	b.stepMessage = ""
	b.stepStart = time.Now()
	b.cycleStart = b.stepStart
	b.cycles++
}

// Percent returns the completed fraction in the range [0, 100].
func (b *Bar) Percent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return float64(b.current) / float64(b.total) * 100
}

// String renders the bar on a single line.
func (b *Bar) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	filled := int(float64(b.current) / float64(b.total) * float64(b.width))
	bar := strings.Repeat("=", filled) + strings.Repeat("-", b.width-filled)

	return fmt.Sprintf("%s [%s] %5.1f%% | %s (%s) | Cycle %d: %s",
		b.message, bar, float64(b.current)/float64(b.total)*100,
		b.stepMessage, time.Since(b.stepStart).Round(time.Second),
		b.cycles, time.Since(b.cycleStart).Round(time.Second))
}
