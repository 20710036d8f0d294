package progress

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// refreshInterval is how often the bars are redrawn.
const refreshInterval = 250 * time.Millisecond

// Renderer redraws a set of progress bars in place on a terminal.
type Renderer struct {
	bars   []*Bar
	output io.Writer
	drawn  bool
	mu     sync.Mutex
}

// NewRenderer creates a Renderer that draws the bars to output.
func NewRenderer(bars []*Bar, output io.Writer) *Renderer {
	return &Renderer{
		bars:   bars,
		output: output,
	}
}

// Render redraws the bars until the context is cancelled, then clears them.
func (r *Renderer) Render(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		r.draw()

		select {
		case <-ctx.Done():
			r.clear()
			return
		case <-ticker.C:
		}
	}
}

// draw replaces the previously drawn lines with the current bars.
func (r *Renderer) draw() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clearLocked()
	for _, bar := range r.bars {
		_, _ = fmt.Fprintln(r.output, bar.String())
	}
	r.drawn = true
}

// clear removes the bars from the screen.
func (r *Renderer) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clearLocked()
}

func (r *Renderer) clearLocked() {
	if !r.drawn {
		return
	}
	for range r.bars {
		_, _ = fmt.Fprint(r.output, "\033[1A\033[K")
	}
	r.drawn = false
}
