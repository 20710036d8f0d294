package logger

// RingBuffer keeps the most recent lines written to a log file.
type RingBuffer struct {
	lines []string
	next  int // Index of the next write
	full  bool
}

// NewRingBuffer creates a ring buffer holding up to capacity lines.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		lines: make([]string, max(capacity, 1)),
	}
}

// Add stores a line, evicting the oldest one once the buffer is full.
func (rb *RingBuffer) Add(line string) {
	rb.lines[rb.next] = line
	rb.next++
	if rb.next == len(rb.lines) {
		rb.next = 0
		rb.full = true
	}
}

// Len returns the number of lines held.
func (rb *RingBuffer) Len() int {
	if rb.full {
		return len(rb.lines)
	}
	return rb.next
}

// Lines returns the held lines, oldest first.
func (rb *RingBuffer) Lines() []string {
	if !rb.full {
		return append([]string(nil), rb.lines[:rb.next]...)
	}

	out := make([]string, 0, len(rb.lines))
	out = append(out, rb.lines[rb.next:]...)
	return append(out, rb.lines[:rb.next]...)
}
