package domain

// Batch holds encoded lines in the order they were appended.
type Batch struct {
	// Lines contains the encoded line protocol records
	Lines []string

	// TotalBytes is the sum of all line lengths
	TotalBytes int
}

// NewBatch creates a new empty batch.
func NewBatch() *Batch {
	return &Batch{
		Lines: make([]string, 0),
	}
}

// Add appends lines to the batch.
func (b *Batch) Add(lines ...string) {
	for _, l := range lines {
		b.Lines = append(b.Lines, l)
		b.TotalBytes += len(l)
	}
}

// Size returns the number of lines in the batch.
func (b *Batch) Size() int {
	return len(b.Lines)
}

// Empty returns true if the batch has no lines.
func (b *Batch) Empty() bool {
	return len(b.Lines) == 0
}

// Snapshot returns a copy of the current lines.
// The copy stays valid while more lines are appended to the batch.
func (b *Batch) Snapshot() []string {
	out := make([]string, len(b.Lines))
	copy(out, b.Lines)
	return out
}

// DropFront removes the first n lines, keeping everything appended after them.
func (b *Batch) DropFront(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.Lines) {
		b.Reset()
		return
	}
	for _, l := range b.Lines[:n] {
		b.TotalBytes -= len(l)
	}
	rest := make([]string, len(b.Lines)-n)
	copy(rest, b.Lines[n:])
	b.Lines = rest
}

// Reset clears the batch for reuse.
func (b *Batch) Reset() {
	b.Lines = b.Lines[:0]
	b.TotalBytes = 0
}
