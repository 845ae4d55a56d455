package app

import "fmt"

// leakErr reports a buffer that still holds lines nobody tried to drain.
// A failed Drain counts as a drain; the lines were offered to the sink.
func leakErr(b *Buffer) error {
	b.mu.Lock()
	n := b.pending.Size()
	drained := b.drained
	b.mu.Unlock()
	if n > 0 && !drained {
		return fmt.Errorf("topicflux: buffer released with %d pending lines and no Drain", n)
	}
	return nil
}
