package segment

import (
	"fmt"
	"sync/atomic"
)

// Generator issues per-session utterance ids, one per flushed window.
type Generator struct {
	counter uint64
}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) Next(sessionId string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-utt-%d", sessionId, n)
}

// Count returns how many ids have been issued.
func (g *Generator) Count() uint64 {
	return atomic.LoadUint64(&g.counter)
}
