package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Emitter writes one JSON document per line and flushes after each, so the
// parent sees every response as soon as it is written.
type Emitter struct {
	mu  sync.Mutex
	w   *bufio.Writer
	enc *json.Encoder
}

func NewEmitter(w io.Writer) *Emitter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &Emitter{w: bw, enc: enc}
}

// Emit encodes v, terminated by a newline, and flushes it.
func (e *Emitter) Emit(v any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.enc.Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("flush response: %w", err)
	}
	return nil
}
