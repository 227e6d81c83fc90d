package testutil

import (
	"sync"

	"github.com/yungbote/famspace-backend/internal/data/aggregates"
)

// HooksRecorder keeps every write event and counter bump for later assertions.
type HooksRecorder struct {
	mu sync.Mutex

	Writes    []aggregates.WriteEvent
	Conflicts []string
	Retries   []string
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveWrite(ev aggregates.WriteEvent) {
	h.mu.Lock()
	h.Writes = append(h.Writes, ev)
	h.mu.Unlock()
}

func (h *HooksRecorder) IncConflict(op string) {
	h.mu.Lock()
	h.Conflicts = append(h.Conflicts, op)
	h.mu.Unlock()
}

func (h *HooksRecorder) IncRetry(op string) {
	h.mu.Lock()
	h.Retries = append(h.Retries, op)
	h.mu.Unlock()
}

// Statuses lists every observed status in order. With an op it only lists that op's.
func (h *HooksRecorder) Statuses(op ...string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, ev := range h.Writes {
		if len(op) > 0 && ev.Op != op[0] {
			continue
		}
		out = append(out, ev.Status)
	}
	return out
}

func (h *HooksRecorder) ConflictCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Conflicts)
}
