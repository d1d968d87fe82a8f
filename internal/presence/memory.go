package presence

import (
	"context"
	"sort"
	"sync"
)

// Memory is the single-process registry. Counts live only in this process,
// so it cannot be shared between instances; use Redis for that.
type Memory struct {
	mu     sync.Mutex
	counts map[uint]int
}

func NewMemory() *Memory {
	return &Memory{counts: map[uint]int{}}
}

func (m *Memory) Connect(_ context.Context, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts[userID]++
	return m.counts[userID] == 1, nil
}

func (m *Memory) Disconnect(_ context.Context, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.counts[userID]
	if n <= 1 {
		delete(m.counts, userID)
		return n == 1, nil
	}
	m.counts[userID] = n - 1
	return false, nil
}

func (m *Memory) Online(_ context.Context, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[userID] > 0, nil
}

func (m *Memory) OnlineUsers(_ context.Context) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]uint, 0, len(m.counts))
	for uid := range m.counts {
		out = append(out, uid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
