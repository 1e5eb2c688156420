package memory

import (
	"context"
	"sync"

	"barriada/internal/export"
	ports "barriada/internal/sheets"
)

// Publisher keeps the last published values of every sheet in memory.
type Publisher struct {
	mu     sync.Mutex
	sheets map[string][][]any
	count  int
}

var _ ports.TablePublisher = (*Publisher)(nil)

func New() *Publisher {
	return &Publisher{sheets: map[string][][]any{}}
}

func (p *Publisher) Publish(_ context.Context, tables []export.Table) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range tables {
		p.sheets[t.Sheet] = t.Values()
	}
	p.count++
	return nil
}

// Sheet returns the values last written to name, header row first.
func (p *Publisher) Sheet(name string) ([][]any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.sheets[name]
	return v, ok
}

// Publishes counts Publish calls.
func (p *Publisher) Publishes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
