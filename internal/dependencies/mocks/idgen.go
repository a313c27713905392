package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/wsgate/internal/dependencies/idgen"
)

// MockIDGen is a mock implementation of idgen.Generator for testing
type MockIDGen struct {
	mu sync.Mutex

	// Results is a queue of ids to return from NewID
	Results []string
	index   int
	counter int
}

// Ensure MockIDGen implements Generator
var _ idgen.Generator = (*MockIDGen)(nil)

// NewMockIDGen creates a new MockIDGen
func NewMockIDGen() *MockIDGen {
	return &MockIDGen{}
}

// NewID returns the next queued id, or a sequential "id-N" once the queue is drained
func (g *MockIDGen) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.index < len(g.Results) {
		result := g.Results[g.index]
		g.index++
		return result
	}
	g.counter++
	return fmt.Sprintf("id-%d", g.counter)
}

// Queue adds ids to the result queue
func (g *MockIDGen) Queue(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Results = append(g.Results, ids...)
}

// Reset clears all queued results
func (g *MockIDGen) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Results = nil
	g.index = 0
	g.counter = 0
}
