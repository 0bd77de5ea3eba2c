package renderer

import (
	"fmt"
	"sync"
)

// Pass names registered by the renderer's default frame graph.
const (
	PassShadow       = "shadow"
	PassDepthPrepass = "depth_prepass"
	PassForward      = "forward"
)

// PassFunc records one render pass.
type PassFunc func() error

type framePass struct {
	name    string
	execute PassFunc
	enabled bool
}

// frameGraph is the implementation of the FrameGraph interface.
type frameGraph struct {
	mu     *sync.Mutex
	passes []framePass
}

// FrameGraph is an ordered list of named render passes. Passes run in the order they were
// added; disabled passes are skipped.
type FrameGraph interface {
	// AddPass appends an enabled pass.
	//
	// Parameters:
	//   - name: the pass name
	//   - execute: the function recording the pass
	AddPass(name string, execute PassFunc)

	// SetPassEnabled enables or disables a pass by name. Unknown names are ignored.
	//
	// Parameters:
	//   - name: the pass name
	//   - enabled: the new state
	SetPassEnabled(name string, enabled bool)

	// IsPassEnabled reports whether a pass exists and is enabled.
	//
	// Parameters:
	//   - name: the pass name
	//
	// Returns:
	//   - bool: true if the pass is registered and enabled
	IsPassEnabled(name string) bool

	// Execute runs every enabled pass in order and stops at the first error.
	//
	// Returns:
	//   - error: the first pass error, wrapped with the pass name
	Execute() error

	// Clear removes every pass.
	Clear()

	// EnabledPassCount returns the number of enabled passes.
	//
	// Returns:
	//   - int: the enabled pass count
	EnabledPassCount() int

	// PassNames returns the registered pass names in execution order.
	//
	// Returns:
	//   - []string: the pass names
	PassNames() []string
}

var _ FrameGraph = &frameGraph{}

// NewFrameGraph creates an empty FrameGraph.
//
// Returns:
//   - FrameGraph: the new frame graph
func NewFrameGraph() FrameGraph {
	return &frameGraph{mu: &sync.Mutex{}}
}

func (g *frameGraph) AddPass(name string, execute PassFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.passes = append(g.passes, framePass{name: name, execute: execute, enabled: true})
}

func (g *frameGraph) SetPassEnabled(name string, enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.passes {
		if g.passes[i].name == name {
			g.passes[i].enabled = enabled
			return
		}
	}
}

func (g *frameGraph) IsPassEnabled(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.passes {
		if p.name == name {
			return p.enabled
		}
	}
	return false
}

func (g *frameGraph) Execute() error {
	g.mu.Lock()
	passes := make([]framePass, len(g.passes))
	copy(passes, g.passes)
	g.mu.Unlock()

	for _, p := range passes {
		if !p.enabled || p.execute == nil {
			continue
		}
		if err := p.execute(); err != nil {
			return fmt.Errorf("%s pass: %w", p.name, err)
		}
	}
	return nil
}

func (g *frameGraph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.passes = nil
}

func (g *frameGraph) EnabledPassCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, p := range g.passes {
		if p.enabled {
			n++
		}
	}
	return n
}

func (g *frameGraph) PassNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, len(g.passes))
	for i, p := range g.passes {
		names[i] = p.name
	}
	return names
}
