package processor

import (
	"context"
	"sync"

	"github.com/ogulcanaydogan/slack-alert-processor/pkg/tags"
)

// Dispatcher serialises invocations so that each runs to completion before
// the next begins, and lets the processor be replaced between invocations
// when the configuration is reloaded.
type Dispatcher struct {
	mu sync.Mutex
	p  *Processor
}

// NewDispatcher wraps p.
func NewDispatcher(p *Processor) *Dispatcher {
	return &Dispatcher{p: p}
}

// Swap replaces the processor used by subsequent invocations.
func (d *Dispatcher) Swap(p *Processor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.p = p
}

func (d *Dispatcher) OnMessage(ctx context.Context, ev MessageEvent) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.p.OnMessage(ctx, ev)
}

func (d *Dispatcher) OnSchedule(ctx context.Context, ev ScheduleEvent) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.p.OnSchedule(ctx, ev)
}

// Tags returns the current processor's tag scope.
func (d *Dispatcher) Tags() *tags.Tags {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.p.Tags()
}
