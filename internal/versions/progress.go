package versions

import "sync"

// ProgressFunc receives batch progress as a percentage in [0, 100]. A nil
// ProgressFunc disables reporting.
type ProgressFunc func(percent float64)

// batchProgress counts completed units and reports the running percentage.
// The sink is invoked while holding the lock so concurrent completions are
// reported in non-decreasing order.
type batchProgress struct {
	mu    sync.Mutex
	done  int
	total int
	sink  ProgressFunc
}

// newBatchProgress starts tracking total units. An empty batch reports 100
// immediately.
func newBatchProgress(total int, sink ProgressFunc) *batchProgress {
	p := &batchProgress{total: total, sink: sink}
	if total <= 0 && sink != nil {
		sink(100)
	}
	return p
}

// Done records one completed unit.
func (p *batchProgress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done >= p.total {
		return
	}
	p.done++
	if p.sink == nil {
		return
	}
	if p.done == p.total {
		p.sink(100)
		return
	}
	p.sink(float64(p.done) / float64(p.total) * 100)
}
