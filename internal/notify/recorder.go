package notify

import (
	"context"
	"slices"
	"sync"
)

// Recorder keeps every event in memory. It implements all three surfaces and
// backs development mode and tests.
type Recorder struct {
	mu      sync.Mutex
	states  []StateChanged
	reports []SuspicionReport
	tasks   []OperatorTask
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) PublishStateChanged(_ context.Context, ev StateChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, ev)
	return nil
}

func (r *Recorder) FileSuspicionReport(_ context.Context, report SuspicionReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

func (r *Recorder) Enqueue(_ context.Context, task OperatorTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *Recorder) States() []StateChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.states)
}

// StatesFor returns the public events of one reference, in order.
func (r *Recorder) StatesFor(referenceID string) []StateChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []StateChanged
	for _, s := range r.states {
		if s.ReferenceID == referenceID {
			out = append(out, s)
		}
	}
	return out
}

func (r *Recorder) Reports() []SuspicionReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.reports)
}

func (r *Recorder) Tasks() []OperatorTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.tasks)
}
