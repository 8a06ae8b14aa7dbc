package testutils

import (
	"context"
	"sync"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

var _ ports.Observer = (*RecordingObserver)(nil)

// RecordingObserver captures every event it receives.
type RecordingObserver struct {
	mu       sync.Mutex
	Started  []string
	Finished []ports.FetchOutcome
	Scored   []domain.ScoredResponse
	Degraded []*domain.ScoringError
}

func (r *RecordingObserver) FetchStarted(_ context.Context, sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Started = append(r.Started, sourceID)
}

func (r *RecordingObserver) FetchFinished(_ context.Context, outcome ports.FetchOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished = append(r.Finished, outcome)
}

func (r *RecordingObserver) ResponseScored(_ context.Context, scored domain.ScoredResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Scored = append(r.Scored, scored)
}

func (r *RecordingObserver) ScoringDegraded(_ context.Context, err *domain.ScoringError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Degraded = append(r.Degraded, err)
}

// Outcome returns the recorded outcome for sourceID.
func (r *RecordingObserver) Outcome(sourceID string) (ports.FetchOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.Finished {
		if o.SourceID == sourceID {
			return o, true
		}
	}
	return ports.FetchOutcome{}, false
}

// DegradedStages returns the stage of every degradation in arrival order.
func (r *RecordingObserver) DegradedStages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	stages := make([]string, len(r.Degraded))
	for i, d := range r.Degraded {
		stages[i] = d.Stage
	}
	return stages
}
