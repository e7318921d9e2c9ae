package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jihwankim/sentimentd/pkg/rpcpb"
	"github.com/jihwankim/sentimentd/pkg/scoring"
	"github.com/jihwankim/sentimentd/pkg/sentiment"
)

type fakeMemory struct{ total, free uint64 }

func (f fakeMemory) Report() (scoring.MemoryStats, error) {
	return scoring.MemoryStats{Total: f.total, Free: f.free}, nil
}

func TestHeartbeatIdle(t *testing.T) {
	n := New(scoring.FixedEvaluator{}, fakeMemory{total: 100, free: 80}, nil)

	first, err := n.Heartbeat(context.Background())
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	second, err := n.Heartbeat(context.Background())
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if first.Tasks != 0 || second.Tasks != 0 {
		t.Errorf("expected zero tasks at idle, got %d and %d", first.Tasks, second.Tasks)
	}
	if first.ID != second.ID || first.ID != n.ID() {
		t.Error("heartbeat id must be stable across calls")
	}
}

func TestGetScoresEmpty(t *testing.T) {
	n := New(scoring.FixedEvaluator{}, fakeMemory{total: 100, free: 80}, nil)
	resp, err := n.GetScores(context.Background(), &rpcpb.GetScoresRequest{})
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if !resp.OK || len(resp.Scores) != 0 {
		t.Errorf("GetScores(empty) = %+v", resp)
	}
}

func TestGetScoresHappyPath(t *testing.T) {
	n := New(scoring.FixedEvaluator{Evaluations: []sentiment.Evaluation{
		sentiment.NewEvaluation(0.9, 0.05, 0.05),
		sentiment.NewEvaluation(0.05, 0.9, 0.05),
		sentiment.NewEvaluation(0.1, 0.1, 0.8),
	}}, fakeMemory{total: 100, free: 80}, nil)

	resp, err := n.GetScores(context.Background(), &rpcpb.GetScoresRequest{
		Phrases: []rpcpb.Phrase{{Content: "good"}, {Content: "bad"}, {Content: "meh"}},
	})
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if !resp.OK || len(resp.Scores) != 3 {
		t.Fatalf("GetScores = %+v", resp)
	}
	if resp.Scores[0].Positivity != 0.9 {
		t.Errorf("Scores[0] = %+v", resp.Scores[0])
	}

	hb, err := n.Heartbeat(context.Background())
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if hb.Tasks != 0 {
		t.Errorf("tasks after completion = %d, want 0", hb.Tasks)
	}
	if hb.LastExecution == nil || hb.LastExecution.Tasks != 3 {
		t.Errorf("LastExecution = %+v", hb.LastExecution)
	}
}

func TestGetScoresFailureStillDecrementsTasks(t *testing.T) {
	n := New(scoring.FixedEvaluator{Err: errors.New("device OOM")}, fakeMemory{total: 100, free: 80}, nil)

	resp, err := n.GetScores(context.Background(), &rpcpb.GetScoresRequest{Phrases: []rpcpb.Phrase{{Content: "x"}}})
	if err != nil {
		t.Fatalf("GetScores transport error: %v", err)
	}
	if resp.OK || resp.ErrMsg == "" {
		t.Errorf("expected in-band failure, got %+v", resp)
	}
	if len(resp.Scores) != 0 {
		t.Errorf("expected no scores on failure, got %+v", resp.Scores)
	}

	hb, err := n.Heartbeat(context.Background())
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if hb.Tasks != 0 {
		t.Errorf("tasks must return to 0 after a failed call, got %d", hb.Tasks)
	}
}

// slowMemory lets a test observe the monitor running concurrently with a
// slow scorer call without depending on real wall-clock VRAM behavior.
type slowMemory struct {
	values []uint64
	i      int
	mu     chan struct{}
}

func newSlowMemory(values ...uint64) *slowMemory {
	return &slowMemory{values: values, mu: make(chan struct{}, 1)}
}

func (s *slowMemory) Report() (scoring.MemoryStats, error) {
	s.mu <- struct{}{}
	defer func() { <-s.mu }()
	v := s.values[s.i%len(s.values)]
	s.i++
	return scoring.MemoryStats{Total: 100, Free: v}, nil
}

type slowEvaluator struct{ delay time.Duration }

func (s slowEvaluator) Evaluate(ctx context.Context, content []string) ([]sentiment.Evaluation, error) {
	time.Sleep(s.delay)
	out := make([]sentiment.Evaluation, len(content))
	for i := range content {
		out[i] = sentiment.NewEvaluation(1, 0, 0)
	}
	return out, nil
}

func TestGetScoresRecordsLowWaterMark(t *testing.T) {
	mem := newSlowMemory(80, 70, 60, 75)
	n := New(slowEvaluator{delay: 150 * time.Millisecond}, mem, nil)
	n.sampleEvery = 20 * time.Millisecond

	resp, err := n.GetScores(context.Background(), &rpcpb.GetScoresRequest{Phrases: []rpcpb.Phrase{{Content: "x"}}})
	if err != nil || !resp.OK {
		t.Fatalf("GetScores = %+v, err %v", resp, err)
	}

	hb, err := n.Heartbeat(context.Background())
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if hb.LastExecution == nil {
		t.Fatal("expected a last_evaluation snapshot")
	}
	if hb.LastExecution.FreeVRAM >= 80 {
		t.Errorf("expected the monitor to have observed a sample below the idle baseline, got %d", hb.LastExecution.FreeVRAM)
	}
}
