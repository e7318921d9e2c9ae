package balancer

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/jihwankim/sentimentd/pkg/rpcpb"
	"github.com/jihwankim/sentimentd/pkg/transport"
)

// stubServicer is a fixed-response transport.Servicer test double, used to
// drive the balancer through specific heartbeat/scoring scenarios without a
// real evaluator.Node.
type stubServicer struct {
	heartbeat    *rpcpb.HeartbeatResponse
	heartbeatErr error
	scores       *rpcpb.GetScoresResponse
	scoresErr    error
}

func (s *stubServicer) Heartbeat(ctx context.Context) (*rpcpb.HeartbeatResponse, error) {
	if s.heartbeatErr != nil {
		return nil, s.heartbeatErr
	}
	return s.heartbeat, nil
}

func (s *stubServicer) GetScores(ctx context.Context, req *rpcpb.GetScoresRequest) (*rpcpb.GetScoresResponse, error) {
	if s.scoresErr != nil {
		return nil, s.scoresErr
	}
	return s.scores, nil
}

// testWorker is one stubbed worker process, reachable over a real httptest
// listener the same way a production worker would be.
type testWorker struct {
	svc    *stubServicer
	server *httptest.Server
}

func newTestWorker(svc *stubServicer) *testWorker {
	s := httptest.NewServer(transport.NewServer("unused", nil, svc).Handler())
	return &testWorker{svc: svc, server: s}
}

func (w *testWorker) address() string { return w.server.Listener.Addr().String() }
func (w *testWorker) close()          { w.server.Close() }

// newTestBalancer builds a Balancer whose workers are the given test
// workers' addresses.
func newTestBalancer(workers ...*testWorker) *Balancer {
	addrs := make([]string, len(workers))
	for i, w := range workers {
		addrs[i] = w.address()
	}
	return New(addrs, nil, nil)
}

func TestGetScoresHappyPathSingleWorker(t *testing.T) {
	w1 := newTestWorker(&stubServicer{
		heartbeat: &rpcpb.HeartbeatResponse{ID: "w1", Tasks: 0, FreeVRAM: 80, TotalVRAM: 100},
		scores: &rpcpb.GetScoresResponse{OK: true, Scores: []rpcpb.Score{
			{Positivity: 0.9, Negativity: 0.05, Neutrality: 0.05},
			{Positivity: 0.05, Negativity: 0.9, Neutrality: 0.05},
			{Positivity: 0.1, Negativity: 0.1, Neutrality: 0.8},
		}},
	})
	defer w1.close()

	b := newTestBalancer(w1)
	resp, err := b.GetScores(context.Background(), &rpcpb.GetScoresRequest{
		Phrases: []rpcpb.Phrase{{Content: "good"}, {Content: "bad"}, {Content: "meh"}},
	})
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if !resp.OK || len(resp.Scores) != 3 {
		t.Fatalf("GetScores = %+v", resp)
	}
	if resp.Scores[0].Positivity != 0.9 || resp.Scores[1].Negativity != 0.9 || resp.Scores[2].Neutrality != 0.8 {
		t.Errorf("scores out of order: %+v", resp.Scores)
	}
}

func TestGetScoresSingleWorkerUnreachable(t *testing.T) {
	w1 := newTestWorker(&stubServicer{heartbeatErr: errors.New("dial tcp: connection refused")})
	defer w1.close()

	b := newTestBalancer(w1)
	resp, err := b.GetScores(context.Background(), &rpcpb.GetScoresRequest{
		Phrases: []rpcpb.Phrase{{Content: "x"}},
	})
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if resp.OK || resp.ErrMsg != "no available worker" {
		t.Errorf("GetScores = %+v, want no available worker", resp)
	}
}

func TestGetScoresColdPool(t *testing.T) {
	w1 := newTestWorker(&stubServicer{heartbeatErr: errors.New("timeout")})
	w2 := newTestWorker(&stubServicer{heartbeatErr: errors.New("timeout")})
	defer w1.close()
	defer w2.close()

	b := newTestBalancer(w1, w2)
	resp, err := b.GetScores(context.Background(), &rpcpb.GetScoresRequest{Phrases: []rpcpb.Phrase{{Content: "x"}}})
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if resp.OK || resp.ErrMsg != "no available worker" {
		t.Errorf("GetScores = %+v, want no available worker", resp)
	}
}

func TestGetScoresInBandScoringFailure(t *testing.T) {
	w1 := newTestWorker(&stubServicer{
		heartbeat: &rpcpb.HeartbeatResponse{ID: "w1", Tasks: 0, FreeVRAM: 80, TotalVRAM: 100},
		scores:    &rpcpb.GetScoresResponse{OK: false, ErrMsg: "OOM", Scores: []rpcpb.Score{}},
	})
	defer w1.close()

	b := newTestBalancer(w1)
	resp, err := b.GetScores(context.Background(), &rpcpb.GetScoresRequest{Phrases: []rpcpb.Phrase{{Content: "x"}}})
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if resp.OK || resp.ErrMsg != "OOM" {
		t.Errorf("GetScores = %+v, want propagated OOM failure", resp)
	}
}

func TestBalancerAddressInOwnWorkerListIsMarkedUnavailable(t *testing.T) {
	w := newTestWorker(&stubServicer{
		heartbeat: &rpcpb.HeartbeatResponse{ID: "loopback-id", Tasks: 0, FreeVRAM: 80, TotalVRAM: 100},
	})
	defer w.close()
	b := newTestBalancer(w)
	b.id = "loopback-id"

	resp, err := b.GetScores(context.Background(), &rpcpb.GetScoresRequest{Phrases: []rpcpb.Phrase{{Content: "x"}}})
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if resp.OK || resp.ErrMsg != "no available worker" {
		t.Errorf("GetScores = %+v, want the loopback worker excluded", resp)
	}
}

func TestTwoWorkerSplitByHeadroom(t *testing.T) {
	w1 := newTestWorker(&stubServicer{
		heartbeat: &rpcpb.HeartbeatResponse{ID: "w1", Tasks: 0, FreeVRAM: 80, TotalVRAM: 100,
			LastExecution: &rpcpb.LastExecution{Tasks: 10, FreeVRAM: 30}},
	})
	w2 := newTestWorker(&stubServicer{
		heartbeat: &rpcpb.HeartbeatResponse{ID: "w2", Tasks: 2, FreeVRAM: 20, TotalVRAM: 100},
	})
	defer w1.close()
	defer w2.close()

	b := newTestBalancer(w1, w2)
	workers, err := b.refresh(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	plan := chooseAllocation(workers, 20, nil)
	if len(plan) != 2 {
		t.Fatalf("expected both workers in the plan, got %+v", plan)
	}
	// w2 has the tighter (lower) predicted-free headroom and is processed
	// first, so it is exhausted with the smaller chunk (spec.md §8, scenario 2).
	if plan[0].Worker.Address != w2.address() {
		t.Errorf("expected w2 first in the allocation, got %s", plan[0].Worker.Address)
	}
}

func TestMidRequestWorkerLoss(t *testing.T) {
	w1 := newTestWorker(&stubServicer{
		heartbeat: &rpcpb.HeartbeatResponse{ID: "w1", Tasks: 0, FreeVRAM: 80, TotalVRAM: 100},
		scores:    &rpcpb.GetScoresResponse{OK: true, Scores: []rpcpb.Score{{Positivity: 1}}},
	})
	w2 := newTestWorker(&stubServicer{heartbeatErr: errors.New("timeout")})
	defer w1.close()
	defer w2.close()

	b := newTestBalancer(w1, w2)
	resp, err := b.GetScores(context.Background(), &rpcpb.GetScoresRequest{Phrases: []rpcpb.Phrase{{Content: "x"}}})
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if !resp.OK || len(resp.Scores) != 1 {
		t.Fatalf("GetScores = %+v, want the surviving worker to serve alone", resp)
	}
}
