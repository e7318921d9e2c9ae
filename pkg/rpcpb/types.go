// Package rpcpb defines the wire messages shared by the evaluator and
// load-balancer RPC surface (spec.md §6). Both modes expose the identical
// Heartbeat/GetScores contract, so both the evaluator servicer and the
// balancer servicer speak these same types.
package rpcpb

// Empty is the Heartbeat request; it carries no fields.
type Empty struct{}

// LastExecution is a snapshot of the most recently completed batch at a
// worker: a fallback estimator used when the worker is momentarily idle.
type LastExecution struct {
	Tasks    uint64 `json:"tasks"`
	FreeVRAM uint64 `json:"free_vram"`
}

// HeartbeatResponse reports live task count, device-memory figures, process
// identity, and (if any) the last-execution hint.
type HeartbeatResponse struct {
	Tasks         uint64         `json:"tasks"`
	FreeVRAM      uint64         `json:"free_vram"`
	TotalVRAM     uint64         `json:"total_vram"`
	ID            string         `json:"id"`
	LastExecution *LastExecution `json:"last_evaluation,omitempty"`
}

// Phrase is a single unit of text to score.
type Phrase struct {
	Content string `json:"content"`
}

// Score is a phrase's confidence triple over the three produced sentiments.
type Score struct {
	Positivity float32 `json:"positivity"`
	Negativity float32 `json:"negativity"`
	Neutrality float32 `json:"neutrality"`
}

// GetScoresRequest carries the phrases to score, in order.
type GetScoresRequest struct {
	Phrases []Phrase `json:"phrases"`
}

// GetScoresResponse carries either the scores for every requested phrase, in
// the same order, or an in-band failure message.
type GetScoresResponse struct {
	OK     bool    `json:"ok"`
	ErrMsg string  `json:"err_msg,omitempty"`
	Scores []Score `json:"scores"`
}
