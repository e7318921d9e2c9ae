package sentiment

import "fmt"

// Evaluation is an immutable total mapping from {Positive, Negative,
// Neutral} to a confidence score. Scores are not required to be normalized;
// consumers read all three independently.
type Evaluation struct {
	confidences map[Sentiment]float32
}

// NewEvaluation builds an Evaluation from explicit positivity, negativity and
// neutrality confidences.
func NewEvaluation(positivity, negativity, neutrality float32) Evaluation {
	return Evaluation{confidences: map[Sentiment]float32{
		Positive: positivity,
		Negative: negativity,
		Neutral:  neutrality,
	}}
}

// Get returns the confidence recorded for s and whether s is one of the
// three produced sentiments. Unknown, or any out-of-range Sentiment, reports
// ok=false.
func (e Evaluation) Get(s Sentiment) (float32, bool) {
	v, ok := e.confidences[s]
	return v, ok
}

// Positivity, Negativity and Neutrality are convenience accessors over Get.
func (e Evaluation) Positivity() float32 { v, _ := e.Get(Positive); return v }
func (e Evaluation) Negativity() float32 { v, _ := e.Get(Negative); return v }
func (e Evaluation) Neutrality() float32 { v, _ := e.Get(Neutral); return v }

func (e Evaluation) String() string {
	return fmt.Sprintf("Evaluation{positivity:%v negativity:%v neutrality:%v}",
		e.Positivity(), e.Negativity(), e.Neutrality())
}

// Phrase pairs phrase content with its optional evaluation. It is used only
// at the scorer boundary; the RPC surface transports bare strings and score
// triples (see pkg/rpcpb).
type Phrase struct {
	Content    string
	Evaluation *Evaluation
}
