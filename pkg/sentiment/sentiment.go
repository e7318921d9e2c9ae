// Package sentiment defines the closed sentiment enumeration and the
// per-phrase confidence evaluation that the scorer produces.
package sentiment

import "fmt"

// Sentiment is a closed enumeration with a stable integer ordering. Only
// Positive, Negative and Neutral are ever produced by a scorer; Unknown is a
// reserved sentinel.
type Sentiment int

const (
	Unknown  Sentiment = -1
	Positive Sentiment = 0
	Negative Sentiment = 1
	Neutral  Sentiment = 2
)

func (s Sentiment) String() string {
	switch s {
	case Positive:
		return "POSITIVE"
	case Negative:
		return "NEGATIVE"
	case Neutral:
		return "NEUTRAL"
	case Unknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("Sentiment(%d)", int(s))
	}
}

// FromOrdinal returns the Sentiment with the given integer ordinal, or an
// error if no such Sentiment exists.
func FromOrdinal(i int) (Sentiment, error) {
	switch Sentiment(i) {
	case Unknown, Positive, Negative, Neutral:
		return Sentiment(i), nil
	default:
		return Unknown, fmt.Errorf("sentiment: no sentiment with ordinal %d", i)
	}
}

// FromName returns the Sentiment with the given canonical name, or an error
// if the name is not recognized.
func FromName(name string) (Sentiment, error) {
	switch name {
	case "POSITIVE":
		return Positive, nil
	case "NEGATIVE":
		return Negative, nil
	case "NEUTRAL":
		return Neutral, nil
	case "UNKNOWN":
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("sentiment: no sentiment named %q", name)
	}
}

// Produced lists the sentiments an Evaluator is ever expected to produce.
func Produced() []Sentiment {
	return []Sentiment{Positive, Negative, Neutral}
}
