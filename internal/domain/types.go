package domain

import (
	"strings"
	"time"
)

// Distance is the similarity function configured for a collection.
type Distance string

const (
	DistanceCosine    Distance = "COSINE"
	DistanceEuclid    Distance = "EUCLID"
	DistanceDot       Distance = "DOT"
	DistanceManhattan Distance = "MANHATTAN"
)

// Distances lists every supported metric in display order.
func Distances() []Distance {
	return []Distance{DistanceCosine, DistanceEuclid, DistanceDot, DistanceManhattan}
}

// ParseDistance accepts the wire names case-insensitively, plus a few common aliases.
func ParseDistance(s string) (Distance, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "COSINE":
		return DistanceCosine, true
	case "EUCLID", "EUCLIDEAN":
		return DistanceEuclid, true
	case "DOT", "DOTPRODUCT":
		return DistanceDot, true
	case "MANHATTAN":
		return DistanceManhattan, true
	}
	return "", false
}

// CollectionInfo is the metadata the remote reports for one collection.
type CollectionInfo struct {
	Name         string
	VectorsCount int
	VectorSize   int
	Distance     Distance
}

// Payload is arbitrary metadata stored alongside a vector.
type Payload map[string]any

// SearchResult is one hit of a similarity search.
type SearchResult struct {
	ID      string
	Score   float64
	Payload Payload
}

// Text returns the payload's text field, if it is a string.
func (r SearchResult) Text() (string, bool) {
	v, ok := r.Payload["text"].(string)
	return v, ok
}

// Origin tells who authored a chat message.
type Origin string

const (
	OriginUser      Origin = "user"
	OriginAssistant Origin = "assistant"
)

// MessageKind separates the assistant's real replies from the fallback texts.
type MessageKind string

const (
	KindUser          MessageKind = "user"
	KindWelcome       MessageKind = "welcome"
	KindReply         MessageKind = "reply"
	KindClarification MessageKind = "clarification"
	KindApology       MessageKind = "apology"
)

// ChatMessage is one entry of the chat transcript.
type ChatMessage struct {
	ID        string
	Text      string
	Origin    Origin
	Kind      MessageKind
	Timestamp time.Time
}
