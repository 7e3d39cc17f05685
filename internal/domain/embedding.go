package domain

// Embedding is the result of one embedding-provider call: the vector plus the
// metadata persisted alongside it.
type Embedding struct {
	Vector     []float32
	Dimensions int
	Model      string
	TokenCount int
}
