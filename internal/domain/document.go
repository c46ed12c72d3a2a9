package domain

// Document is a source text waiting to be chunked. It lives only for the
// duration of an ingestion run.
type Document struct {
	Source string
	Text   string
}

// Chunk is a contiguous word window of a document. Index is its position in
// the chunk sequence and the identity of the stored entry.
type Chunk struct {
	Index  int
	Text   string
	Source string
}

// Payload is the metadata stored next to each vector.
type Payload struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

// IndexEntry is the unit written to the vector store. ID equals the chunk index,
// so re-ingesting overwrites entries with the same position.
type IndexEntry struct {
	ID      int
	Vector  []float32
	Payload Payload
}

// SearchHit is a retrieval result. Hits are ordered by descending similarity.
type SearchHit struct {
	Payload Payload
	Score   float64
}

// IngestResult summarizes an ingestion run.
type IngestResult struct {
	Source     string
	ChunkCount int
}

// AnswerResult is the outcome of answering a question.
type AnswerResult struct {
	Question    string
	Answer      string
	ContextUsed string
	Hits        []SearchHit
}

// HitTexts returns the payload texts of hits in order.
func HitTexts(hits []SearchHit) []string {
	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Payload.Text
	}
	return texts
}
