package ragqa

// IngestResult reports an ingestion run.
type IngestResult struct {
	Source     string
	ChunkCount int
}

// Hit is a retrieved chunk, most similar first.
type Hit struct {
	Text   string
	Source string
	Score  float64
}

// Answer is a generated answer and the context it was conditioned on.
type Answer struct {
	Question    string
	Answer      string
	ContextUsed string
	Hits        []Hit
}
