package db

// KNNQuery asks for the K entries nearest to Vector in an index.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	Distance     DistanceMetric // converts the raw distance into Score
	ReturnFields []string
}

// SearchResult lists hits most similar first.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is one hit. Score is a similarity: higher is closer.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// Similarity turns a raw vector distance into a similarity. COSINE and IP
// report 1-similarity; L2 distances map into (0, 1].
func Similarity(distance float64, metric DistanceMetric) float64 {
	if metric == DistanceL2 {
		return 1 / (1 + distance)
	}
	return 1 - distance
}
