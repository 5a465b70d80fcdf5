package model

// Chunk is a passage of extracted document text plus its precomputed
// embedding. Every chunk belongs to exactly one owner and one collection.
type Chunk struct {
	ID           string        `json:"id"`
	OwnerID      string        `json:"owner_id"`
	CollectionID string        `json:"collection_id"`
	Content      string        `json:"content"`
	Embedding    []float32     `json:"-"`
	Metadata     ChunkMetadata `json:"metadata"`
	Ctime        int64         `json:"ctime"`
}

type ChunkMetadata struct {
	FileName string `json:"file_name,omitempty"`
}

// RetrievedSource is a chunk selected for one answer. Similarity is in [0,1].
type RetrievedSource struct {
	ChunkID    string  `json:"chunk_id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	FileName   string  `json:"file_name,omitempty"`
}
