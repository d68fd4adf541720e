package search

// Document is a chunk of filing text submitted for indexing.
type Document struct {
	chunkID  int64
	text     string
	citation Citation
}

// NewDocument creates a new Document.
func NewDocument(chunkID int64, text string, citation Citation) Document {
	return Document{
		chunkID:  chunkID,
		text:     text,
		citation: citation,
	}
}

// ChunkID returns the chunk ID.
func (d Document) ChunkID() int64 { return d.chunkID }

// Text returns the document text.
func (d Document) Text() string { return d.text }

// Citation returns the filing metadata attached to the document.
func (d Document) Citation() Citation { return d.citation }

// IndexRequest represents an indexing request.
type IndexRequest struct {
	documents []Document
}

// NewIndexRequest creates a new IndexRequest.
func NewIndexRequest(documents []Document) IndexRequest {
	docs := make([]Document, len(documents))
	copy(docs, documents)
	return IndexRequest{documents: docs}
}

// Documents returns the documents to index.
func (i IndexRequest) Documents() []Document {
	docs := make([]Document, len(i.documents))
	copy(docs, i.documents)
	return docs
}

// Result is a single retrieval hit: a chunk ID and its cosine distance
// from the query vector. Lower distance means more similar.
type Result struct {
	chunkID  int64
	distance float64
}

// NewResult creates a new Result.
func NewResult(chunkID int64, distance float64) Result {
	return Result{
		chunkID:  chunkID,
		distance: distance,
	}
}

// ChunkID returns the chunk ID.
func (r Result) ChunkID() int64 { return r.chunkID }

// Distance returns the cosine distance from the query vector.
func (r Result) Distance() float64 { return r.distance }
