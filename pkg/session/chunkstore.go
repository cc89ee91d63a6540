package session

// ChunkStore maps chunk index to encoded payload. A given index is written
// at most once — first wins, duplicates are silently ignored.
type ChunkStore struct {
	chunks map[uint32][]byte
}

// NewChunkStore returns an empty store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{chunks: make(map[uint32][]byte)}
}

// Put records payload at index if it isn't already present. Returns true
// if this call actually stored the payload.
func (c *ChunkStore) Put(index uint32, payload []byte) bool {
	if _, exists := c.chunks[index]; exists {
		return false
	}
	c.chunks[index] = payload
	return true
}

// Has reports whether index has been recorded.
func (c *ChunkStore) Has(index uint32) bool {
	_, ok := c.chunks[index]
	return ok
}

// Get returns the payload at index, if present.
func (c *ChunkStore) Get(index uint32) ([]byte, bool) {
	v, ok := c.chunks[index]
	return v, ok
}

// Len reports how many distinct chunk indices have been recorded.
func (c *ChunkStore) Len() int {
	return len(c.chunks)
}
