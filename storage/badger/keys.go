package badger

// Key prefixes for different data types
const (
	chunkPrefix        = "chunk:"
	chunkFilePrefix    = "chunkf:"
	conversationPrefix = "conv:"
	dimensionKey       = "meta:dim"
)

// makeChunkKey generates the primary key for a chunk record.
func makeChunkKey(chunkID string) []byte {
	return []byte(chunkPrefix + chunkID)
}

// makeChunkFileKey generates a composite key for the filename index.
// Format: prefix filename NUL chunkID
func makeChunkFileKey(filename, chunkID string) []byte {
	buf := make([]byte, 0, len(chunkFilePrefix)+len(filename)+1+len(chunkID))
	buf = append(buf, chunkFilePrefix...)
	buf = append(buf, filename...)
	buf = append(buf, 0)
	return append(buf, chunkID...)
}

// makePartialChunkFileKey generates the scan prefix for one file's chunks.
func makePartialChunkFileKey(filename string) []byte {
	buf := make([]byte, 0, len(chunkFilePrefix)+len(filename)+1)
	buf = append(buf, chunkFilePrefix...)
	buf = append(buf, filename...)
	return append(buf, 0)
}

// makeConversationKey generates the key for a conversation snapshot.
func makeConversationKey(id string) []byte {
	return []byte(conversationPrefix + id)
}
