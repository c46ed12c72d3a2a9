// Package keyspace names the Valkey keys and FT indexes owned by ragqa.
//
// Layout for prefix "ragqa:" and collection "kb":
//
//	ragqa:collection:kb   collection metadata hash
//	ragqa:kb:idx          FT index over ragqa:entry:kb:*
//	ragqa:entry:kb:{id}   entry hash
//	ragqa:emb_cache:{sha} cached embedding
//
// Entries live under their own "entry:" namespace so a collection's scan
// pattern never reaches metadata, cache keys or another collection. Collection
// names cannot contain ':' (domain.ValidCollectionName).
package keyspace

import "strconv"

// Keyspace builds keys under a common prefix.
type Keyspace struct {
	Prefix string
}

// New returns a keyspace for prefix.
func New(prefix string) Keyspace { return Keyspace{Prefix: prefix} }

// Meta is the collection metadata hash key.
func (k Keyspace) Meta(collection string) string { return k.Prefix + "collection:" + collection }

// Index is the FT index name of a collection.
func (k Keyspace) Index(collection string) string { return k.Prefix + collection + ":idx" }

// EntryPrefix is the key prefix indexed by the collection's FT index.
func (k Keyspace) EntryPrefix(collection string) string {
	return k.Prefix + "entry:" + collection + ":"
}

// Entry is the hash key of one index entry.
func (k Keyspace) Entry(collection string, id int) string {
	return k.EntryPrefix(collection) + strconv.Itoa(id)
}

// EmbeddingCache is the key of a cached embedding.
func (k Keyspace) EmbeddingCache(hash string) string { return k.Prefix + "emb_cache:" + hash }
