package opinionmap

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// EmbeddingCache persists embeddings in SQLite, keyed by a hash of the
// source text. Embedding the same opinion twice costs one API call.
type EmbeddingCache struct {
	db *sql.DB
}

// OpenEmbeddingCache opens (and if needed initializes) the cache database.
func OpenEmbeddingCache(path string) (*EmbeddingCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS embeddings (
		text_hash TEXT PRIMARY KEY,
		embedding_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
		return nil, err
	}

	return &EmbeddingCache{db: db}, nil
}

// Get returns the cached embedding for a text, if present.
func (c *EmbeddingCache) Get(text string) ([]float64, bool) {
	var embeddingJSON string
	err := c.db.QueryRow("SELECT embedding_json FROM embeddings WHERE text_hash = ?", hashText(text)).Scan(&embeddingJSON)
	if err != nil {
		return nil, false
	}

	var embedding []float64
	if err := json.Unmarshal([]byte(embeddingJSON), &embedding); err != nil {
		log.Printf("Failed to parse cached embedding: %v", err)
		return nil, false
	}

	return embedding, true
}

// Put stores an embedding for a text.
func (c *EmbeddingCache) Put(text string, embedding []float64) error {
	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO embeddings (text_hash, embedding_json) VALUES (?, ?)",
		hashText(text), string(embeddingJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (c *EmbeddingCache) Close() error {
	return c.db.Close()
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
