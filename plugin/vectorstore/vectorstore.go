// Package vectorstore wraps chromem-go with per-session document collections.
// Scoping retrieval to the owning session keeps one session's uploads from
// leaking into another session's answers.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Chunk is one indexable span of document text plus its metadata tags
// (filename, session_id, chunk_index, total_chunks, type).
type Chunk struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// SearchResult is a single semantic-search hit, ranked by cosine similarity.
type SearchResult struct {
	Content  string
	Metadata map[string]string
	Score    float32
}

// Store wraps chromem-go with per-session collections and optional disk
// persistence. embedFn is invoked by chromem for every added chunk and query.
type Store struct {
	mu      sync.RWMutex
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
}

// New creates an in-memory vector store. Used by tests and by deployments
// that can afford to re-ingest on restart.
func New(embedFn chromem.EmbeddingFunc) *Store {
	return &Store{db: chromem.NewDB(), embedFn: embedFn}
}

// NewPersistent creates (or opens) the persistent vector store at
// dataDir/vectorstore/.
func NewPersistent(dataDir string, embedFn chromem.EmbeddingFunc) (*Store, error) {
	dir := filepath.Join(dataDir, "vectorstore")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create vectorstore dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vectorstore: %w", err)
	}
	return &Store{db: db, embedFn: embedFn}, nil
}

// collectionName returns the per-session collection name.
func collectionName(sessionID string) string {
	return "session_" + sessionID + "_docs"
}

func (s *Store) getOrCreateCollection(sessionID string) (*chromem.Collection, error) {
	col, err := s.db.GetOrCreateCollection(collectionName(sessionID), nil, s.embedFn)
	if err != nil {
		return nil, fmt.Errorf("collection for session %s: %w", sessionID, err)
	}
	return col, nil
}

// Add indexes chunks under the session's collection. Embedding happens inside
// chromem via embedFn; a partial failure can leave earlier chunks indexed.
func (s *Store) Add(ctx context.Context, sessionID string, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.getOrCreateCollection(sessionID)
	if err != nil {
		return err
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, chromem.Document{
			ID:       c.ID,
			Content:  c.Content,
			Metadata: c.Metadata,
		})
	}
	return col.AddDocuments(ctx, docs, runtime.NumCPU())
}

// Query returns the top-k chunks of the session most similar to query, best
// first. Returns at most k results, fewer if the collection is smaller.
func (s *Store) Query(ctx context.Context, sessionID, query string, k int) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.db.GetCollection(collectionName(sessionID), s.embedFn)
	if col == nil {
		return nil, nil
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	var results []chromem.Result
	var err error

	// chromem-go sometimes throws "nResults must be <= number of documents"
	// despite Count checks. Step down k if it fails.
	for attemptK := k; attemptK > 0; attemptK-- {
		results, err = col.Query(ctx, query, attemptK, nil, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, SearchResult{
			Content:  r.Content,
			Metadata: r.Metadata,
			Score:    r.Similarity,
		})
	}
	return out, nil
}

// Count returns the number of indexed chunks for the session.
func (s *Store) Count(sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.db.GetCollection(collectionName(sessionID), s.embedFn)
	if col == nil {
		return 0
	}
	return col.Count()
}

// DeleteSession drops every indexed chunk owned by the session and returns
// how many were removed. Deleting an unknown session removes nothing.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := collectionName(sessionID)
	col := s.db.GetCollection(name, s.embedFn)
	if col == nil {
		return 0, nil
	}
	removed := col.Count()
	if err := s.db.DeleteCollection(name); err != nil {
		return 0, fmt.Errorf("delete collection for session %s: %w", sessionID, err)
	}
	slog.Info("deleted session embeddings", "session", sessionID, "removed", removed)
	return removed, nil
}

// DeleteFile removes the chunks of one document (by filename metadata) from
// the session's collection and returns how many were removed.
func (s *Store) DeleteFile(ctx context.Context, sessionID, filename string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	col := s.db.GetCollection(collectionName(sessionID), s.embedFn)
	if col == nil {
		return 0, nil
	}
	before := col.Count()
	if err := col.Delete(ctx, map[string]string{"filename": filename}, nil); err != nil {
		return 0, fmt.Errorf("delete chunks of %s: %w", filename, err)
	}
	return before - col.Count(), nil
}
