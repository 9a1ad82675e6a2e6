package chatbot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/docuchat/docuchat/plugin/llm"
	"github.com/docuchat/docuchat/plugin/vectorstore"
)

// IngestResult reports what one ingestion produced.
type IngestResult struct {
	ChunksCreated int `json:"chunks_created"`
	TextLength    int `json:"text_length"`
}

// Ingest splits text into chunks and indexes them under the session. docType
// is a free-form tag stored with every chunk ("uploaded_pdf", "text").
// There is no rollback: a failure mid-way leaves the already-upserted chunks
// in the index.
func (b *ChatBot) Ingest(ctx context.Context, text, filename, sessionID, docType string) (*IngestResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &Error{
			Kind:      KindExtractionFailed,
			SessionID: sessionID,
			Err:       errors.Errorf("no text extracted from %s", filename),
		}
	}

	pieces := b.splitter.SplitText(text)
	total := len(pieces)
	chunks := make([]vectorstore.Chunk, 0, total)
	for i, piece := range pieces {
		chunks = append(chunks, vectorstore.Chunk{
			ID:      shortuuid.New(),
			Content: piece,
			Metadata: map[string]string{
				"filename":     filename,
				"session_id":   sessionID,
				"chunk_index":  strconv.Itoa(i),
				"total_chunks": strconv.Itoa(total),
				"type":         docType,
			},
		})
	}

	if err := b.index.Add(ctx, sessionID, chunks); err != nil {
		kind := KindIndexFailed
		if errors.Is(err, llm.ErrEmbedding) {
			kind = KindEmbeddingFailed
		}
		return nil, &Error{Kind: kind, SessionID: sessionID, Err: err}
	}

	slog.Info("ingested document", "session", sessionID, "filename", filename, "chunks", total, "chars", len(text))
	return &IngestResult{ChunksCreated: total, TextLength: len(text)}, nil
}
