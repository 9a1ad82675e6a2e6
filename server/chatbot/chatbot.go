// Package chatbot implements the conversational retrieval pipeline: question
// contextualization, top-k retrieval, grounded generation, and per-session
// history updates.
package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docuchat/docuchat/plugin/textsplitter"
	"github.com/docuchat/docuchat/plugin/vectorstore"
	"github.com/docuchat/docuchat/store"
)

// DefaultK is the retrieval depth when the caller does not ask for one.
const DefaultK = 3

const (
	contextualizeInstruction = "Given the chat history, rewrite the new question to be " +
		"standalone and searchable. Just return the rewritten question."

	answerInstruction = "You are a helpful assistant that answers questions based on " +
		"provided documents and conversation history."

	refusalSentence = "I don't have enough information to answer that question " +
		"based on the provided documents."
)

// Completer is the completion-provider contract the pipeline depends on.
type Completer interface {
	Complete(ctx context.Context, messages []store.Message) (string, error)
	Name() string
}

// Index is the vector-index contract the pipeline depends on.
type Index interface {
	Add(ctx context.Context, sessionID string, chunks []vectorstore.Chunk) error
	Query(ctx context.Context, sessionID, query string, k int) ([]vectorstore.SearchResult, error)
}

// Source is one retrieved chunk included in a verbose chat result.
type Source struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// ChatResult is the outcome of one chat turn. The verbose fields are present
// only when the caller asked for them.
type ChatResult struct {
	Message   string `json:"message"`
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`

	ContextualizedQuestion *string  `json:"contextualized_question,omitempty"`
	Sources                []Source `json:"sources,omitempty"`
	NumSources             *int     `json:"num_sources,omitempty"`
}

// ChatBot orchestrates sessions, retrieval and generation.
type ChatBot struct {
	sessions *store.Registry
	index    Index
	llm      Completer
	splitter *textsplitter.CharacterSplitter
}

// New builds the pipeline. splitter may be nil, in which case ingestion uses
// the default chunking parameters.
func New(sessions *store.Registry, index Index, llm Completer, splitter *textsplitter.CharacterSplitter) *ChatBot {
	if splitter == nil {
		splitter = textsplitter.New(0, -1, "")
	}
	return &ChatBot{sessions: sessions, index: index, llm: llm, splitter: splitter}
}

// Sessions exposes the underlying session registry.
func (b *ChatBot) Sessions() *store.Registry { return b.sessions }

// Chat runs one conversational turn for the session. The whole turn is
// serialized per session id; turns on other sessions proceed concurrently.
// History is only mutated after generation succeeds.
func (b *ChatBot) Chat(ctx context.Context, sessionID, message string, k int, verbose bool) (*ChatResult, error) {
	if k < 1 {
		k = DefaultK
	}
	sess := b.sessions.GetOrCreate(sessionID)
	sess.BeginTurn()
	defer sess.EndTurn()

	history := sess.History()

	// Step 1: contextualize the question. With no prior turns the raw
	// message is already standalone, so skip the model call.
	query := message
	if len(history) > 0 {
		rewritten, err := b.contextualize(ctx, history, message)
		if err != nil {
			return nil, &Error{Kind: KindGenerationFailed, SessionID: sessionID, Provider: b.llm.Name(), Err: err}
		}
		if rewritten != "" {
			query = rewritten
		}
	}

	// Step 2: retrieve the k most similar chunks of this session.
	docs, err := b.index.Query(ctx, sessionID, query, k)
	if err != nil {
		return nil, &Error{Kind: KindIndexFailed, SessionID: sessionID, Err: err}
	}

	// Step 3: grounded generation against the original (non-rewritten)
	// message plus the retrieved texts.
	messages := make([]store.Message, 0, len(history)+2)
	messages = append(messages, store.Message{Role: store.RoleSystem, Content: answerInstruction})
	messages = append(messages, history...)
	messages = append(messages, store.Message{Role: store.RoleHuman, Content: groundedMessage(message, docs)})

	answer, err := b.llm.Complete(ctx, messages)
	if err != nil {
		return nil, &Error{Kind: KindGenerationFailed, SessionID: sessionID, Provider: b.llm.Name(), Err: err}
	}

	// Step 4: append the human turn then the AI turn, even when retrieval
	// came back empty.
	sess.Append(
		store.Message{Role: store.RoleHuman, Content: message},
		store.Message{Role: store.RoleAI, Content: answer},
	)

	slog.Info("chat turn", "session", sessionID, "sources", len(docs), "history", sess.Len())

	result := &ChatResult{
		Message:   message,
		Answer:    answer,
		SessionID: sessionID,
	}
	if verbose {
		if query != message {
			result.ContextualizedQuestion = &query
		}
		result.Sources = make([]Source, 0, len(docs))
		for _, d := range docs {
			result.Sources = append(result.Sources, Source{Content: d.Content, Metadata: d.Metadata})
		}
		n := len(docs)
		result.NumSources = &n
	}
	return result, nil
}

// contextualize rewrites a follow-up question into a standalone query using
// the prior turns. The rewrite is never appended to history.
func (b *ChatBot) contextualize(ctx context.Context, history []store.Message, message string) (string, error) {
	messages := make([]store.Message, 0, len(history)+2)
	messages = append(messages, store.Message{Role: store.RoleSystem, Content: contextualizeInstruction})
	messages = append(messages, history...)
	messages = append(messages, store.Message{Role: store.RoleHuman, Content: "New question: " + message})

	out, err := b.llm.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// groundedMessage embeds the user's question and the retrieved chunk texts in
// a single instruction that confines the model to the supplied documents.
func groundedMessage(message string, docs []vectorstore.SearchResult) string {
	var lines strings.Builder
	for _, d := range docs {
		lines.WriteString("- ")
		lines.WriteString(d.Content)
		lines.WriteString("\n")
	}
	return fmt.Sprintf(
		"Based on the following documents, please answer this question: %s\n\n"+
			"Documents:\n%s\n"+
			"Please provide a clear, helpful answer using only the information from "+
			"these documents. If you can't find the answer in the documents, say %q",
		message, lines.String(), refusalSentence,
	)
}
