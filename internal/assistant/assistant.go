// Package assistant implements Atlas, the dashboard chat assistant.
// Replies are grounded in the user's own data: each turn runs a semantic
// search over indexed tasks, goals, habits, and widgets and folds the
// best matches into the system prompt.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/atlasos/atlas/internal/memory"
	"github.com/atlasos/atlas/internal/provider"
	"github.com/atlasos/atlas/internal/session"
	"github.com/atlasos/atlas/internal/store"
)

const systemPersona = `You are Atlas, the assistant built into the user's dashboard.
You help them manage tasks, goals, habits, and widgets. Be concise and
practical. When the context below contains relevant items from their
dashboard, ground your answer in them; never invent items that are not
listed.`

// Options tune context assembly for each chat turn.
type Options struct {
	HistoryMessages int     // how many prior messages to replay
	SearchTopK      int     // max context chunks per turn
	SearchMinScore  float64 // similarity floor for context chunks
	ContextBudget   int     // max characters of context text
	MaxTokens       int
	Temperature     float64
}

// Assistant answers chat turns for one deployment.
type Assistant struct {
	store    *store.Store
	sessions *session.Manager
	prov     provider.LLMProvider
	searcher *memory.Searcher
	opts     Options
	logger   *slog.Logger
}

// New creates an assistant. searcher may be nil when no embedder is
// configured; replies then run without dashboard context.
func New(st *store.Store, sessions *session.Manager, prov provider.LLMProvider, searcher *memory.Searcher, opts Options, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.HistoryMessages <= 0 {
		opts.HistoryMessages = 20
	}
	if opts.SearchTopK <= 0 {
		opts.SearchTopK = 5
	}
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = 3600
	}
	return &Assistant{
		store:    st,
		sessions: sessions,
		prov:     prov,
		searcher: searcher,
		opts:     opts,
		logger:   logger,
	}
}

// ErrEmptyMessage is returned by Chat when the user message is blank after
// trimming. Callers treat it as invalid input rather than a provider failure.
var ErrEmptyMessage = errors.New("empty message")

// Reply is the result of one chat turn.
type Reply struct {
	Content      string         `json:"content"`
	Usage        provider.Usage `json:"usage"`
	ContextRefs  []string       `json:"context_refs,omitempty"`
	SessionKey   string         `json:"session_key"`
	FinishReason string         `json:"finish_reason,omitempty"`
}

// Chat runs one turn: context search, provider call, session append. When
// taskID is non-empty the turn's token usage is accumulated onto that task
// row.
func (a *Assistant) Chat(ctx context.Context, sessionKey, taskID, userMessage string) (*Reply, error) {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return nil, ErrEmptyMessage
	}
	if sessionKey == "" {
		sessionKey = "atlas:default"
	}

	sess := a.sessions.GetOrCreate(sessionKey)

	contextText, refs := a.buildContext(ctx, userMessage)

	messages := []provider.Message{{Role: "system", Content: a.systemPrompt(contextText)}}
	for _, m := range sess.History(a.opts.HistoryMessages) {
		messages = append(messages, provider.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, provider.Message{Role: "user", Content: userMessage})

	resp, err := a.prov.Chat(ctx, &provider.ChatRequest{
		Messages:    messages,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if _, ok := sess.Meta("title"); !ok {
		sess.SetMeta("title", sessionTitle(userMessage))
	}
	sess.Append("user", userMessage)
	sess.Append("assistant", resp.Content)
	if err := a.sessions.Save(sess); err != nil {
		a.logger.Warn("save session failed", "session", sessionKey, "error", err)
	}

	if taskID != "" {
		if err := a.store.UpdateTaskTokens(taskID, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens); err != nil {
			a.logger.Warn("record token usage failed", "task_id", taskID, "error", err)
		}
	}

	return &Reply{
		Content:      resp.Content,
		Usage:        resp.Usage,
		ContextRefs:  refs,
		SessionKey:   sessionKey,
		FinishReason: resp.FinishReason,
	}, nil
}

// Sessions lists stored conversation summaries, most recently updated
// first.
func (a *Assistant) Sessions() []session.Info {
	infos := a.sessions.List()
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos
}

// DeleteSession removes a conversation and its file. Returns false when no
// session existed for the key.
func (a *Assistant) DeleteSession(sessionKey string) bool {
	return a.sessions.Delete(sessionKey)
}

// sessionTitle derives a short listing title from the first user message.
func sessionTitle(message string) string {
	const max = 60
	if len(message) > max {
		message = strings.TrimSpace(message[:max]) + "..."
	}
	return message
}

func (a *Assistant) systemPrompt(contextText string) string {
	if contextText == "" {
		return systemPersona
	}
	return systemPersona + "\n\nContext from the user's dashboard:\n" + contextText
}

// buildContext runs the semantic search and packs results into the
// character budget. Search failures degrade to a context-free reply.
func (a *Assistant) buildContext(ctx context.Context, query string) (string, []string) {
	if a.searcher == nil {
		return "", nil
	}
	results, err := a.searcher.Search(ctx, query, a.opts.SearchTopK, a.opts.SearchMinScore)
	if err != nil {
		a.logger.Warn("context search failed", "error", err)
		return "", nil
	}

	var b strings.Builder
	var refs []string
	for _, r := range results {
		line := "- " + r.Chunk.Content
		if b.Len()+len(line)+1 > a.opts.ContextBudget {
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
		refs = append(refs, r.Chunk.ID)
	}
	return strings.TrimRight(b.String(), "\n"), refs
}
