// Package session provides file-backed conversation history for the
// assistant. Each session is a JSONL file: one header line followed by
// one line per message.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Message is one turn of a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Session holds the message history for one conversation key. Keys are
// namespaced like "atlas:default" or "hub:group:standup".
type Session struct {
	Key       string         `json:"key"`
	Messages  []Message      `json:"messages"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	mu        sync.RWMutex
}

// New creates an empty session with the given key.
func New(key string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]any{},
	}
}

// Append adds a message to the session.
func (s *Session) Append(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// History returns up to max recent messages, oldest first.
func (s *Session) History(max int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if max > 0 && len(s.Messages) > max {
		start = len(s.Messages) - max
	}
	out := make([]Message, len(s.Messages)-start)
	copy(out, s.Messages[start:])
	return out
}

// Clear drops all messages but keeps the session and its metadata.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Messages = []Message{}
	s.UpdatedAt = time.Now()
}

// Meta returns a metadata value by key.
func (s *Session) Meta(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Metadata == nil {
		return nil, false
	}
	val, ok := s.Metadata[key]
	return val, ok
}

// SetMeta sets a metadata value by key.
func (s *Session) SetMeta(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	s.Metadata[key] = value
	s.UpdatedAt = time.Now()
}

// header is the first line of every session file. The _type discriminator
// keeps it distinguishable from message lines when decoding.
type header struct {
	Type      string         `json:"_type"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Metadata  map[string]any `json:"metadata"`
}

// Manager persists sessions under one directory, with an in-memory cache so
// repeated chat turns on the same key share a Session value.
type Manager struct {
	dir   string
	cache map[string]*Session
	mu    sync.RWMutex
}

// NewManager creates a session manager rooted at dir, creating the
// directory if needed.
func NewManager(dir string) *Manager {
	os.MkdirAll(dir, 0755)

	return &Manager{
		dir:   dir,
		cache: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for key, loading it from disk on first
// access and creating it when no file exists.
func (m *Manager) GetOrCreate(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.cache[key]; ok {
		return sess
	}
	sess := m.load(key)
	if sess == nil {
		sess = New(key)
	}
	m.cache[key] = sess
	return sess
}

// Save writes the session file: header line, then one line per message.
func (m *Manager) Save(sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.path(sess.Key)

	sess.mu.RLock()
	defer sess.mu.RUnlock()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	if err := enc.Encode(header{
		Type:      "metadata",
		CreatedAt: sess.CreatedAt.Format(time.RFC3339),
		UpdatedAt: sess.UpdatedAt.Format(time.RFC3339),
		Metadata:  sess.Metadata,
	}); err != nil {
		return fmt.Errorf("write session header: %w", err)
	}
	for _, msg := range sess.Messages {
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("write session message: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush session file: %w", err)
	}

	m.cache[sess.Key] = sess
	return nil
}

// Delete removes the session file and cache entry. Returns false when no
// file existed for the key.
func (m *Manager) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cache, key)
	return os.Remove(m.path(key)) == nil
}

// Info summarizes one stored session without loading its messages.
type Info struct {
	Key       string    `json:"key"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// List returns a summary of every stored session, read from each file's
// header line.
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil
	}

	var out []Info
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".jsonl") {
			continue
		}
		info := Info{
			Key: strings.ReplaceAll(strings.TrimSuffix(entry.Name(), ".jsonl"), "_", ":"),
		}
		if hdr := readHeader(filepath.Join(m.dir, entry.Name())); hdr != nil {
			info.CreatedAt, _ = time.Parse(time.RFC3339, hdr.CreatedAt)
			info.UpdatedAt, _ = time.Parse(time.RFC3339, hdr.UpdatedAt)
			if title, ok := hdr.Metadata["title"].(string); ok {
				info.Title = title
			}
		}
		out = append(out, info)
	}
	return out
}

func readHeader(path string) *header {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return nil
	}
	var hdr header
	if json.Unmarshal(scanner.Bytes(), &hdr) != nil || hdr.Type != "metadata" {
		return nil
	}
	return &hdr
}

// path maps a session key to its file. Separators and traversal components
// are stripped so a hostile key cannot escape the sessions directory.
func (m *Manager) path(key string) string {
	safe := strings.NewReplacer(":", "_", "/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(m.dir, filepath.Base(safe)+".jsonl")
}

func (m *Manager) load(key string) *Session {
	file, err := os.Open(m.path(key))
	if err != nil {
		return nil
	}
	defer file.Close()

	sess := New(key)
	dec := json.NewDecoder(file)
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			break
		}
		var hdr header
		if json.Unmarshal(raw, &hdr) == nil && hdr.Type == "metadata" {
			sess.CreatedAt, _ = time.Parse(time.RFC3339, hdr.CreatedAt)
			sess.UpdatedAt, _ = time.Parse(time.RFC3339, hdr.UpdatedAt)
			if hdr.Metadata != nil {
				sess.Metadata = hdr.Metadata
			}
			continue
		}
		var msg Message
		if json.Unmarshal(raw, &msg) == nil {
			sess.Messages = append(sess.Messages, msg)
		}
	}
	return sess
}
