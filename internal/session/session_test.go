package session

import (
	"testing"
)

func TestSessionHistoryWindow(t *testing.T) {
	s := New("atlas:user-1")
	for _, msg := range []string{"one", "two", "three", "four"} {
		s.Append("user", msg)
	}

	hist := s.History(2)
	if len(hist) != 2 {
		t.Fatalf("history length = %d, want 2", len(hist))
	}
	if hist[0].Content != "three" || hist[1].Content != "four" {
		t.Errorf("history = %v", hist)
	}

	if got := s.History(10); len(got) != 4 {
		t.Errorf("full history length = %d, want 4", len(got))
	}
	if got := s.History(0); len(got) != 4 {
		t.Errorf("unbounded history length = %d, want 4", len(got))
	}
}

func TestManagerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	s := m.GetOrCreate("atlas:user-1")
	s.Append("user", "hello")
	s.Append("assistant", "hi there")
	s.SetMeta("hub", "personal")
	if err := m.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Fresh manager forces a disk load.
	m2 := NewManager(dir)
	loaded := m2.GetOrCreate("atlas:user-1")
	if len(loaded.Messages) != 2 {
		t.Fatalf("loaded %d messages, want 2", len(loaded.Messages))
	}
	if loaded.Messages[1].Content != "hi there" {
		t.Errorf("message = %q", loaded.Messages[1].Content)
	}
	if hub, ok := loaded.Meta("hub"); !ok || hub != "personal" {
		t.Errorf("metadata hub = %v, %v", hub, ok)
	}
}

func TestManagerList(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	s := m.GetOrCreate("atlas:planning")
	s.SetMeta("title", "Plan the week")
	s.Append("user", "plan my week")
	if err := m.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}

	infos := m.List()
	if len(infos) != 1 {
		t.Fatalf("listed %d sessions, want 1", len(infos))
	}
	if infos[0].Key != "atlas:planning" {
		t.Errorf("key = %q", infos[0].Key)
	}
	if infos[0].Title != "Plan the week" {
		t.Errorf("title = %q", infos[0].Title)
	}
	if infos[0].UpdatedAt.IsZero() {
		t.Error("updated_at not populated from header")
	}
}

func TestManagerDelete(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	s := m.GetOrCreate("atlas:gone")
	s.Append("user", "x")
	if err := m.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}

	if !m.Delete("atlas:gone") {
		t.Fatal("delete returned false for existing session")
	}
	if m.Delete("atlas:gone") {
		t.Fatal("delete returned true for missing session")
	}
	if len(m.List()) != 0 {
		t.Error("session still listed after delete")
	}
}

func TestSessionPathSanitized(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	s := m.GetOrCreate("../../etc/passwd")
	s.Append("user", "x")
	if err := m.Save(s); err != nil {
		t.Fatalf("save: %v", err)
	}

	infos := m.List()
	if len(infos) != 1 {
		t.Fatalf("listed %d sessions, want 1", len(infos))
	}
}
