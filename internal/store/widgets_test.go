package store

import (
	"testing"
)

func TestCreateWidgetSeedsVersionOne(t *testing.T) {
	s := newTestStore(t)

	w, err := s.CreateWidget(&Widget{Name: "revenue-chart", Kind: "chart", Config: `{"metric":"mrr"}`})
	if err != nil {
		t.Fatalf("create widget: %v", err)
	}
	if w.ActiveVersion != 1 {
		t.Fatalf("expected active version 1, got %d", w.ActiveVersion)
	}

	versions, err := s.ListWidgetVersions(w.WidgetID)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 1 || !versions[0].Active {
		t.Fatalf("expected single active version, got %+v", versions)
	}
}

func TestCreateWidgetVersionSwapsActiveFlag(t *testing.T) {
	s := newTestStore(t)
	w, _ := s.CreateWidget(&Widget{Name: "w", Config: `{"a":1}`})

	v, err := s.CreateWidgetVersion(w.WidgetID, `{"a":2}`, "", VersionOriginManual, "tweak", true)
	if err != nil {
		t.Fatalf("create version: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}

	got, _ := s.GetWidget(w.WidgetID)
	if got.ActiveVersion != 2 || got.Config != `{"a":2}` {
		t.Fatalf("widget row not swapped: %+v", got)
	}

	v1, _ := s.GetWidgetVersion(w.WidgetID, 1)
	v2, _ := s.GetWidgetVersion(w.WidgetID, 2)
	if v1.Active {
		t.Error("version 1 should be inactive after swap")
	}
	if !v2.Active {
		t.Error("version 2 should be active")
	}
}

func TestCreateWidgetVersionWithoutActivation(t *testing.T) {
	s := newTestStore(t)
	w, _ := s.CreateWidget(&Widget{Name: "w", Config: `{"a":1}`})

	v, err := s.CreateWidgetVersion(w.WidgetID, `{"a":9}`, "", VersionOriginSuggested, "llm suggestion", false)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}

	// Widget row untouched: suggestion is pending until a human activates it.
	got, _ := s.GetWidget(w.WidgetID)
	if got.ActiveVersion != 1 || got.Config != `{"a":1}` {
		t.Fatalf("widget row should be unchanged: %+v", got)
	}
}

func TestRollbackWidget(t *testing.T) {
	s := newTestStore(t)
	w, _ := s.CreateWidget(&Widget{Name: "w", Config: `{"v":1}`, Source: "src1"})
	s.CreateWidgetVersion(w.WidgetID, `{"v":2}`, "src2", VersionOriginManual, "", true)
	s.CreateWidgetVersion(w.WidgetID, `{"v":3}`, "src3", VersionOriginManual, "", true)

	newV, err := s.RollbackWidget(w.WidgetID, 1)
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if newV != 4 {
		t.Fatalf("rollback should append version 4, got %d", newV)
	}

	got, _ := s.GetWidget(w.WidgetID)
	if got.Config != `{"v":1}` || got.Source != "src1" {
		t.Fatalf("rollback did not restore column values: %+v", got)
	}
	if got.ActiveVersion != 4 {
		t.Fatalf("active version should be the rollback snapshot, got %d", got.ActiveVersion)
	}

	v4, _ := s.GetWidgetVersion(w.WidgetID, 4)
	if v4.Origin != VersionOriginRollback {
		t.Errorf("expected rollback origin, got %s", v4.Origin)
	}
}

func TestRollbackToMissingVersion(t *testing.T) {
	s := newTestStore(t)
	w, _ := s.CreateWidget(&Widget{Name: "w"})
	if _, err := s.RollbackWidget(w.WidgetID, 99); err == nil {
		t.Fatal("expected error rolling back to missing version")
	}
}

func TestSoftDeleteWidgetKeepsHistory(t *testing.T) {
	s := newTestStore(t)
	w, _ := s.CreateWidget(&Widget{Name: "w"})
	s.CreateWidgetVersion(w.WidgetID, `{}`, "", VersionOriginManual, "", true)

	if err := s.SoftDeleteWidget(w.WidgetID); err != nil {
		t.Fatal(err)
	}
	widgets, _ := s.ListWidgets("")
	if len(widgets) != 0 {
		t.Fatalf("deleted widget still listed: %+v", widgets)
	}
	versions, _ := s.ListWidgetVersions(w.WidgetID)
	if len(versions) != 2 {
		t.Fatalf("version history should survive soft delete, got %d", len(versions))
	}
}
