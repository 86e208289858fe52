package audit

import (
	"os"
	"testing"
)

func testLog(t *testing.T) *Log {
	t.Helper()
	f, err := os.CreateTemp("", "gebo-audit-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	l, err := Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := testLog(t)

	if err := l.Record("project.json", "add_node", "cache", `{"type":"Concept"}`); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record("project.json", "add_edge", "login->cache", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Record("other.json", "save", "", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	all, err := l.Recent("", 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	// Newest first.
	if all[0].Op != "save" {
		t.Errorf("first entry = %+v", all[0])
	}

	filtered, err := l.Recent("project.json", 10)
	if err != nil {
		t.Fatalf("Recent filtered: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("filtered len = %d, want 2", len(filtered))
	}
	for _, e := range filtered {
		if e.Graph != "project.json" {
			t.Errorf("entry for wrong graph: %+v", e)
		}
	}
}

func TestRecentLimit(t *testing.T) {
	l := testLog(t)
	for i := 0; i < 5; i++ {
		_ = l.Record("g.json", "add_node", "n", "")
	}
	got, err := l.Recent("g.json", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}
