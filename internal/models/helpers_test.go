package models

import (
	"testing"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

func TestRecordIDString(t *testing.T) {
	id := surrealmodels.NewRecordID("run", "abc123")

	s, err := RecordIDString(id)
	if err != nil {
		t.Fatalf("RecordIDString failed: %v", err)
	}
	if s != "abc123" {
		t.Errorf("RecordIDString = %q, want %q", s, "abc123")
	}

	if got := MustRecordIDString(id); got != "abc123" {
		t.Errorf("MustRecordIDString = %q, want %q", got, "abc123")
	}
}

func TestRecordIDString_NonString(t *testing.T) {
	id := surrealmodels.NewRecordID("run", 42)

	if _, err := RecordIDString(id); err == nil {
		t.Error("Expected error for non-string ID")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustRecordIDString should panic on non-string ID")
		}
	}()
	_ = MustRecordIDString(id)
}
