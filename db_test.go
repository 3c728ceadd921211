package main

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "raclassify-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestInsertComplaintsSkipsExisting(t *testing.T) {
	db := newTestDB(t)

	batch := []Complaint{
		{ID: "COMPLAINT_1", Title: "Motor fundiu", Text: "parou na estrada", Status: "Respondida"},
		{ID: "COMPLAINT_2", Title: "Sem retorno", Text: "aguardando", Status: "Aguardando resposta"},
	}
	inserted, err := InsertComplaints(db, batch)
	if err != nil {
		t.Fatalf("InsertComplaints failed: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 inserted, got %d", inserted)
	}

	// Second run overlaps on COMPLAINT_2.
	inserted, err = InsertComplaints(db, []Complaint{
		{ID: "COMPLAINT_2", Title: "Sem retorno", Text: "aguardando"},
		{ID: "COMPLAINT_3", Title: "Pintura", Text: "bolhas na pintura"},
	})
	if err != nil {
		t.Fatalf("InsertComplaints failed: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("expected 1 new insert, got %d", inserted)
	}

	total, err := CountComplaints(db)
	if err != nil {
		t.Fatalf("CountComplaints failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 complaints, got %d", total)
	}

	exists, err := ComplaintExists(db, "COMPLAINT_1")
	if err != nil || !exists {
		t.Fatalf("expected COMPLAINT_1 to exist, exists=%v err=%v", exists, err)
	}
	exists, _ = ComplaintExists(db, "COMPLAINT_99")
	if exists {
		t.Fatal("expected COMPLAINT_99 to be absent")
	}
}

func TestClassificationHistory(t *testing.T) {
	db := newTestDB(t)

	assignments := []Assignment{
		{ComplaintID: "COMPLAINT_1", Category: "ENGINE_DEFECTS"},
		{ComplaintID: "COMPLAINT_2", Category: CategoryOther},
	}
	if err := InsertClassificationHistory(db, assignments, "openai", "gpt-4o-mini"); err != nil {
		t.Fatalf("InsertClassificationHistory failed: %v", err)
	}

	category, err := LatestCategoryFor(db, "COMPLAINT_1")
	if err != nil {
		t.Fatalf("LatestCategoryFor failed: %v", err)
	}
	if category != "ENGINE_DEFECTS" {
		t.Fatalf("expected ENGINE_DEFECTS, got %s", category)
	}

	// A re-run supersedes the earlier assignment.
	if err := InsertClassificationHistory(db, []Assignment{
		{ComplaintID: "COMPLAINT_1", Category: "DEALER_SERVICE"},
	}, "openai", "gpt-4o"); err != nil {
		t.Fatalf("InsertClassificationHistory failed: %v", err)
	}
	category, err = LatestCategoryFor(db, "COMPLAINT_1")
	if err != nil {
		t.Fatalf("LatestCategoryFor failed: %v", err)
	}
	if category != "DEALER_SERVICE" {
		t.Fatalf("expected latest DEALER_SERVICE, got %s", category)
	}
}

func TestInsertClassificationHistoryEmpty(t *testing.T) {
	db := newTestDB(t)
	if err := InsertClassificationHistory(db, nil, "openai", "gpt-4o-mini"); err != nil {
		t.Fatalf("empty insert should be a no-op, got %v", err)
	}
}
