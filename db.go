package main

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS complaints (
		complaint_id TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		body         TEXT NOT NULL,
		status       TEXT DEFAULT '',
		public_link  TEXT DEFAULT '',
		opened_at    TEXT DEFAULT '',
		collected_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_complaints_collected_at ON complaints(collected_at);

	CREATE TABLE IF NOT EXISTS classification_history (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		complaint_id  TEXT NOT NULL,
		category      TEXT NOT NULL,
		llm_provider  TEXT DEFAULT '',
		llm_model     TEXT DEFAULT '',
		classified_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_ch_complaint ON classification_history(complaint_id);
	CREATE INDEX IF NOT EXISTS idx_ch_date ON classification_history(classified_at);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func ComplaintExists(db *sql.DB, complaintID string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM complaints WHERE complaint_id = ?", complaintID).Scan(&count)
	return count > 0, err
}

// InsertComplaints records the complaints not yet in the database and
// returns how many were new. Existing IDs are left untouched.
func InsertComplaints(db *sql.DB, complaints []Complaint) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO complaints (complaint_id, title, body, status, public_link, opened_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range complaints {
		res, err := stmt.Exec(c.ID, c.Title, c.Text, c.Status, c.PublicLink, c.OpenedAt)
		if err != nil {
			return inserted, err
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	return inserted, tx.Commit()
}

func CountComplaints(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM complaints").Scan(&count)
	return count, err
}

func InsertClassificationHistory(db *sql.DB, assignments []Assignment, provider, model string) error {
	if len(assignments) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO classification_history (complaint_id, category, llm_provider, llm_model)
		 VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range assignments {
		if _, err := stmt.Exec(a.ComplaintID, a.Category, provider, model); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func LatestCategoryFor(db *sql.DB, complaintID string) (string, error) {
	var category string
	err := db.QueryRow(
		`SELECT category FROM classification_history
		 WHERE complaint_id = ?
		 ORDER BY classified_at DESC, id DESC LIMIT 1`,
		complaintID,
	).Scan(&category)
	return category, err
}
