package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"sortable/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS products (
  productName TEXT PRIMARY KEY,
  manufacturer TEXT,
  family TEXT,
  model TEXT,
  announcedDate TEXT,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_manufacturer ON products(manufacturer);

CREATE TABLE IF NOT EXISTS feeds (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS listings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  feedId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  source TEXT NOT NULL,
  manufacturer TEXT,
  title TEXT,
  rawJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(feedId, lineNo, source),
  FOREIGN KEY(feedId) REFERENCES feeds(id)
);

CREATE TABLE IF NOT EXISTS assignments (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  listingId INTEGER NOT NULL UNIQUE,
  status TEXT NOT NULL,
  productName TEXT,
  manufacturerKey TEXT,
  familyKey TEXT,
  modelKey TEXT,
  candidateCount INTEGER NOT NULL DEFAULT 0,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(listingId) REFERENCES listings(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  feedId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(feedId) REFERENCES feeds(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertProducts(products []internal.Product) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO products (productName, manufacturer, family, model, announcedDate, raw_json, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(productName) DO UPDATE SET
  manufacturer=excluded.manufacturer,
  family=excluded.family,
  model=excluded.model,
  announcedDate=excluded.announcedDate,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		rawJSON, _ := json.Marshal(p)
		if _, err := stmt.Exec(p.ProductName, p.Manufacturer, p.Family, p.Model, p.AnnouncedDate, string(rawJSON)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListProducts returns cached catalog products in insertion order.
// Matching determinism depends on that order surviving the round trip.
func (d *DB) ListProducts() ([]internal.Product, error) {
	rows, err := d.conn.Query(`
SELECT productName, manufacturer, family, model, announcedDate
FROM products ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Product
	for rows.Next() {
		var p internal.Product
		if err := rows.Scan(&p.ProductName, &p.Manufacturer, &p.Family, &p.Model, &p.AnnouncedDate); err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (d *DB) UpsertFeed(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.FeedRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO feeds (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.FeedRow{}, err
	}

	row, err := d.GetFeedByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.FeedRow{}, err
	}
	if row == nil {
		return internal.FeedRow{}, errors.New("failed to upsert feed")
	}
	return *row, nil
}

func (d *DB) GetFeedByProviderMessageID(provider, messageID string) (*internal.FeedRow, error) {
	var row internal.FeedRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM feeds WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetFeedByID(id int) (*internal.FeedRow, error) {
	var row internal.FeedRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM feeds WHERE id = ?
`, id).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListFeedsByStatus(status string, limit int) ([]internal.FeedRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM feeds WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.FeedRow
	for rows.Next() {
		var row internal.FeedRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateFeedStatus(feedID int, status string) error {
	_, err := d.conn.Exec(`UPDATE feeds SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, feedID)
	return err
}

func (d *DB) ClearFeedProcessing(feedID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.Query(`SELECT id FROM listings WHERE feedId = ?`, feedID)
	if err != nil {
		return err
	}
	var listingIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return err
		}
		listingIDs = append(listingIDs, id)
	}
	_ = rows.Close()

	for _, id := range listingIDs {
		if _, err := tx.Exec(`DELETE FROM assignments WHERE listingId = ?`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM listings WHERE id = ?`, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) InsertListing(feedID int, listing internal.Listing) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO listings (feedId, lineNo, source, manufacturer, title, rawJson)
VALUES (?, ?, ?, ?, ?, ?)
`, feedID, listing.LineNo, string(listing.Source), listing.Manufacturer, listing.Title, string(listing.Raw))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) InsertAssignment(listingID int64, result internal.MatchResult) error {
	var productName, manKey, famKey, modKey *string
	if result.Status == internal.StatusMatched {
		name := result.ProductName
		productName = &name
	}
	if result.Candidate != nil {
		manKey = &result.Candidate.Manufacturer
		famKey = &result.Candidate.Family
		modKey = &result.Candidate.Model
	}

	_, err := d.conn.Exec(`
INSERT INTO assignments (listingId, status, productName, manufacturerKey, familyKey, modelKey, candidateCount)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, listingID, string(result.Status), productName, manKey, famKey, modKey, result.CandidateCount)
	return err
}

func (d *DB) InsertRun(traceID string, feedID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, feedId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, feedID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) GetExportRows(feedID int) ([]internal.AssignmentExportRow, error) {
	rows, err := d.conn.Query(`
SELECT
  l.lineNo,
  l.source,
  l.manufacturer,
  l.title,
  l.rawJson,
  a.status,
  a.productName,
  a.manufacturerKey,
  a.familyKey,
  a.modelKey,
  a.candidateCount
FROM listings l
JOIN assignments a ON a.listingId = l.id
WHERE l.feedId = ?
ORDER BY
  CASE a.status WHEN 'MATCHED' THEN 1 ELSE 2 END,
  l.lineNo ASC
`, feedID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.AssignmentExportRow
	for rows.Next() {
		var row internal.AssignmentExportRow
		if err := rows.Scan(
			&row.InputLineNo,
			&row.Source,
			&row.Manufacturer,
			&row.Title,
			&row.RawListing,
			&row.MatchStatus,
			&row.ProductName,
			&row.ManufacturerKey,
			&row.FamilyKey,
			&row.ModelKey,
			&row.CandidateCount,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

func (d *DB) MustFeedByProviderMessageID(provider, messageID string) (internal.FeedRow, error) {
	row, err := d.GetFeedByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.FeedRow{}, err
	}
	if row == nil {
		return internal.FeedRow{}, fmt.Errorf("feed not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}
