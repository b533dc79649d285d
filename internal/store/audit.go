package store

import "time"

// SyncOutcome is one resolved bookmark query.
type SyncOutcome struct {
	Backend    string
	RequestID  string
	Outcome    string
	Records    int
	Detail     string
	OccurredAt int64
}

// Push is one full-set bookmark update sent to the server.
type Push struct {
	Backend    string
	RequestID  string
	Records    int
	Error      string
	OccurredAt int64
}

// RecordSyncOutcome appends how a bookmark query ended.
func (db *DB) RecordSyncOutcome(o SyncOutcome) error {
	if o.OccurredAt == 0 {
		o.OccurredAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO sync_outcomes (backend, request_id, outcome, records, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.Backend, o.RequestID, o.Outcome, o.Records, o.Detail, o.OccurredAt)
	return err
}

// RecordPush appends a sent (or failed) bookmark update.
func (db *DB) RecordPush(p Push) error {
	if p.OccurredAt == 0 {
		p.OccurredAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO pushes (backend, request_id, records, error, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.Backend, p.RequestID, p.Records, p.Error, p.OccurredAt)
	return err
}

// RecentSyncOutcomes returns the newest outcomes first.
func (db *DB) RecentSyncOutcomes(limit int) ([]SyncOutcome, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT backend, request_id, outcome, records, detail, occurred_at
		FROM sync_outcomes ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SyncOutcome
	for rows.Next() {
		var o SyncOutcome
		if err := rows.Scan(&o.Backend, &o.RequestID, &o.Outcome, &o.Records, &o.Detail, &o.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// RecentPushes returns the newest pushes first.
func (db *DB) RecentPushes(limit int) ([]Push, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT backend, request_id, records, error, occurred_at
		FROM pushes ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Push
	for rows.Next() {
		var p Push
		if err := rows.Scan(&p.Backend, &p.RequestID, &p.Records, &p.Error, &p.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
