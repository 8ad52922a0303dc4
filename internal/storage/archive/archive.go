// Package archive keeps a queryable history of assembled snapshots in
// SQLite. The file store remains the durable artifact; the archive
// exists for listing and inspecting past sessions without parsing
// snapshot files.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	session_id    TEXT PRIMARY KEY,
	initiator     TEXT NOT NULL,
	status        TEXT NOT NULL,
	started_at    INTEGER NOT NULL,
	completed_at  INTEGER NOT NULL,
	process_count INTEGER NOT NULL,
	message_count INTEGER NOT NULL,
	archived_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS contributions (
	session_id   TEXT NOT NULL REFERENCES snapshots(session_id) ON DELETE CASCADE,
	process_id   TEXT NOT NULL,
	local_state  BLOB,
	recorded_at  INTEGER NOT NULL,
	finalized_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, process_id)
);

CREATE TABLE IF NOT EXISTS channel_logs (
	session_id TEXT NOT NULL,
	process_id TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	payload    BLOB NOT NULL,
	PRIMARY KEY (session_id, process_id, channel_id, seq),
	FOREIGN KEY (session_id, process_id)
		REFERENCES contributions(session_id, process_id) ON DELETE CASCADE
);
`

// Archive is a SQLite-backed snapshot history. It implements the
// coordinator sink, so completed snapshots land here automatically.
type Archive struct {
	db *sql.DB
}

// Open opens (and if needed creates) the archive database at path.
// Pass ":memory:" for an ephemeral archive.
func Open(path string) (*Archive, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("archive: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("archive: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: apply schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: ping: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SnapshotCompleted archives a finished snapshot.
func (a *Archive) SnapshotCompleted(ctx context.Context, snap *domain.GlobalSnapshot) error {
	return a.Save(ctx, snap)
}

// Save stores one snapshot with all contributions and channel logs in
// a single transaction. Re-saving a session replaces it.
func (a *Archive) Save(ctx context.Context, snap *domain.GlobalSnapshot) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ErrStorage.WithDetails("archive begin").WithCause(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE session_id = ?`, string(snap.SessionID)); err != nil {
		return domain.ErrStorage.WithDetails("archive clear").WithCause(err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots
			(session_id, initiator, status, started_at, completed_at,
			 process_count, message_count, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(snap.SessionID), string(snap.Initiator), string(snap.Status),
		snap.StartedAt, snap.CompletedAt,
		snap.ProcessCount(), snap.MessageCount(),
		time.Now().UnixMilli()); err != nil {
		return domain.ErrStorage.WithDetails("archive snapshot row").WithCause(err)
	}

	for _, c := range snap.Contributions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO contributions
				(session_id, process_id, local_state, recorded_at, finalized_at)
			VALUES (?, ?, ?, ?, ?)`,
			string(c.SessionID), string(c.ProcessID),
			c.LocalState, c.RecordedAt, c.FinalizedAt); err != nil {
			return domain.ErrStorage.WithDetails("archive contribution row").WithCause(err)
		}

		for channel, log := range c.ChannelLogs {
			for seq, m := range log {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO channel_logs
						(session_id, process_id, channel_id, seq, payload)
					VALUES (?, ?, ?, ?, ?)`,
					string(c.SessionID), string(c.ProcessID),
					string(channel), seq, m.Payload); err != nil {
					return domain.ErrStorage.WithDetails("archive channel log row").WithCause(err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.ErrStorage.WithDetails("archive commit").WithCause(err)
	}
	return nil
}

// Summary is one row of the archived snapshot index.
type Summary struct {
	SessionID    domain.SessionID      `json:"session_id"`
	Initiator    domain.ProcessID      `json:"initiator"`
	Status       domain.SnapshotStatus `json:"status"`
	StartedAt    int64                 `json:"started_at"`
	CompletedAt  int64                 `json:"completed_at"`
	ProcessCount int                   `json:"process_count"`
	MessageCount int                   `json:"message_count"`
	ArchivedAt   int64                 `json:"archived_at"`
}

// List returns summaries of all archived snapshots, oldest first.
func (a *Archive) List(ctx context.Context) ([]Summary, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT session_id, initiator, status, started_at, completed_at,
		       process_count, message_count, archived_at
		FROM snapshots
		ORDER BY session_id`)
	if err != nil {
		return nil, domain.ErrStorage.WithDetails("archive list").WithCause(err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.SessionID, &s.Initiator, &s.Status,
			&s.StartedAt, &s.CompletedAt,
			&s.ProcessCount, &s.MessageCount, &s.ArchivedAt); err != nil {
			return nil, domain.ErrStorage.WithDetails("archive scan").WithCause(err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Load reconstructs a full snapshot from the archive.
func (a *Archive) Load(ctx context.Context, session domain.SessionID) (*domain.GlobalSnapshot, error) {
	snap := &domain.GlobalSnapshot{
		SessionID:     session,
		Contributions: make(map[domain.ProcessID]*domain.Contribution),
	}

	err := a.db.QueryRowContext(ctx, `
		SELECT initiator, status, started_at, completed_at
		FROM snapshots WHERE session_id = ?`, string(session)).
		Scan(&snap.Initiator, &snap.Status, &snap.StartedAt, &snap.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound.WithDetails(string(session))
	}
	if err != nil {
		return nil, domain.ErrStorage.WithDetails("archive load").WithCause(err)
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT process_id, local_state, recorded_at, finalized_at
		FROM contributions WHERE session_id = ?`, string(session))
	if err != nil {
		return nil, domain.ErrStorage.WithDetails("archive contributions").WithCause(err)
	}
	defer rows.Close()

	for rows.Next() {
		c := &domain.Contribution{
			SessionID:   session,
			ChannelLogs: make(map[domain.ChannelID][]domain.Message),
		}
		if err := rows.Scan(&c.ProcessID, &c.LocalState, &c.RecordedAt, &c.FinalizedAt); err != nil {
			return nil, domain.ErrStorage.WithDetails("archive contribution scan").WithCause(err)
		}
		snap.Contributions[c.ProcessID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrStorage.WithDetails("archive contributions").WithCause(err)
	}

	logRows, err := a.db.QueryContext(ctx, `
		SELECT process_id, channel_id, payload
		FROM channel_logs WHERE session_id = ?
		ORDER BY process_id, channel_id, seq`, string(session))
	if err != nil {
		return nil, domain.ErrStorage.WithDetails("archive channel logs").WithCause(err)
	}
	defer logRows.Close()

	for logRows.Next() {
		var process domain.ProcessID
		var channel domain.ChannelID
		var payload []byte
		if err := logRows.Scan(&process, &channel, &payload); err != nil {
			return nil, domain.ErrStorage.WithDetails("archive channel log scan").WithCause(err)
		}
		c, ok := snap.Contributions[process]
		if !ok {
			continue
		}
		c.ChannelLogs[channel] = append(c.ChannelLogs[channel], domain.Message{Payload: payload})
	}
	return snap, logRows.Err()
}

// Delete removes one archived session.
func (a *Archive) Delete(ctx context.Context, session domain.SessionID) error {
	res, err := a.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE session_id = ?`, string(session))
	if err != nil {
		return domain.ErrStorage.WithDetails("archive delete").WithCause(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.ErrSessionNotFound.WithDetails(string(session))
	}
	return nil
}

// Prune keeps the newest keep sessions and deletes the rest.
func (a *Archive) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, domain.ErrInvalidArgument.WithDetails("negative retention count")
	}
	summaries, err := a.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(summaries) <= keep {
		return 0, nil
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].SessionID < summaries[j].SessionID })

	pruned := 0
	for _, s := range summaries[:len(summaries)-keep] {
		if err := a.Delete(ctx, s.SessionID); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}
