package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			room_id TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS polls (
			poll_id TEXT PRIMARY KEY,
			room_id TEXT NOT NULL,
			teams TEXT NOT NULL,
			votes_player1 INTEGER NOT NULL DEFAULT 0,
			votes_player2 INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (room_id) REFERENCES rooms(room_id)
		)`,
		`CREATE TABLE IF NOT EXISTS poll_voters (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			poll_id TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (poll_id) REFERENCES polls(poll_id),
			UNIQUE(poll_id, fingerprint)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_polls_room ON polls(room_id)`,
		`CREATE INDEX IF NOT EXISTS idx_poll_voters_poll ON poll_voters(poll_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

// ==================== Room Methods ====================

// SaveRoom inserts or replaces the room's state document
func (r *Repository) SaveRoom(ctx context.Context, rec RoomRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rooms (room_id, password, state, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(room_id) DO UPDATE SET
			state = excluded.state,
			updated_at = CURRENT_TIMESTAMP`,
		rec.RoomID, rec.Password, string(rec.State))
	return err
}

// GetRoom retrieves a room by its code
func (r *Repository) GetRoom(ctx context.Context, roomID string) (RoomRecord, error) {
	var rec RoomRecord
	var state string
	err := r.db.QueryRowContext(ctx,
		`SELECT room_id, password, state FROM rooms WHERE room_id = ?`, roomID).
		Scan(&rec.RoomID, &rec.Password, &state)
	if err == sql.ErrNoRows {
		return RoomRecord{}, ErrNotFound
	}
	if err != nil {
		return RoomRecord{}, err
	}
	rec.State = []byte(state)
	return rec, nil
}

// ListRooms returns every persisted room (used to rehydrate the registry at
// startup)
func (r *Repository) ListRooms(ctx context.Context) ([]RoomRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT room_id, password, state FROM rooms ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RoomRecord
	for rows.Next() {
		var rec RoomRecord
		var state string
		if err := rows.Scan(&rec.RoomID, &rec.Password, &state); err != nil {
			return nil, err
		}
		rec.State = []byte(state)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ==================== Poll Methods ====================

// CreatePoll inserts a new poll with a zero tally
func (r *Repository) CreatePoll(ctx context.Context, rec PollRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO polls (poll_id, room_id, teams, votes_player1, votes_player2)
		VALUES (?, ?, ?, ?, ?)`,
		rec.PollID, rec.RoomID, string(rec.Teams), rec.Votes1, rec.Votes2)
	return err
}

// GetPoll retrieves a poll with its recorded voter fingerprints
func (r *Repository) GetPoll(ctx context.Context, pollID string) (PollRecord, error) {
	var rec PollRecord
	var teams string
	err := r.db.QueryRowContext(ctx, `
		SELECT poll_id, room_id, teams, votes_player1, votes_player2
		FROM polls WHERE poll_id = ?`, pollID).
		Scan(&rec.PollID, &rec.RoomID, &teams, &rec.Votes1, &rec.Votes2)
	if err == sql.ErrNoRows {
		return PollRecord{}, ErrNotFound
	}
	if err != nil {
		return PollRecord{}, err
	}
	rec.Teams = []byte(teams)

	rec.Voters, err = r.listPollVoters(ctx, pollID)
	if err != nil {
		return PollRecord{}, err
	}
	return rec, nil
}

// ListPolls returns every persisted poll with its voter fingerprints (used
// to rehydrate the ledger at startup)
func (r *Repository) ListPolls(ctx context.Context) ([]PollRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT poll_id, room_id, teams, votes_player1, votes_player2
		FROM polls ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PollRecord
	for rows.Next() {
		var rec PollRecord
		var teams string
		if err := rows.Scan(&rec.PollID, &rec.RoomID, &teams, &rec.Votes1, &rec.Votes2); err != nil {
			return nil, err
		}
		rec.Teams = []byte(teams)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		records[i].Voters, err = r.listPollVoters(ctx, records[i].PollID)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// listPollVoters returns the fingerprints already counted for a poll
func (r *Repository) listPollVoters(ctx context.Context, pollID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT fingerprint FROM poll_voters WHERE poll_id = ? ORDER BY id`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var voters []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, err
		}
		voters = append(voters, fp)
	}
	return voters, rows.Err()
}

// DeletePoll removes a poll and its voter rows in one transaction
func (r *Repository) DeletePoll(ctx context.Context, pollID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM poll_voters WHERE poll_id = ?`, pollID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM polls WHERE poll_id = ?`, pollID); err != nil {
		return err
	}
	return tx.Commit()
}

// AddVote records the fingerprint and increments the chosen tally in one
// transaction, so a crash can never count a vote without remembering who
// cast it.
func (r *Repository) AddVote(ctx context.Context, pollID, fingerprint, choice string) error {
	var column string
	switch choice {
	case "player1":
		column = "votes_player1"
	case "player2":
		column = "votes_player2"
	default:
		return fmt.Errorf("invalid vote choice: %s", choice)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO poll_voters (poll_id, fingerprint) VALUES (?, ?)`,
		pollID, fingerprint)
	if err != nil {
		return err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		return ErrDuplicateVoter
	}

	// Column name is whitelisted above, never caller-supplied.
	if _, err := tx.ExecContext(ctx,
		`UPDATE polls SET `+column+` = `+column+` + 1 WHERE poll_id = ?`, pollID); err != nil {
		return err
	}

	return tx.Commit()
}
