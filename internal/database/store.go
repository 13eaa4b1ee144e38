package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/avdeev/tandem/internal/core"
	"github.com/avdeev/tandem/internal/domain"
)

var ErrAlreadyRecorded = errors.New("session already recorded")

// Store is the durable identity and accounting collaborator, backed by
// SQLite. It implements core.AccountDirectory and core.SessionRecords.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a second connection would only queue
	// behind the busy timeout.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	log.Info().Str("module", "database").Str("path", path).Msg("store opened")
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ResolveAccount(ctx context.Context, id domain.AccountID) (*domain.Account, error) {
	var role, name string
	err := s.db.QueryRowContext(ctx,
		`SELECT role, display_name FROM users WHERE id = ?`, string(id),
	).Scan(&role, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", id, err)
	}
	return &domain.Account{ID: id, Role: parsed, DisplayName: name}, nil
}

// CreateAccount inserts the users row plus its per-role totals row.
func (s *Store) CreateAccount(ctx context.Context, acct *domain.Account) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, role, display_name) VALUES (?, ?, ?)`,
		string(acct.ID), string(acct.Role), acct.DisplayName,
	); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	var totals string
	switch acct.Role {
	case domain.RoleStudent:
		totals = `INSERT INTO students (user_id) VALUES (?)`
	case domain.RoleTeacher:
		totals = `INSERT INTO teachers (user_id) VALUES (?)`
	default:
		return domain.ErrUnknownRole
	}
	if _, err := tx.ExecContext(ctx, totals, string(acct.ID)); err != nil {
		return fmt.Errorf("create account totals: %w", err)
	}
	return tx.Commit()
}

func (s *Store) BeginSession(ctx context.Context, student, teacher domain.AccountID, roomID domain.RoomID) (domain.SessionID, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (student_id, teacher_id, room_id, status) VALUES (?, ?, ?, 'active')`,
		string(student), string(teacher), string(roomID),
	)
	if err != nil {
		return 0, fmt.Errorf("begin session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("begin session id: %w", err)
	}
	return domain.SessionID(id), nil
}

// RecordCompletion closes the session and credits both cumulative
// totals in one transaction. A session that is not active any more
// yields ErrAlreadyRecorded, so time is never credited twice even if
// in-memory dedup were to fail.
func (s *Store) RecordCompletion(ctx context.Context, id domain.SessionID, durationSeconds int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions
		 SET status = 'completed', ended_at = CURRENT_TIMESTAMP, duration_seconds = ?
		 WHERE id = ? AND status = 'active'`,
		durationSeconds, int64(id),
	)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if n == 0 {
		return ErrAlreadyRecorded
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE students SET total_call_seconds = total_call_seconds + ?
		 WHERE user_id = (SELECT student_id FROM sessions WHERE id = ?)`,
		durationSeconds, int64(id),
	); err != nil {
		return fmt.Errorf("credit student: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE teachers SET total_teaching_seconds = total_teaching_seconds + ?
		 WHERE user_id = (SELECT teacher_id FROM sessions WHERE id = ?)`,
		durationSeconds, int64(id),
	); err != nil {
		return fmt.Errorf("credit teacher: %w", err)
	}
	return tx.Commit()
}

// StudentCallSeconds and TeacherTeachingSeconds expose cumulative
// totals for the stats endpoint and tests.
func (s *Store) StudentCallSeconds(ctx context.Context, id domain.AccountID) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT total_call_seconds FROM students WHERE user_id = ?`, string(id),
	).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrAccountNotFound
	}
	return total, err
}

func (s *Store) TeacherTeachingSeconds(ctx context.Context, id domain.AccountID) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT total_teaching_seconds FROM teachers WHERE user_id = ?`, string(id),
	).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrAccountNotFound
	}
	return total, err
}
