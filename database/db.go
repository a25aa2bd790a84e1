package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/korjavin/alphaquizbot/models"
)

// DB handles all database operations
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes tables
func New(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	if err = createTables(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// FromConn wraps an open connection whose schema already exists
func FromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// createTables creates the necessary tables if they don't exist
func createTables(conn *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS user_activity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			question_id TEXT NOT NULL,
			question TEXT NOT NULL DEFAULT '',
			answer TEXT NOT NULL,
			correct BOOLEAN NOT NULL,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_activity_user ON user_activity(user_id)`,
		`CREATE TABLE IF NOT EXISTS used_questions (
			user_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			question_id TEXT NOT NULL,
			PRIMARY KEY (user_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS streaks (
			user_id INTEGER PRIMARY KEY,
			saved INTEGER NOT NULL,
			best INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SaveUserActivity records user interaction with a question
func (db *DB) SaveUserActivity(ctx context.Context, a models.UserActivity) error {
	ts := a.Timestamp
	if ts == 0 {
		ts = time.Now().Unix()
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO user_activity (user_id, question_id, question, answer, correct, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		a.UserID, string(a.QuestionID), a.Question, a.Answer, a.Correct, ts,
	)
	return err
}

// GetUserStats retrieves statistics about the user's answers
func (db *DB) GetUserStats(ctx context.Context, userID int64) (correct int, incorrect int, err error) {
	err = db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_activity WHERE user_id = ? AND correct = 1",
		userID,
	).Scan(&correct)
	if err != nil {
		return 0, 0, err
	}

	err = db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_activity WHERE user_id = ? AND correct = 0",
		userID,
	).Scan(&incorrect)
	return correct, incorrect, err
}

// GetMostFrequentIncorrectQuestions gets the questions most frequently answered incorrectly
func (db *DB) GetMostFrequentIncorrectQuestions(ctx context.Context, userID int64, limit int) ([]models.QuestionMiss, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT question_id, MAX(question), COUNT(*) as count
		FROM user_activity
		WHERE user_id = ? AND correct = 0
		GROUP BY question_id
		ORDER BY count DESC, question_id ASC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.QuestionMiss
	for rows.Next() {
		var m models.QuestionMiss
		var id string
		if err := rows.Scan(&id, &m.Question, &m.Count); err != nil {
			return nil, err
		}
		m.QuestionID = models.QuestionID(id)
		result = append(result, m)
	}
	return result, rows.Err()
}

// LoadUsedQuestions returns the used-question history of a user in the
// order the questions were shown
func (db *DB) LoadUsedQuestions(ctx context.Context, userID int64) ([]models.QuestionID, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT question_id FROM used_questions WHERE user_id = ? ORDER BY position ASC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []models.QuestionID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, models.QuestionID(id))
	}
	return ids, rows.Err()
}

// SaveUsedQuestions overwrites the used-question history of a user
func (db *DB) SaveUsedQuestions(ctx context.Context, userID int64, ids []models.QuestionID) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM used_questions WHERE user_id = ?", userID); err != nil {
		return err
	}
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO used_questions (user_id, position, question_id) VALUES (?, ?, ?)",
			userID, i, string(id),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveStreak stores the streak a session ended with and raises the best
// streak when it was beaten
func (db *DB) SaveStreak(ctx context.Context, userID int64, streak int) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO streaks (user_id, saved, best, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			saved = excluded.saved,
			best = MAX(streaks.best, excluded.saved),
			updated_at = excluded.updated_at
	`, userID, streak, streak, time.Now().Unix())
	return err
}

// GetStreak returns the saved streak of a user, zero when none exists
func (db *DB) GetStreak(ctx context.Context, userID int64) (models.SavedStreak, error) {
	s := models.SavedStreak{UserID: userID}
	err := db.conn.QueryRowContext(ctx,
		"SELECT saved, best, updated_at FROM streaks WHERE user_id = ?",
		userID,
	).Scan(&s.Saved, &s.Best, &s.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	return s, err
}

// UsedQuestions returns the used-question store of one user
func (db *DB) UsedQuestions(userID int64) *UsedQuestionStore {
	return &UsedQuestionStore{db: db, userID: userID}
}

// UsedQuestionStore persists one user's used-question history
type UsedQuestionStore struct {
	db     *DB
	userID int64
}

func (s *UsedQuestionStore) Load(ctx context.Context) ([]models.QuestionID, error) {
	return s.db.LoadUsedQuestions(ctx, s.userID)
}

func (s *UsedQuestionStore) Save(ctx context.Context, ids []models.QuestionID) error {
	return s.db.SaveUsedQuestions(ctx, s.userID, ids)
}
