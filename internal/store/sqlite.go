package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brbranch/notes_mcp/internal/model"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	// noteCountWarningThreshold は警告を出すノート件数の閾値
	noteCountWarningThreshold = 5000
)

// SQLiteStore はSQLiteのインメモリデータベースを使用したStore実装
// データベースはインスタンスごとに独立し、Close時に破棄される（永続化しない）
type SQLiteStore struct {
	mu          sync.RWMutex
	db          *sql.DB
	dsn         string
	initialized bool
	clock       func() time.Time
}

// NewSQLiteStore はSQLiteStoreを作成する
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	o := newOptions(opts)

	// 共有キャッシュの名前付きメモリDB（インスタンスごとに一意）
	dsn := fmt.Sprintf("file:notes-%s?mode=memory&cache=shared", uuid.NewString())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 全接続が閉じるとメモリDBが消えるため、接続を1本に固定して保持する
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	return &SQLiteStore{
		db:    db,
		dsn:   dsn,
		clock: o.clock,
	}, nil
}

// Initialize はストアを初期化する
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return ErrClosed
	}

	// AUTOINCREMENTにより削除済みIDは再利用されない
	notesSQL := `
	CREATE TABLE IF NOT EXISTS notes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		tags TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	if _, err := s.db.ExecContext(ctx, notesSQL); err != nil {
		return fmt.Errorf("failed to create notes table: %w", err)
	}

	s.initialized = true
	return nil
}

// Close はストアをクローズする
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = false
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Insert はノートを追加する
func (s *SQLiteStore) Insert(ctx context.Context, fields model.NoteFields) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	now := s.clock().UTC()
	tags := model.CopyTags(fields.Tags)

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (title, content, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, fields.Title, fields.Content, string(tagsJSON), model.FormatTime(now), model.FormatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get inserted id: %w", err)
	}

	// 件数チェックと警告
	count, _ := s.countNotes(ctx)
	if count >= noteCountWarningThreshold {
		slog.Warn("note count exceeded threshold",
			"count", count,
			"threshold", noteCountWarningThreshold,
			"recommendation", "notes are held in memory; delete unused notes")
	}

	return &model.Note{
		ID:      FormatID(id),
		Title:   fields.Title,
		Content: fields.Content,
		Created: now,
		Updated: now,
		Tags:    tags,
	}, nil
}

// Get はIDでノートを取得する
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	n, ok := ParseID(id)
	if !ok {
		return nil, ErrNotFound
	}

	note, err := s.scanNote(s.db.QueryRowContext(ctx, selectNoteSQL+` WHERE id = ?`, n))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	return note, nil
}

// Update はノートを部分更新する（トランザクション内で読み取りと書き込みを行う）
func (s *SQLiteStore) Update(ctx context.Context, id string, patch model.NotePatch) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	n, ok := ParseID(id)
	if !ok {
		return nil, ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	note, err := s.scanNote(tx.QueryRowContext(ctx, selectNoteSQL+` WHERE id = ?`, n))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	// フィールド指定なしの場合は何も書き込まない
	if !patch.Apply(note, s.clock().UTC()) {
		return note, nil
	}

	tagsJSON, err := json.Marshal(note.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE notes
		SET title = ?, content = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`, note.Title, note.Content, string(tagsJSON), model.FormatTime(note.Updated), n); err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	return note, nil
}

// Delete はノートを削除して返す
func (s *SQLiteStore) Delete(ctx context.Context, id string) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	n, ok := ParseID(id)
	if !ok {
		return nil, ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	note, err := s.scanNote(tx.QueryRowContext(ctx, selectNoteSQL+` WHERE id = ?`, n))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, n); err != nil {
		return nil, fmt.Errorf("failed to delete note: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}

	return note, nil
}

// List は全ノートをID昇順で返す
func (s *SQLiteStore) List(ctx context.Context) ([]*model.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	return s.queryAll(ctx)
}

// Search は部分文字列検索を実行する
// LIKEはASCII以外の大小文字を区別するため、判定はMemoryStoreと同じMatchNoteで行う
func (s *SQLiteStore) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	notes, err := s.queryAll(ctx)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, note := range notes {
		matched, tagMatch := MatchNote(note, query, opts.IncludeTags)
		if !matched {
			continue
		}
		results = append(results, SearchResult{
			Note:     note,
			TagMatch: tagMatch,
		})
	}

	return results, nil
}

// Helper functions

const selectNoteSQL = `SELECT id, title, content, tags, created_at, updated_at FROM notes`

// rowScanner は *sql.Row と *sql.Rows の共通インターフェース
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) queryAll(ctx context.Context) ([]*model.Note, error) {
	rows, err := s.db.QueryContext(ctx, selectNoteSQL+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	notes := []*model.Note{}
	for rows.Next() {
		note, err := s.scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return notes, nil
}

func (s *SQLiteStore) countNotes(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes`).Scan(&count)
	return count, err
}

func (s *SQLiteStore) scanNote(row rowScanner) (*model.Note, error) {
	var (
		id                   int64
		title, content, tags string
		createdAt, updatedAt string
	)

	if err := row.Scan(&id, &title, &content, &tags, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	note := &model.Note{
		ID:      FormatID(id),
		Title:   title,
		Content: content,
		Tags:    []string{},
	}

	if err := json.Unmarshal([]byte(tags), &note.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}

	var err error
	if note.Created, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if note.Updated, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return note, nil
}
