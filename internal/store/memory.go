package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/brbranch/notes_mcp/internal/model"
)

// MemoryStore はインメモリのStore実装
type MemoryStore struct {
	mu          sync.RWMutex
	notes       map[int64]*model.Note // key: 数値ID
	nextID      int64                 // 次に採番するID（発行済みの全IDより大きい）
	initialized bool
	clock       func() time.Time
}

// NewMemoryStore はMemoryStoreを作成する
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions(opts)
	return &MemoryStore{
		notes:  make(map[int64]*model.Note),
		nextID: 1,
		clock:  o.clock,
	}
}

// Initialize はストアを初期化する
func (s *MemoryStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	return nil
}

// Close はストアをクローズする
// カウンタは保持し、再初期化後もIDは再利用しない
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes = make(map[int64]*model.Note)
	s.initialized = false
	return nil
}

// Insert はノートを追加する
func (s *MemoryStore) Insert(ctx context.Context, fields model.NoteFields) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	id := s.nextID
	s.nextID++

	now := s.clock().UTC()
	note := &model.Note{
		ID:      FormatID(id),
		Title:   fields.Title,
		Content: fields.Content,
		Created: now,
		Updated: now,
		Tags:    model.CopyTags(fields.Tags),
	}
	s.notes[id] = note

	return note.Clone(), nil
}

// Get はIDでノートを取得する
func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	note, ok := s.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}

	return note.Clone(), nil
}

// Update はノートを部分更新する
// コピーにパッチを適用してから差し替えるため、途中状態は外部から観測されない
func (s *MemoryStore) Update(ctx context.Context, id string, patch model.NotePatch) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	note, ok := s.lookup(id)
	if !ok {
		return nil, ErrNotFound
	}

	updated := note.Clone()
	if patch.Apply(updated, s.clock().UTC()) {
		n, _ := ParseID(id)
		s.notes[n] = updated
	}

	return updated.Clone(), nil
}

// Delete はノートを削除して返す
func (s *MemoryStore) Delete(ctx context.Context, id string) (*model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	n, ok := ParseID(id)
	if !ok {
		return nil, ErrNotFound
	}
	note, ok := s.notes[n]
	if !ok {
		return nil, ErrNotFound
	}

	delete(s.notes, n)
	return note, nil
}

// List は全ノートをID昇順で返す
func (s *MemoryStore) List(ctx context.Context) ([]*model.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	notes := make([]*model.Note, 0, len(s.notes))
	for _, id := range s.sortedIDs() {
		notes = append(notes, s.notes[id].Clone())
	}

	return notes, nil
}

// Search は部分文字列検索を実行する（ID昇順、関連度順ではない）
func (s *MemoryStore) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}

	var results []SearchResult

	// 全ノートをID昇順でスキャン
	for _, id := range s.sortedIDs() {
		note := s.notes[id]
		matched, tagMatch := MatchNote(note, query, opts.IncludeTags)
		if !matched {
			continue
		}
		results = append(results, SearchResult{
			Note:     note.Clone(),
			TagMatch: tagMatch,
		})
	}

	return results, nil
}

// Helper methods

func (s *MemoryStore) lookup(id string) (*model.Note, bool) {
	n, ok := ParseID(id)
	if !ok {
		return nil, false
	}
	note, ok := s.notes[n]
	return note, ok
}

func (s *MemoryStore) sortedIDs() []int64 {
	ids := make([]int64, 0, len(s.notes))
	for id := range s.notes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
