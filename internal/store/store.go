// Package store provides the note entity store interface and implementations.
package store

import (
	"context"

	"github.com/brbranch/notes_mcp/internal/model"
)

// Store はノートの唯一の保持者となるエンティティストアの抽象インターフェース
//
// 実装は各操作をミューテックス境界で保護し、1回の操作内の書き込みは
// 他の操作から見て原子的に適用される。IDは単調増加で再利用されない。
type Store interface {
	// Note操作
	Insert(ctx context.Context, fields model.NoteFields) (*model.Note, error)
	Get(ctx context.Context, id string) (*model.Note, error)
	Update(ctx context.Context, id string, patch model.NotePatch) (*model.Note, error)
	Delete(ctx context.Context, id string) (*model.Note, error)

	// ID昇順の全件取得
	List(ctx context.Context) ([]*model.Note, error)

	// 部分文字列検索（大小文字無視、ID昇順）
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)

	// 初期化・終了
	Initialize(ctx context.Context) error
	Close() error
}
