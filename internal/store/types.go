package store

import (
	"errors"
	"time"

	"github.com/brbranch/notes_mcp/internal/model"
)

// SearchOptions はSearch操作のオプション
type SearchOptions struct {
	IncludeTags bool // trueならタグも部分一致の対象にする
}

// SearchResult は検索結果の1件を表す
type SearchResult struct {
	Note     *model.Note
	TagMatch bool // タイトル・本文に一致せずタグのみに一致した場合true
}

// エラー定義
var (
	ErrNotFound       = errors.New("note not found")
	ErrNotInitialized = errors.New("store not initialized")
	ErrClosed         = errors.New("store closed")
)

// Option はストアのオプション
type Option func(*options)

type options struct {
	clock func() time.Time
}

// WithClock は現在時刻の取得関数を設定（テスト用）
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func newOptions(opts []Option) *options {
	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DefaultSearchOptions はSearchOptionsのデフォルト値を返す
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{IncludeTags: true}
}
