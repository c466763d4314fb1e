package store

import (
	"strconv"
	"strings"

	"github.com/brbranch/notes_mcp/internal/model"
)

// MatchNote はノートが検索クエリに一致するかを判定する（大小文字無視の部分一致）
// タイトル・本文の一致を優先し、タグのみに一致した場合はtagMatch=trueを返す
func MatchNote(note *model.Note, query string, includeTags bool) (matched, tagMatch bool) {
	q := strings.ToLower(query)

	if strings.Contains(strings.ToLower(note.Title), q) || strings.Contains(strings.ToLower(note.Content), q) {
		return true, false
	}

	if includeTags {
		for _, tag := range note.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				return true, true
			}
		}
	}

	return false, false
}

// ParseID はノートIDを数値に変換する
// 採番済みIDは全て正の10進数なので、それ以外は存在しないIDとして扱う
func ParseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	// "02" のような非正規表記は採番されないので不一致
	if strconv.FormatInt(n, 10) != id {
		return 0, false
	}
	return n, true
}

// FormatID は数値IDを文字列に変換する
func FormatID(n int64) string {
	return strconv.FormatInt(n, 10)
}
