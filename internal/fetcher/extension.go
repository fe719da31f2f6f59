package fetcher

import (
	"path"
	"strings"
)

// guessExtension はContent-Typeヘッダから拡張子を推定する。
// 判定できない場合はURLの拡張子にフォールバックする。
func guessExtension(contentType, rawURL string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch ct {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}

	// URLのパス部分から拡張子を取る（クエリは除外）
	if ext := path.Ext(strings.SplitN(rawURL, "?", 2)[0]); ext != "" {
		return ext
	}
	return ".img"
}
