package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// TimestampLayout は画像ファイル名のタイムスタンプ形式（秒精度、辞書順ソート可能）
const TimestampLayout = "20060102_150405"

// LatestName は最新画像を指すポインタのファイル名
const LatestName = "latest"

// Image は保存済み画像のメタデータ
type Image struct {
	Name      string    // ファイル名 (例: 20250102_030405.jpg)
	Path      string    // フルパス
	Timestamp time.Time // 撮影時刻（ファイル名から導出、UTC）
	Size      int64     // バイトサイズ
}

// Store は単一ディレクトリの画像ストアを管理する
type Store struct {
	dir string
}

// New は新しいStoreを作成する
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir はストアディレクトリのパスを返す
func (s *Store) Dir() string {
	return s.dir
}

// Init はストアディレクトリを作成する
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("ストアディレクトリの作成に失敗: %w", err)
	}
	return nil
}

// FilenameFor はタイムスタンプと拡張子からファイル名を生成する
func FilenameFor(ts time.Time, ext string) string {
	return ts.UTC().Format(TimestampLayout) + ext
}

// Save は画像データをアトミックに保存し、保存結果を返す。
// 一時ファイルに書き込んでから rename するため、最終パスに
// 書き込み途中のファイルが見えることはない。
func (s *Store) Save(data []byte, ts time.Time, ext string) (Image, error) {
	name := FilenameFor(ts, ext)
	dest := filepath.Join(s.dir, name)
	tmp := dest + ".tmp"

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return Image{}, fmt.Errorf("一時ファイルの書き込みに失敗: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return Image{}, fmt.Errorf("ファイルの確定に失敗: %w", err)
	}

	return Image{
		Name:      name,
		Path:      dest,
		Timestamp: ts.UTC().Truncate(time.Second),
		Size:      int64(len(data)),
	}, nil
}

// List はストア内の画像をタイムスタンプ昇順で返す。
// latest ポインタと一時ファイルは含まれない。
func (s *Store) List() ([]Image, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Image{}, nil
		}
		return nil, fmt.Errorf("ディレクトリの読み取りに失敗: %w", err)
	}

	images := make([]Image, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isImageName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// 列挙と取得の間に消えたファイルはスキップ
			continue
		}
		images = append(images, Image{
			Name:      entry.Name(),
			Path:      filepath.Join(s.dir, entry.Name()),
			Timestamp: timestampOf(entry.Name(), info.ModTime()),
			Size:      info.Size(),
		})
	}

	// ファイル名の辞書順 = タイムスタンプ昇順
	sort.Slice(images, func(i, j int) bool {
		return images[i].Name < images[j].Name
	})

	return images, nil
}

// ListRange は日付範囲（YYYYMMDD、両端含む）でフィルタした画像一覧を返す。
// start / end が空文字列の場合、その側の制限は無効。
func (s *Store) ListRange(start, end string) ([]Image, error) {
	images, err := s.List()
	if err != nil {
		return nil, err
	}

	filtered := make([]Image, 0, len(images))
	for _, img := range images {
		date := dateOf(img.Name)
		if start != "" && date < start {
			continue
		}
		if end != "" && date > end {
			continue
		}
		filtered = append(filtered, img)
	}
	return filtered, nil
}

// Stats はストアの統計情報（件数・合計バイト数・最新ファイル名）を返す
func (s *Store) Stats() (count int, bytes int64, newest string, err error) {
	images, err := s.List()
	if err != nil {
		return 0, 0, "", err
	}
	for _, img := range images {
		bytes += img.Size
	}
	if len(images) > 0 {
		newest = images[len(images)-1].Name
	}
	return len(images), bytes, newest, nil
}

// isImageName はストア管理対象の画像ファイル名か判定する
func isImageName(name string) bool {
	if name == LatestName || strings.HasSuffix(name, ".tmp") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".img":
		return true
	}
	return false
}

// timestampOf はファイル名からタイムスタンプを解析する。
// 解析できない場合は mtime にフォールバックする。
func timestampOf(name string, mtime time.Time) time.Time {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if len(stem) >= len(TimestampLayout) {
		if ts, err := time.Parse(TimestampLayout, stem[:len(TimestampLayout)]); err == nil {
			return ts
		}
	}
	return mtime.UTC()
}

// dateOf はファイル名の日付部分（YYYYMMDD）を返す
func dateOf(name string) string {
	if len(name) >= 8 {
		return name[:8]
	}
	return name
}
