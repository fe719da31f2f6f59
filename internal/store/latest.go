package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// UpdateLatest は latest ポインタを指定ファイルに向けて更新する。
// 新しいシンボリックリンクを一時名で作成してから rename で置き換えるため、
// 読み手が書き換え途中のポインタを観測することはない。
// シンボリックリンク非対応のファイルシステムではコピーで代替する。
func (s *Store) UpdateLatest(name string) error {
	latest := filepath.Join(s.dir, LatestName)
	tmp := latest + ".tmp"

	_ = os.Remove(tmp)
	if err := os.Symlink(name, tmp); err != nil {
		// シンボリックリンクが作れないFSではコピーにフォールバック
		return s.copyLatest(name, latest, tmp)
	}
	if err := os.Rename(tmp, latest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("latest ポインタの置き換えに失敗: %w", err)
	}
	return nil
}

// copyLatest は画像の内容を latest へアトミックにコピーする
func (s *Store) copyLatest(name, latest, tmp string) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return fmt.Errorf("latest 用コピー元の読み取りに失敗: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("latest 一時ファイルの書き込みに失敗: %w", err)
	}
	if err := os.Rename(tmp, latest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("latest ポインタの置き換えに失敗: %w", err)
	}
	return nil
}

// LatestPath は latest ポインタが指すファイルのパスを返す。
// ポインタが存在しない場合は os.ErrNotExist を返す。
func (s *Store) LatestPath() (string, error) {
	latest := filepath.Join(s.dir, LatestName)

	if target, err := os.Readlink(latest); err == nil {
		return filepath.Join(s.dir, target), nil
	}

	// コピー代替の場合は latest 自体が画像ファイル
	if _, err := os.Stat(latest); err != nil {
		return "", err
	}
	return latest, nil
}
