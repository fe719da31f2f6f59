package store

import (
	"log"
	"os"
	"time"
)

// RetentionPolicy は保持ポリシー。0 はその制限が無効であることを表す。
type RetentionPolicy struct {
	MaxFiles   int `yaml:"max_files"`    // 最大保持件数 (0 = 無制限)
	MaxAgeDays int `yaml:"max_age_days"` // 最大保持日数 (0 = 無制限)
}

// Enabled はいずれかの制限が有効か返す
func (p RetentionPolicy) Enabled() bool {
	return p.MaxFiles > 0 || p.MaxAgeDays > 0
}

// Rotate は保持ポリシーを適用し、制限を超えた古い画像を削除する。
// 個々の削除失敗はログに記録して続行する。最新の1件はポリシーに
// 関わらず削除しない（latest ポインタが常に解決できることを保証する）。
func (s *Store) Rotate(policy RetentionPolicy) error {
	return s.rotateAt(policy, time.Now().UTC())
}

func (s *Store) rotateAt(policy RetentionPolicy, now time.Time) error {
	if !policy.Enabled() {
		return nil
	}

	images, err := s.List()
	if err != nil {
		return err
	}
	if len(images) <= 1 {
		return nil // 0件または1件なら何もしない
	}

	newest := images[len(images)-1].Name
	removed := make(map[string]bool)

	// 件数制限: 古いものから超過分を削除
	if policy.MaxFiles > 0 && len(images) > policy.MaxFiles {
		for _, img := range images[:len(images)-policy.MaxFiles] {
			if img.Name == newest {
				continue
			}
			s.removeOnce(img, "count", removed)
		}
	}

	// 日数制限: しきい値より古いものを削除
	if policy.MaxAgeDays > 0 {
		cutoff := now.AddDate(0, 0, -policy.MaxAgeDays)
		for _, img := range images {
			if img.Name == newest || !img.Timestamp.Before(cutoff) {
				continue
			}
			s.removeOnce(img, "age", removed)
		}
	}

	return nil
}

// removeOnce は1ファイルを削除する。両方の条件に該当しても削除は1回だけ。
func (s *Store) removeOnce(img Image, reason string, removed map[string]bool) {
	if removed[img.Name] {
		return
	}
	removed[img.Name] = true

	if err := os.Remove(img.Path); err != nil {
		log.Printf("古いファイルの削除に失敗 (%s): %v", reason, err)
		return
	}
	log.Printf("古いファイルを削除しました (%s): %s", reason, img.Name)
}
