package timelapse

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"teiten/internal/store"
)

// エンコード品質は固定（同一入力に対して同一のエンコーダ起動になる）
const (
	encoderCRF    = "23"
	encoderPreset = "fast"
)

// Renderer はFFmpegによる動画生成を担当する
type Renderer struct {
	tempDir string // 一時ファイル用ディレクトリ
}

// NewRenderer は新しいRendererを作成する
func NewRenderer() *Renderer {
	return &Renderer{
		tempDir: filepath.Join(os.TempDir(), "teiten-timelapse"),
	}
}

// Render はフレーム列からタイムラプス動画を生成する。
// frames はタイムスタンプ昇順であること。列挙後に削除されたフレームは
// スキップされる。エンコーダが失敗した場合、書きかけの出力は削除される。
func (r *Renderer) Render(ctx context.Context, frames []store.Image, outputPath string, fps int, overlay bool) error {
	frames = dedupeFrames(frames)
	if len(frames) == 0 {
		return ErrEmptyInput
	}
	if fps <= 0 {
		fps = 30
	}

	// セッション毎の一時ディレクトリを作成
	sessionDir := filepath.Join(r.tempDir, fmt.Sprintf("session_%d", time.Now().UnixNano()))
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return fmt.Errorf("一時ディレクトリの作成に失敗: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(sessionDir) // cleanup中のエラーは無視
	}()

	var args []string
	if overlay {
		// 各フレームにファイル名を焼き込んだ連番画像を作る
		labeled, err := labelFrames(sessionDir, frames)
		if err != nil {
			return fmt.Errorf("オーバーレイ画像の生成に失敗: %w", err)
		}
		if labeled == 0 {
			return ErrEmptyInput
		}
		args = buildSequenceArgs(filepath.Join(sessionDir, sequencePattern), fps, outputPath)
	} else {
		listFile := filepath.Join(sessionDir, "images.txt")
		written, err := writeConcatList(listFile, frames, fps)
		if err != nil {
			return fmt.Errorf("画像リストの作成に失敗: %w", err)
		}
		if written == 0 {
			return ErrEmptyInput
		}
		args = buildConcatArgs(listFile, fps, outputPath)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("出力ディレクトリの作成に失敗: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// 書きかけの出力ファイルを残さない
		_ = os.Remove(outputPath)
		return fmt.Errorf("動画の生成に失敗: %w (output: %s)", err, string(output))
	}

	return nil
}

// dedupeFrames は順序を保ったままフレームの重複を除去する
func dedupeFrames(frames []store.Image) []store.Image {
	seen := make(map[string]bool, len(frames))
	out := make([]store.Image, 0, len(frames))
	for _, f := range frames {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		out = append(out, f)
	}
	return out
}

// writeConcatList はconcatデマルチプレクサ用の画像リストを書き出す。
// 列挙後に削除されたフレームはスキップし、書き出した件数を返す。
func writeConcatList(listFile string, frames []store.Image, fps int) (int, error) {
	var content string
	var written int
	var last string

	duration := 1.0 / float64(fps)
	for _, f := range frames {
		if _, err := os.Stat(f.Path); err != nil {
			continue // 削除済みフレームはスキップ
		}
		content += fmt.Sprintf("file '%s'\nduration %.6f\n", f.Path, duration)
		last = f.Path
		written++
	}

	// 最後のフレームは追加の表示時間なし
	if written > 0 {
		content += fmt.Sprintf("file '%s'\n", last)
	}

	if err := os.WriteFile(listFile, []byte(content), 0644); err != nil {
		return 0, err
	}
	return written, nil
}

// buildConcatArgs はオーバーレイなし（concatデマルチプレクサ）のFFmpeg引数を構築する
func buildConcatArgs(listFile string, fps int, outputPath string) []string {
	return []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-vf", fmt.Sprintf("fps=%d", fps),
		"-c:v", "libx264",
		"-preset", encoderPreset,
		"-crf", encoderCRF,
		"-pix_fmt", "yuv420p",
		"-y", // 上書き許可
		outputPath,
	}
}

// buildSequenceArgs はオーバーレイあり（連番画像入力）のFFmpeg引数を構築する
func buildSequenceArgs(pattern string, fps int, outputPath string) []string {
	return []string{
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", pattern,
		"-c:v", "libx264",
		"-preset", encoderPreset,
		"-crf", encoderCRF,
		"-pix_fmt", "yuv420p",
		"-y",
		outputPath,
	}
}

// ValidateFFmpeg はFFmpegが利用可能かチェックする
func (r *Renderer) ValidateFFmpeg() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("FFmpegが見つかりません。インストールしてください: %w", err)
	}

	return nil
}
