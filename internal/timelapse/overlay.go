package timelapse

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	// 画像形式のデコーダを登録
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"teiten/internal/store"
)

// sequencePattern はFFmpegの連番画像入力パターン
const sequencePattern = "%06d.jpg"

// overlayMargin はラベルの余白（ピクセル）
const overlayMargin = 10

// labelFrames は各フレームにファイル名ラベルを焼き込み、連番JPEGとして
// sessionDir に保存する。列挙後に削除されたフレームはスキップし、
// 書き出したフレーム数を返す。
func labelFrames(sessionDir string, frames []store.Image) (int, error) {
	index := 0
	for _, f := range frames {
		src, err := os.Open(f.Path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // 削除済みフレームはスキップ
			}
			return index, fmt.Errorf("フレームの読み込みに失敗 (%s): %w", f.Name, err)
		}

		img, _, err := image.Decode(src)
		_ = src.Close()
		if err != nil {
			return index, fmt.Errorf("フレームのデコードに失敗 (%s): %w", f.Name, err)
		}

		labeled := drawLabel(img, f.Name)

		dest := filepath.Join(sessionDir, fmt.Sprintf(sequencePattern, index))
		out, err := os.Create(dest)
		if err != nil {
			return index, fmt.Errorf("ラベル画像の作成に失敗: %w", err)
		}
		if err := jpeg.Encode(out, labeled, nil); err != nil {
			_ = out.Close()
			return index, fmt.Errorf("ラベル画像のエンコードに失敗: %w", err)
		}
		if err := out.Close(); err != nil {
			return index, fmt.Errorf("ラベル画像の書き込みに失敗: %w", err)
		}

		index++
		if index%100 == 0 {
			log.Printf("ラベル付与: %d / %d フレーム", index, len(frames))
		}
	}

	return index, nil
}

// drawLabel は画像の左下隅にテキストラベルを描画する。
// フォントサイズは固定で、フレーム解像度に依存しない。
func drawLabel(src image.Image, text string) *image.RGBA {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	textHeight := face.Metrics().Height.Ceil()

	x := bounds.Min.X + overlayMargin
	y := bounds.Max.Y - overlayMargin

	// テキストの背景（黒帯）
	bg := image.Rect(x-2, y-textHeight-2, x+textWidth+2, y+2)
	draw.Draw(dst, bg.Intersect(bounds), image.NewUniform(color.Black), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(x, y-face.Descent),
	}
	drawer.DrawString(text)

	return dst
}
