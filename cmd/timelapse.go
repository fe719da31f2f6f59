// Package main はタイムラプス生成コマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"teiten/internal/store"
	"teiten/internal/timelapse"
)

func main() {
	// コマンドラインオプション
	var (
		dir       = flag.String("dir", "", "画像ディレクトリ (YYYYMMDD_HHMMSS 形式のファイル名)")
		output    = flag.String("o", "timelapse.mp4", "出力する動画ファイル")
		fps       = flag.Int("fps", 30, "フレームレート")
		start     = flag.String("start", "", "開始日フィルタ (YYYYMMDD、両端含む)")
		end       = flag.String("end", "", "終了日フィルタ (YYYYMMDD、両端含む)")
		noOverlay = flag.Bool("no-overlay", false, "ファイル名オーバーレイを無効化")
		help      = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help || *dir == "" {
		fmt.Println("Teiten タイムラプス生成")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  timelapse -dir <画像ディレクトリ> [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		if *help {
			os.Exit(0)
		}
		os.Exit(2)
	}

	// 対象フレームを取得
	st := store.New(*dir)
	frames, err := st.ListRange(*start, *end)
	if err != nil {
		log.Fatalf("画像一覧の取得に失敗しました: %v", err)
	}
	log.Printf("%d 枚の画像が対象です", len(frames))

	// 動画を生成
	renderer := timelapse.NewRenderer()
	if err := renderer.Render(context.Background(), frames, *output, *fps, !*noOverlay); err != nil {
		log.Printf("タイムラプスの生成に失敗しました: %v", err)
		os.Exit(1)
	}

	log.Printf("タイムラプス動画を作成しました: %s", *output)
}
