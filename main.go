package main

import (
	"context"
	"log"
	"os"

	"teiten/internal/config"
	"teiten/internal/fetcher"
	"teiten/internal/server"
	"teiten/internal/store"
	"teiten/internal/timelapse"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// 画像ストアを作成
	st := store.New(cfg.Store.Dir)
	if err := st.Init(); err != nil {
		log.Fatalf("ストアの初期化に失敗しました: %v", err)
	}

	// タイムラプスレンダラーとジョブマネージャーを作成
	renderer := timelapse.NewRenderer()
	if err := renderer.ValidateFFmpeg(); err != nil {
		log.Printf("警告: %v", err)
	}
	jobs := timelapse.NewManager(st, renderer, cfg.Timelapse)

	// コンテキストを作成
	ctx := context.Background()

	// 画像取得ループを開始
	f := fetcher.New(cfg.Fetch, st, cfg.Store.Retention)
	if err := f.Start(ctx); err != nil {
		log.Fatalf("取得ループの開始に失敗しました: %v", err)
	}

	// サーバーを起動（シグナル受信までブロック）
	srv := server.New(cfg, st, jobs)
	if err := srv.Start(ctx); err != nil {
		log.Printf("サーバーの起動に失敗しました: %v", err)
		_ = f.Stop(ctx)
		os.Exit(1)
	}

	// 取得ループを停止
	if err := f.Stop(ctx); err != nil {
		log.Printf("取得ループの停止に失敗しました: %v", err)
	}
}
