package fetcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"teiten/internal/config"
	"teiten/internal/store"
)

// バックオフは基準値から倍々で増え、上限で頭打ちになる
const (
	baseBackoff = 1 * time.Second
	maxBackoff  = 30 * time.Second
)

// Fetcher は単一URLからの定期画像取得ループを管理する
type Fetcher struct {
	cfg    config.Fetch
	store  *store.Store
	policy store.RetentionPolicy
	client *http.Client

	backoffBase time.Duration

	// 制御用
	stopCh chan struct{}
	wg     sync.WaitGroup
	cron   *cron.Cron
}

// New は新しいFetcherを作成する
func New(cfg config.Fetch, st *store.Store, policy store.RetentionPolicy) *Fetcher {
	return &Fetcher{
		cfg:         cfg,
		store:       st,
		policy:      policy,
		client:      &http.Client{Timeout: cfg.Timeout},
		backoffBase: baseBackoff,
		stopCh:      make(chan struct{}),
	}
}

// Start は取得ループを開始する。Schedule が設定されていればcronで、
// そうでなければ固定間隔で実行する。サイクルが重なることはない。
func (f *Fetcher) Start(ctx context.Context) error {
	if err := f.store.Init(); err != nil {
		return err
	}

	if f.cfg.Schedule != "" {
		// 前のサイクルが終わっていなければスキップする
		f.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
		if _, err := f.cron.AddFunc(f.cfg.Schedule, func() { f.cycle(ctx) }); err != nil {
			return fmt.Errorf("cronスケジュールの登録に失敗: %w", err)
		}
		f.cron.Start()
		log.Printf("画像取得ループを開始 (schedule=%q url=%s)", f.cfg.Schedule, f.cfg.URL)
		return nil
	}

	f.wg.Add(1)
	go f.loop(ctx)

	log.Printf("画像取得ループを開始 (interval=%s url=%s)", f.cfg.Interval, f.cfg.URL)
	return nil
}

// Stop は取得ループを停止する
func (f *Fetcher) Stop(ctx context.Context) error {
	close(f.stopCh)
	if f.cron != nil {
		<-f.cron.Stop().Done()
	}

	// ワーカーゴルーチンの終了を短いタイムアウトで待機
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		log.Printf("取得ループの停止がタイムアウトしました。強制終了します。")
	case <-ctx.Done():
		log.Printf("コンテキストがキャンセルされました。停止処理を中断します。")
	}

	log.Println("画像取得ループを停止")
	return nil
}

// loop は固定間隔でサイクルを実行する。失敗したサイクルがあっても
// ループ自体はプロセス停止まで終了しない。
func (f *Fetcher) loop(ctx context.Context) {
	defer f.wg.Done()

	// 起動直後に1回実行してから間隔待ちに入る
	f.cycle(ctx)

	ticker := time.NewTicker(f.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.cycle(ctx)
		}
	}
}

// cycle は1回の取得サイクル（リトライ込みの取得・保存・latest更新・
// ローテーション）を実行する。失敗はログに記録してサイクルを中断する。
func (f *Fetcher) cycle(ctx context.Context) {
	data, ext, err := f.tryFetch(ctx)
	if err != nil {
		log.Printf("画像の取得に失敗しました。このサイクルをスキップします: %v", err)
		return
	}

	img, err := f.store.Save(data, time.Now().UTC(), ext)
	if err != nil {
		log.Printf("画像の保存に失敗しました。このサイクルをスキップします: %v", err)
		return
	}
	log.Printf("画像を保存しました: %s (%d bytes)", img.Name, img.Size)

	if err := f.store.UpdateLatest(img.Name); err != nil {
		log.Printf("latest の更新に失敗しました: %v", err)
		return
	}

	if err := f.store.Rotate(f.policy); err != nil {
		log.Printf("ローテーションに失敗しました: %v", err)
	}
}

// tryFetch は設定された試行回数まで取得を試みる。
// 試行の間は倍々のバックオフ（上限あり）で待機する。
func (f *Fetcher) tryFetch(ctx context.Context) ([]byte, string, error) {
	var lastErr error

	for attempt := 0; attempt < f.cfg.Retries; attempt++ {
		if attempt > 0 {
			delay := f.backoffDelay(attempt - 1)
			log.Printf("リトライまで %s 待機します (attempt %d/%d)", delay, attempt+1, f.cfg.Retries)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-f.stopCh:
				return nil, "", fmt.Errorf("取得ループが停止されました")
			}
		}

		data, ext, err := f.fetchOnce(ctx)
		if err == nil {
			return data, ext, nil
		}
		lastErr = err
		log.Printf("取得に失敗 (attempt %d/%d): %v", attempt+1, f.cfg.Retries, err)
	}

	return nil, "", fmt.Errorf("%d 回の試行が全て失敗: %w", f.cfg.Retries, lastErr)
}

// fetchOnce は1回のHTTP GETを実行する
func (f *Fetcher) fetchOnce(ctx context.Context) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("リクエストの作成に失敗: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("リクエストに失敗: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("予期しないステータスコード: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("レスポンスの読み取りに失敗: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("レスポンスが空です")
	}

	return data, guessExtension(resp.Header.Get("Content-Type"), f.cfg.URL), nil
}

// backoffDelay は失敗回数に対する待機時間を返す（倍々、上限あり）
func (f *Fetcher) backoffDelay(failures int) time.Duration {
	delay := f.backoffBase
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}
