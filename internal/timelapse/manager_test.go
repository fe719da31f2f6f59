package timelapse

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"teiten/internal/store"
)

// fakeRenderer はテスト用のVideoRenderer実装
type fakeRenderer struct {
	mu      sync.Mutex
	calls   [][]store.Image
	err     error
	blockCh chan struct{} // 非nilの場合、クローズされるまでRenderをブロックする
}

func (r *fakeRenderer) Render(_ context.Context, frames []store.Image, _ string, _ int, _ bool) error {
	if r.blockCh != nil {
		<-r.blockCh
	}
	r.mu.Lock()
	r.calls = append(r.calls, frames)
	r.mu.Unlock()
	return r.err
}

func (r *fakeRenderer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *fakeRenderer) lastCall() []store.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

// newTestManager はテスト用のManagerと画像入りストアを作成するヘルパー
func newTestManager(t *testing.T, renderer VideoRenderer, days []time.Time) (*Manager, *store.Store) {
	t.Helper()
	st := store.New(t.TempDir())
	for _, ts := range days {
		if _, err := st.Save([]byte("frame"), ts, ".jpg"); err != nil {
			t.Fatalf("画像の保存に失敗しました: %v", err)
		}
	}
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	return NewManager(st, renderer, cfg), st
}

// waitForStatus はジョブが指定ステータスになるまで待つヘルパー
func waitForStatus(t *testing.T, m *Manager, id string, want Status) Job {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		job, err := m.Status(id)
		if err != nil {
			t.Fatalf("ステータスの取得に失敗しました: %v", err)
		}
		if job.Status == want {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("ステータスが %s になりません: 現在 %s", want, job.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// TestSubmitSync は同期モードの実行をテストする
func TestSubmitSync(t *testing.T) {
	renderer := &fakeRenderer{}
	m, _ := newTestManager(t, renderer, []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	})

	job, err := m.Submit(context.Background(), Params{FPS: 24, Overlay: true}, ModeSync)
	if err != nil {
		t.Fatalf("ジョブの投入に失敗しました: %v", err)
	}

	if job.Status != StatusFinished {
		t.Errorf("予期しないステータス: got %s, want %s", job.Status, StatusFinished)
	}
	if job.FrameCount != 2 {
		t.Errorf("予期しないフレーム数: got %d, want 2", job.FrameCount)
	}
	if job.OutputPath == "" || filepath.Ext(job.OutputPath) != ".mp4" {
		t.Errorf("予期しない出力パス: %s", job.OutputPath)
	}
	if job.CompletedAt.IsZero() {
		t.Error("完了時刻が設定されていません")
	}
	if renderer.callCount() != 1 {
		t.Errorf("予期しないレンダラー呼び出し回数: %d", renderer.callCount())
	}
}

// TestSubmitSyncFailure は同期モードでの失敗がジョブに記録されることをテストする
func TestSubmitSyncFailure(t *testing.T) {
	renderer := &fakeRenderer{err: errors.New("エンコーダが異常終了しました")}
	m, _ := newTestManager(t, renderer, []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	job, err := m.Submit(context.Background(), Params{}, ModeSync)
	if err != nil {
		t.Fatalf("ジョブの投入に失敗しました: %v", err)
	}

	if job.Status != StatusFailed {
		t.Errorf("予期しないステータス: got %s, want %s", job.Status, StatusFailed)
	}
	if !strings.Contains(job.Error, "エンコーダが異常終了しました") {
		t.Errorf("エラー詳細が記録されていません: %q", job.Error)
	}
}

// TestSubmitAsync は非同期モードの状態遷移をテストする
func TestSubmitAsync(t *testing.T) {
	renderer := &fakeRenderer{blockCh: make(chan struct{})}
	m, _ := newTestManager(t, renderer, []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	job, err := m.Submit(context.Background(), Params{}, ModeAsync)
	if err != nil {
		t.Fatalf("ジョブの投入に失敗しました: %v", err)
	}

	// 投入直後は queued または running（terminal ではない）
	if job.Status.Terminal() {
		t.Errorf("投入直後に終端状態になっています: %s", job.Status)
	}

	// レンダリング中は running
	waitForStatus(t, m, job.ID, StatusRunning)

	// ブロックを解除すると finished に遷移する
	close(renderer.blockCh)
	final := waitForStatus(t, m, job.ID, StatusFinished)
	if final.Error != "" {
		t.Errorf("予期しないエラー詳細: %q", final.Error)
	}
}

// TestStatusNotFound は未知のジョブIDの照会をテストする
func TestStatusNotFound(t *testing.T) {
	m, _ := newTestManager(t, &fakeRenderer{}, nil)

	if _, err := m.Status("unknown-job-id"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("ErrJobNotFound が返されませんでした: %v", err)
	}
}

// TestSubmitEmptyStore は対象フレームがない場合にジョブが失敗することをテストする。
// 実レンダラーはエンコーダを起動する前に ErrEmptyInput を返す。
func TestSubmitEmptyStore(t *testing.T) {
	m, _ := newTestManager(t, NewRenderer(), nil)

	job, err := m.Submit(context.Background(), Params{}, ModeSync)
	if err != nil {
		t.Fatalf("ジョブの投入に失敗しました: %v", err)
	}
	if job.Status != StatusFailed {
		t.Errorf("予期しないステータス: got %s, want %s", job.Status, StatusFailed)
	}
	if !strings.Contains(job.Error, ErrEmptyInput.Error()) {
		t.Errorf("ErrEmptyInput が記録されていません: %q", job.Error)
	}
}

// TestSnapshotAtSubmission は対象フレームが投入時点で確定することをテストする
func TestSnapshotAtSubmission(t *testing.T) {
	renderer := &fakeRenderer{blockCh: make(chan struct{})}
	m, st := newTestManager(t, renderer, []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	})

	job, err := m.Submit(context.Background(), Params{}, ModeAsync)
	if err != nil {
		t.Fatalf("ジョブの投入に失敗しました: %v", err)
	}
	if job.FrameCount != 2 {
		t.Fatalf("予期しないフレーム数: got %d, want 2", job.FrameCount)
	}

	// 実行中にストアへ画像を追加する
	waitForStatus(t, m, job.ID, StatusRunning)
	if _, err := st.Save([]byte("frame"), time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), ".jpg"); err != nil {
		t.Fatalf("画像の保存に失敗しました: %v", err)
	}
	close(renderer.blockCh)
	waitForStatus(t, m, job.ID, StatusFinished)

	// レンダラーに渡るのは投入時点の2件のまま
	if got := len(renderer.lastCall()); got != 2 {
		t.Errorf("投入後の追加がフレーム列に影響しています: got %d, want 2", got)
	}
}

// TestDateFilter は日付範囲フィルタ付きの投入をテストする
func TestDateFilter(t *testing.T) {
	renderer := &fakeRenderer{}
	var days []time.Time
	for _, d := range []string{
		"2024-12-25", "2024-12-31", "2025-01-01", "2025-01-03", "2025-01-05", "2025-01-10",
	} {
		ts, err := time.Parse("2006-01-02", d)
		if err != nil {
			t.Fatalf("テストデータの解析に失敗しました: %v", err)
		}
		days = append(days, ts)
	}
	m, _ := newTestManager(t, renderer, days)

	job, err := m.Submit(context.Background(), Params{StartDate: "20250101", EndDate: "20250105"}, ModeSync)
	if err != nil {
		t.Fatalf("ジョブの投入に失敗しました: %v", err)
	}
	if job.Status != StatusFinished {
		t.Fatalf("予期しないステータス: %s", job.Status)
	}

	frames := renderer.lastCall()
	if len(frames) != 3 {
		t.Fatalf("予期しないフレーム数: got %d, want 3", len(frames))
	}
	// 範囲内の画像が昇順で並ぶ
	want := []string{"20250101_000000.jpg", "20250103_000000.jpg", "20250105_000000.jpg"}
	for i, f := range frames {
		if f.Name != want[i] {
			t.Errorf("予期しないフレーム順: got %s, want %s", f.Name, want[i])
		}
	}
}

// TestTransitionTerminalIsFinal は終端状態から遷移しないことをテストする
func TestTransitionTerminalIsFinal(t *testing.T) {
	m, _ := newTestManager(t, &fakeRenderer{}, []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	job, err := m.Submit(context.Background(), Params{}, ModeSync)
	if err != nil {
		t.Fatalf("ジョブの投入に失敗しました: %v", err)
	}
	if job.Status != StatusFinished {
		t.Fatalf("予期しないステータス: %s", job.Status)
	}

	// 終端状態からの遷移は拒否される
	if m.transition(job.ID, StatusFinished, StatusRunning, "") {
		t.Error("終端状態からの遷移が許可されました")
	}
	if m.transition(job.ID, StatusQueued, StatusRunning, "") {
		t.Error("不正な遷移元からの遷移が許可されました")
	}

	after, err := m.Status(job.ID)
	if err != nil {
		t.Fatalf("ステータスの取得に失敗しました: %v", err)
	}
	if after.Status != StatusFinished {
		t.Errorf("終端状態が変化しています: %s", after.Status)
	}
}

// TestConcurrentAsyncJobs は複数の非同期ジョブが同時に実行できることをテストする
func TestConcurrentAsyncJobs(t *testing.T) {
	renderer := &fakeRenderer{blockCh: make(chan struct{})}
	m, _ := newTestManager(t, renderer, []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	var ids []string
	for i := 0; i < 3; i++ {
		job, err := m.Submit(context.Background(), Params{}, ModeAsync)
		if err != nil {
			t.Fatalf("ジョブの投入に失敗しました: %v", err)
		}
		ids = append(ids, job.ID)
	}

	// 全ジョブが同時に running になる
	for _, id := range ids {
		waitForStatus(t, m, id, StatusRunning)
	}

	close(renderer.blockCh)
	for _, id := range ids {
		waitForStatus(t, m, id, StatusFinished)
	}

	if len(m.Jobs()) != 3 {
		t.Errorf("予期しないジョブ数: %d", len(m.Jobs()))
	}
}
