package timelapse

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"teiten/internal/store"
)

// VideoRenderer は動画生成の実装を抽象化する
type VideoRenderer interface {
	Render(ctx context.Context, frames []store.Image, outputPath string, fps int, overlay bool) error
}

// Manager はタイムラプスジョブの受け付けと実行を管理する。
// ジョブレジストリはプロセス内メモリのみで、再起動後には残らない。
type Manager struct {
	store    *store.Store
	renderer VideoRenderer
	config   Config

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewManager は新しいManagerを作成する
func NewManager(st *store.Store, renderer VideoRenderer, config Config) *Manager {
	return &Manager{
		store:    st,
		renderer: renderer,
		config:   config,
		jobs:     make(map[string]*Job),
	}
}

// Submit はタイムラプスジョブを投入する。
// 対象フレームは投入時点のストア内容で確定する（実行中にストアが
// 変化しても対象は変わらない）。sync モードでは完了までブロックして
// 終端状態のジョブを返し、async モードでは queued のまま即座に返す。
func (m *Manager) Submit(ctx context.Context, params Params, mode Mode) (Job, error) {
	if params.FPS <= 0 {
		params.FPS = m.config.DefaultFPS
	}

	// 投入時点のファイル一覧をスナップショットする
	frames, err := m.store.ListRange(params.StartDate, params.EndDate)
	if err != nil {
		return Job{}, fmt.Errorf("対象フレームの取得に失敗: %w", err)
	}

	id := uuid.NewString()
	job := &Job{
		ID:         id,
		Status:     StatusQueued,
		Params:     params,
		OutputPath: filepath.Join(m.config.OutputDir, fmt.Sprintf("timelapse_%s.mp4", id)),
		FrameCount: len(frames),
		CreatedAt:  time.Now(),
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	switch mode {
	case ModeAsync:
		// 呼び出し元のリクエストが終わってもレンダリングは続行する
		go m.run(context.Background(), id, frames)
		return m.snapshot(id)
	default:
		m.run(ctx, id, frames)
		return m.snapshot(id)
	}
}

// Status は指定ジョブの現在のスナップショットを返す
func (m *Manager) Status(id string) (Job, error) {
	return m.snapshot(id)
}

// Jobs は全ジョブのスナップショットを返す
func (m *Manager) Jobs() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// run はジョブを実行し、状態を queued → running → finished/failed と遷移させる
func (m *Manager) run(ctx context.Context, id string, frames []store.Image) {
	if !m.transition(id, StatusQueued, StatusRunning, "") {
		return
	}

	job, err := m.snapshot(id)
	if err != nil {
		return
	}

	log.Printf("タイムラプスジョブを開始: id=%s frames=%d fps=%d", id, len(frames), job.Params.FPS)

	if err := m.renderer.Render(ctx, frames, job.OutputPath, job.Params.FPS, job.Params.Overlay); err != nil {
		m.transition(id, StatusRunning, StatusFailed, err.Error())
		log.Printf("タイムラプスジョブが失敗: id=%s: %v", id, err)
		return
	}

	m.transition(id, StatusRunning, StatusFinished, "")
	log.Printf("タイムラプスジョブが完了: id=%s output=%s", id, job.OutputPath)
}

// transition はジョブの状態を from から to へ遷移させる。
// 現在の状態が from でない場合は何もしない（終端状態からの遷移を防ぐ）。
func (m *Manager) transition(id string, from, to Status, errDetail string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok || job.Status != from {
		return false
	}

	job.Status = to
	if to.Terminal() {
		job.Error = errDetail
		job.CompletedAt = time.Now()
	}
	return true
}

// snapshot はジョブのコピーを返す
func (m *Manager) snapshot(id string) (Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}
