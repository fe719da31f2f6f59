package timelapse

import (
	"errors"
	"time"
)

// ErrEmptyInput は対象フレームが1枚もない場合のエラー。
// エンコーダを起動する前に検出される。
var ErrEmptyInput = errors.New("タイムラプス対象のフレームがありません")

// ErrJobNotFound は未知のジョブIDを照会した場合のエラー
var ErrJobNotFound = errors.New("指定されたジョブが見つかりません")

// Config はタイムラプス設定
type Config struct {
	OutputDir  string `yaml:"output_dir"`  // 動画出力先ディレクトリ
	DefaultFPS int    `yaml:"default_fps"` // デフォルトフレームレート
	Overlay    bool   `yaml:"overlay"`     // ファイル名オーバーレイのデフォルト
}

// DefaultConfig はデフォルトのタイムラプス設定を返す
func DefaultConfig() Config {
	return Config{
		OutputDir:  "/data/timelapse",
		DefaultFPS: 30,
		Overlay:    true,
	}
}

// Status はジョブのステータス
type Status string

// Status の定数定義
const (
	StatusQueued   Status = "queued"   // 実行待ち
	StatusRunning  Status = "running"  // 実行中
	StatusFinished Status = "finished" // 完了
	StatusFailed   Status = "failed"   // 失敗
)

// Terminal は終端状態（完了または失敗）か返す
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

// Mode はジョブの実行モード
type Mode string

// Mode の定数定義
const (
	ModeSync  Mode = "sync"  // 呼び出し元をブロックして実行
	ModeAsync Mode = "async" // バックグラウンドで実行（ジョブIDで照会）
)

// Params はタイムラプス生成の要求パラメータ
type Params struct {
	FPS       int    `json:"fps"`        // フレームレート (0 = デフォルト)
	StartDate string `json:"start_date"` // 開始日フィルタ YYYYMMDD（両端含む、空 = 制限なし）
	EndDate   string `json:"end_date"`   // 終了日フィルタ YYYYMMDD（両端含む、空 = 制限なし）
	Overlay   bool   `json:"overlay"`    // ファイル名オーバーレイの有無
}

// Job はタイムラプス生成ジョブ
type Job struct {
	ID          string    `json:"id"`           // ジョブID（一意）
	Status      Status    `json:"status"`       // 現在のステータス
	Params      Params    `json:"params"`       // 要求パラメータ
	OutputPath  string    `json:"output_path"`  // 出力先パス
	FrameCount  int       `json:"frame_count"`  // 対象フレーム数（投入時点のスナップショット）
	Error       string    `json:"error"`        // エラー詳細（failed の場合のみ）
	CreatedAt   time.Time `json:"created_at"`   // 作成時刻
	CompletedAt time.Time `json:"completed_at"` // 完了時刻（終端状態の場合のみ）
}
