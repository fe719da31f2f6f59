package server

import "time"

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はシステム状態のレスポンス
type StatusResponse struct {
	Status    string     `json:"status"`
	Server    ServerInfo `json:"server"`
	Store     StoreInfo  `json:"store"`
	Source    string     `json:"source"`
	Timestamp time.Time  `json:"timestamp"`
}

// ServerInfo はサーバー情報
type ServerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StoreInfo は画像ストアの統計情報
type StoreInfo struct {
	Dir        string `json:"dir"`
	ImageCount int    `json:"image_count"`
	BytesUsed  int64  `json:"bytes_used"`
	Newest     string `json:"newest"`
}

// ImagesResponse は画像一覧のレスポンス
type ImagesResponse struct {
	Images []string `json:"images"`
	Count  int      `json:"count"`
}

// SubmitRequest はタイムラプスジョブ投入のリクエストボディ
type SubmitRequest struct {
	FPS       int    `json:"fps"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Overlay   *bool  `json:"overlay"` // 省略時は設定のデフォルト
	Async     bool   `json:"async"`
}

// ErrorResponse はエラーレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
