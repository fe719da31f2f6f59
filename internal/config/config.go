package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"teiten/internal/store"
	"teiten/internal/timelapse"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server    Server           `yaml:"server"`
	Fetch     Fetch            `yaml:"fetch"`
	Store     Store            `yaml:"store"`
	Timelapse timelapse.Config `yaml:"timelapse"`
}

// Server はHTTPサーバーの設定
type Server struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// Fetch は画像取得ループの設定
type Fetch struct {
	URL      string        `yaml:"url"`      // 取得元URL
	Interval time.Duration `yaml:"interval"` // 取得間隔
	Schedule string        `yaml:"schedule"` // cron式スケジュール（指定時はIntervalより優先）
	Timeout  time.Duration `yaml:"timeout"`  // リクエスト毎のタイムアウト
	Retries  int           `yaml:"retries"`  // 1サイクルあたりの試行回数
}

// Store は画像ストアの設定
type Store struct {
	Dir       string                `yaml:"dir"`       // 画像保存ディレクトリ
	Retention store.RetentionPolicy `yaml:"retention"` // 保持ポリシー
}

// Load は環境変数から設定を読み込む。
// CONFIG_FILE が指定されている場合はYAMLファイルの値で上書きする。
func Load() (*Config, error) {
	cfg := &Config{
		Server: Server{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsIntOrDefault("PORT", 8080),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Fetch: Fetch{
			URL:      os.Getenv("IMAGE_URL"),
			Interval: getEnvAsSecondsOrDefault("INTERVAL_SECONDS", 3600*time.Second),
			Schedule: os.Getenv("FETCH_SCHEDULE"),
			Timeout:  getEnvAsSecondsOrDefault("TIMEOUT_SECONDS", 15*time.Second),
			Retries:  getEnvAsIntOrDefault("RETRY_COUNT", 3),
		},
		Store: Store{
			Dir: getEnvOrDefault("STORAGE_DIR", "/data/images"),
			Retention: store.RetentionPolicy{
				MaxFiles:   getEnvAsIntOrDefault("MAX_FILES", 0),
				MaxAgeDays: getEnvAsIntOrDefault("MAX_AGE_DAYS", 0),
			},
		},
		Timelapse: timelapse.DefaultConfig(),
	}
	cfg.Timelapse.OutputDir = getEnvOrDefault("OUTPUT_DIR", cfg.Timelapse.OutputDir)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	if c.Fetch.URL == "" {
		return fmt.Errorf("取得元URLが設定されていません (IMAGE_URL)")
	}
	if _, err := url.ParseRequestURI(c.Fetch.URL); err != nil {
		return fmt.Errorf("無効な取得元URL: %w", err)
	}
	if c.Fetch.Interval <= 0 && c.Fetch.Schedule == "" {
		return fmt.Errorf("取得間隔が設定されていません")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("リクエストタイムアウトが設定されていません")
	}
	if c.Fetch.Retries < 1 {
		return fmt.Errorf("試行回数は1以上である必要があります: %d", c.Fetch.Retries)
	}

	if c.Store.Dir == "" {
		return fmt.Errorf("画像保存ディレクトリが設定されていません")
	}
	if c.Store.Retention.MaxFiles < 0 || c.Store.Retention.MaxAgeDays < 0 {
		return fmt.Errorf("保持ポリシーに負の値は指定できません")
	}

	if c.Timelapse.DefaultFPS <= 0 {
		return fmt.Errorf("無効なフレームレート: %d", c.Timelapse.DefaultFPS)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsSecondsOrDefault は秒数指定の環境変数をDurationとして取得する
func getEnvAsSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return time.Duration(intVal) * time.Second
		}
	}
	return defaultValue
}
