package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"teiten/internal/timelapse"
)

// handleHealth はヘルスチェックエンドポイントの実装
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// handleStatus はシステム状態取得エンドポイントの実装
func (s *Server) handleStatus(c *gin.Context) {
	count, bytes, newest, err := s.store.Stats()
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "store_error", "ストア情報の取得に失敗しました")
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		Status: "running",
		Server: ServerInfo{
			Host: s.config.Server.Host,
			Port: s.config.Server.Port,
		},
		Store: StoreInfo{
			Dir:        s.store.Dir(),
			ImageCount: count,
			BytesUsed:  bytes,
			Newest:     newest,
		},
		Source:    s.config.Fetch.URL,
		Timestamp: time.Now(),
	})
}

// handleLatest は最新画像を配信する
func (s *Server) handleLatest(c *gin.Context) {
	path, err := s.store.LatestPath()
	if err != nil {
		errorJSON(c, http.StatusNotFound, "no_latest_image", "最新画像がまだありません")
		return
	}
	c.File(path)
}

// handleListImages は画像一覧を新しい順で返す
func (s *Server) handleListImages(c *gin.Context) {
	images, err := s.store.List()
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "store_error", "画像一覧の取得に失敗しました")
		return
	}

	names := make([]string, 0, len(images))
	for _, img := range images {
		names = append(names, img.Name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	c.JSON(http.StatusOK, ImagesResponse{
		Images: names,
		Count:  len(names),
	})
}

// handleDownloadImage は指定画像をダウンロードさせる
func (s *Server) handleDownloadImage(c *gin.Context) {
	filename := c.Param("filename")

	// パストラバーサルを防ぐ
	if strings.ContainsAny(filename, `/\`) || strings.HasPrefix(filename, ".") {
		errorJSON(c, http.StatusBadRequest, "invalid_filename", "不正なファイル名です")
		return
	}

	path := filepath.Join(s.store.Dir(), filename)
	if _, err := os.Stat(path); err != nil {
		errorJSON(c, http.StatusNotFound, "file_not_found", "指定されたファイルが見つかりません")
		return
	}

	c.FileAttachment(path, filename)
}

// handleSubmitTimelapse はタイムラプスジョブを投入する
func (s *Server) handleSubmitTimelapse(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "invalid_request", "リクエストボディを解析できません")
		return
	}

	overlay := s.config.Timelapse.Overlay
	if req.Overlay != nil {
		overlay = *req.Overlay
	}

	params := timelapse.Params{
		FPS:       req.FPS,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Overlay:   overlay,
	}

	if req.Async {
		job, err := s.jobs.Submit(c.Request.Context(), params, timelapse.ModeAsync)
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, "submit_failed", err.Error())
			return
		}
		c.JSON(http.StatusAccepted, job)
		return
	}

	// 同期モードは完了までブロックし、終端状態（エラー詳細含む）を直接返す
	job, err := s.jobs.Submit(c.Request.Context(), params, timelapse.ModeSync)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "submit_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, job)
}

// handleJobStatus はジョブのステータスを返す
func (s *Server) handleJobStatus(c *gin.Context) {
	job, err := s.jobs.Status(c.Param("id"))
	if err != nil {
		if errors.Is(err, timelapse.ErrJobNotFound) {
			errorJSON(c, http.StatusNotFound, "job_not_found", "指定されたジョブが見つかりません")
			return
		}
		errorJSON(c, http.StatusInternalServerError, "status_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, job)
}

// handleListJobs は全ジョブの一覧を返す
func (s *Server) handleListJobs(c *gin.Context) {
	jobs := s.jobs.Jobs()
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// errorJSON は共通のエラーレスポンスを返す
func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	})
}
