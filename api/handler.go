package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"slidecast/config"
	"slidecast/task"
)

type Handler struct {
	registry    *task.Registry
	coordinator *task.Coordinator
	cfg         *config.Config
	log         *logrus.Logger

	// baseCtx scopes transcodes to the service lifetime rather than the HTTP
	// request: there is no user-initiated cancellation, only shutdown.
	baseCtx context.Context
}

func NewHandler(baseCtx context.Context, reg *task.Registry, coord *task.Coordinator, cfg *config.Config, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		registry:    reg,
		coordinator: coord,
		cfg:         cfg,
		log:         log,
		baseCtx:     baseCtx,
	}
}

// handleUpload accepts the archive and runs the conversion pipeline within the
// request. The client polls /progress concurrently while this request is open,
// and learns of failures both from this response and from the task state.
func (h *Handler) handleUpload(c *gin.Context) {
	if c.Request.ContentLength > h.cfg.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "The file is too large. The maximum size is 1 GB."})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "The file is too large. The maximum size is 1 GB."})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file was uploaded. Please upload a ZIP archive."})
		return
	}
	if fileHeader.Filename == "" || fileHeader.Size == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The uploaded file is empty."})
		return
	}
	if fileHeader.Size > h.cfg.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "The file is too large. The maximum size is 1 GB."})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read the uploaded file."})
		return
	}
	defer src.Close()

	t := h.registry.Create()
	h.log.WithFields(logrus.Fields{"task_id": t.ID, "filename": fileHeader.Filename, "size": fileHeader.Size}).Info("upload accepted")

	if err := h.coordinator.Process(h.baseCtx, t.ID, src, fileHeader.Filename); err != nil {
		te := task.AsError(err)
		c.JSON(te.Kind.HTTPStatus(), gin.H{"error": te.UserMessage})
		return
	}

	base := h.baseURL(c)
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"task_id":      t.ID,
		"message":      "Video created successfully!",
		"download_url": fmt.Sprintf("%s/download/%s", base, t.ID),
		"stream_url":   fmt.Sprintf("%s/stream/%s", base, t.ID),
	})
}

// baseURL resolves the public base for artifact URLs: the configured BASE when
// set, otherwise reconstructed from the request.
func (h *Handler) baseURL(c *gin.Context) string {
	base := h.cfg.BaseURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, c.Request.Host)
	}
	return strings.TrimSuffix(base, "/")
}

// handleProgress reports task progress. It never errors: unknown or evicted
// IDs get a not_found status with zero progress.
func (h *Handler) handleProgress(c *gin.Context) {
	h.registry.EvictExpired(time.Now())

	t, found := h.registry.Get(c.Param("taskID"))
	if !found {
		c.JSON(http.StatusOK, gin.H{"status": "not_found", "progress": 0, "message": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": t.State, "progress": t.Progress, "message": t.Message})
}

// artifactPath resolves a task ID to its downloadable artifact, if any.
func (h *Handler) artifactPath(taskID string) (string, bool) {
	t, found := h.registry.Get(taskID)
	if !found || t.State != task.StateCompleted || t.OutputPath == "" {
		return "", false
	}
	if _, err := os.Stat(t.OutputPath); err != nil {
		return "", false
	}
	return t.OutputPath, true
}

func (h *Handler) handleDownload(c *gin.Context) {
	taskID := c.Param("taskID")
	path, ok := h.artifactPath(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found or expired."})
		return
	}
	c.FileAttachment(path, fmt.Sprintf("video_%s.mp4", taskID))
}

func (h *Handler) handleStream(c *gin.Context) {
	path, ok := h.artifactPath(c.Param("taskID"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found or expired."})
		return
	}
	c.Header("Content-Type", "video/mp4")
	c.File(path)
}
