package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/cti-comb/app/cfg"
	"github.com/lysyi3m/cti-comb/app/database"
	"github.com/lysyi3m/cti-comb/app/queue"
	"github.com/lysyi3m/cti-comb/app/tasks"
)

func NewHandler(sources database.SourceRepository, items database.ItemRepository, q queue.Queue,
	worker tasks.WorkerInterface, reconciler ReconcilerInterface, mode, version string) *Handler {
	return &Handler{
		sources:   sources,
		items:     items,
		queue:     q,
		worker:    worker,
		scheduler: reconciler,
		mode:      mode,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.version,
		"mode":      h.mode,
	}

	count, err := h.sources.GetSourceCount(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_source_count", "error", err)
		health["status"] = "unhealthy"
		health["error"] = "database unavailable"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	health["sources"] = count

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	itemStats, err := h.items.GetItemStats(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "get_item_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	stats := gin.H{
		"items": gin.H{
			"total":     itemStats.Total,
			"sources":   itemStats.Sources,
			"last_seen": itemStats.LastSeen,
		},
	}

	if count, err := h.sources.GetSourceCount(ctx); err == nil {
		stats["sources"] = count
	}

	if h.worker != nil && (h.mode == cfg.ModeAll || h.mode == cfg.ModeWorker) {
		stats["worker"] = h.worker.Stats()
	}

	if h.scheduler != nil {
		if entries, err := h.scheduler.Schedules(ctx); err == nil {
			stats["scheduled"] = len(entries)
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIFetchSource(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source id parameter"})
		return
	}
	ctx := c.Request.Context()

	src, err := h.sources.GetSource(ctx, id)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if src == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	job, err := h.worker.EnqueueSource(ctx, src.ID)
	if err != nil {
		slog.Error("Error enqueueing fetch job", "source", id, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrQueueClosed) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error":   "Failed to enqueue fetch job",
			"details": err.Error(),
		})
		return
	}

	slog.Info("Fetch job enqueued", "source", src.ID, "job_id", job.ID)

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"job": gin.H{
			"id":        job.ID,
			"name":      job.Name,
			"source_id": job.SourceID,
		},
	})
}

func (h *Handler) APIListSchedules(c *gin.Context) {
	entries, err := h.queue.RepeatableJobs(c.Request.Context())
	if err != nil {
		slog.Error("Queue error", "operation", "list_repeatable", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Queue error"})
		return
	}

	schedules := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		schedules = append(schedules, gin.H{
			"key":       e.Key,
			"source_id": e.SourceID,
			"pattern":   e.Pattern,
			"next":      e.Next,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"schedules": schedules,
		"total":     len(schedules),
	})
}

func (h *Handler) APIReconcile(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler is not running in this process"})
		return
	}

	result, err := h.scheduler.Reconcile(c.Request.Context())
	if err != nil {
		slog.Error("Reconcile failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Reconcile failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}
