package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/demo-importer/app/profile"
	"github.com/lysyi3m/demo-importer/app/tasks"
)

func NewHandler(store StatsProvider, profiles ProfileCounter, dispatcher *tasks.Dispatcher,
	scheduler tasks.TaskSchedulerInterface, renderer RendererInterface, exportDir, version string) *Handler {
	return &Handler{
		store:      store,
		profiles:   profiles,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		renderer:   renderer,
		exportDir:  exportDir,
		version:    version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"profile":   h.dispatcher.Profile().Name,
	}

	if stats, err := h.store.Stats(c.Request.Context()); err == nil {
		health["content"] = stats
	} else {
		slog.Error("Database error", "operation", "stats", "error", err)
	}

	health["loaded_profiles"] = h.profiles.GetProfileCount()

	c.JSON(http.StatusOK, health)
}

// APIImporter runs one importer action. Action failures are reported in the
// response body with status 200, the way the admin client expects them.
func (h *Handler) APIImporter(c *gin.Context) {
	var req tasks.Request
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if req.DataType != "" && req.DataType != profile.DataTypeVC && req.DataType != profile.DataTypeNoVC {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data type", "details": req.DataType})
		return
	}

	if h.dispatcher.RunActive() {
		c.JSON(http.StatusConflict, gin.H{"error": "Import run in progress"})
		return
	}

	resp := h.dispatcher.Dispatch(c.Request.Context(), req)
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) APIImporterStatus(c *gin.Context) {
	cp, state, err := h.dispatcher.Status()
	if err != nil {
		slog.Error("Checkpoint error", "profile", h.dispatcher.Profile().Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read checkpoint"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile": h.dispatcher.Profile().Name,
		"last_id": cp.LastID,
		"result":  cp.Percent,
		"state":   state.String(),
	})
}

// APIImporterRun starts a background run that keeps importing chunks and then
// applies the options files. Only one run is active at a time.
func (h *Handler) APIImporterRun(c *gin.Context) {
	var req tasks.Request
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if !h.dispatcher.BeginRun() {
		c.JSON(http.StatusConflict, gin.H{"error": "Import run in progress"})
		return
	}

	if req.ClearTables != "" {
		start := req
		start.Action = tasks.ActionImportStart
		if resp := h.dispatcher.Dispatch(c.Request.Context(), start); resp.Error {
			h.dispatcher.EndRun()
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to start import",
				"details": resp.Message,
			})
			return
		}
	}

	task := tasks.NewImportRunTask(h.dispatcher, req)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		h.dispatcher.EndRun()
		slog.Error("Error enqueueing import run", "profile", task.ProfileName, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue import run",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"profile": task.ProfileName,
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func (h *Handler) APIExporter(c *gin.Context) {
	result, err := h.dispatcher.Export(c.Request.Context(), h.exportDir)
	if err != nil {
		slog.Error("Export failed", "profile", h.dispatcher.Profile().Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Export failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"files":   result,
	})
}

func (h *Handler) APIRenderShortcodes(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"html": h.renderer.Render(req.Content)})
}
