package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/planvista/planvista-backend/internal/auth"
	"github.com/planvista/planvista-backend/internal/render"
	"github.com/planvista/planvista-backend/internal/render/repository"
)

// Handler serves the render endpoint.
type Handler struct {
	client *render.Client
	events *repository.EventRepository
	log    *logrus.Logger
}

func New(client *render.Client, events *repository.EventRepository, log *logrus.Logger) *Handler {
	return &Handler{client: client, events: events, log: log}
}

// Register attaches the render route to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/render", h.render)
}

type renderReq struct {
	Image string `json:"image"`
	Name  string `json:"name"`
}

func (h *Handler) render(c *gin.Context) {
	var req renderReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image provided"})
		return
	}

	if !h.client.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "GEMINI_API_KEY is not configured"})
		return
	}

	name := req.Name
	if name == "" {
		name = "Untitled"
	}
	h.log.WithField("name", name).Info("starting 3D render")

	start := time.Now()
	renderedImage, err := h.client.Render(c.Request.Context(), req.Image)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		h.recordEvent(c, name, duration, err)

		var provErr *render.ProviderError
		if errors.As(err, &provErr) {
			h.log.WithField("status", provErr.StatusCode).Error("render provider failure")
			c.JSON(http.StatusBadGateway, gin.H{"error": "Rendering failed", "details": provErr.Body})
			return
		}
		h.log.WithError(err).Error("render failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rendering failed", "details": err.Error()})
		return
	}

	h.recordEvent(c, name, duration, nil)
	h.log.WithField("name", name).Info("3D render complete")
	c.JSON(http.StatusOK, gin.H{"renderedImage": renderedImage})
}

func (h *Handler) recordEvent(c *gin.Context, name string, durationMs int64, renderErr error) {
	ev := repository.RenderEvent{
		OwnerID:     auth.UserID(c),
		ProjectName: name,
		DurationMs:  durationMs,
		Status:      "ok",
	}
	if renderErr != nil {
		ev.Status = "error"
		ev.Error = renderErr.Error()
		var provErr *render.ProviderError
		if errors.As(renderErr, &provErr) {
			ev.ProviderStatus = provErr.StatusCode
		}
	}
	if err := h.events.Record(c.Request.Context(), ev); err != nil {
		h.log.WithError(err).Warn("failed to record render event")
	}
}
