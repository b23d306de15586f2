package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/planvista/planvista-backend/internal/auth"
	"github.com/planvista/planvista-backend/internal/projects/domain"
)

func (h *Handler) list(c *gin.Context) {
	uid := auth.UserID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	items, err := h.svc.List(c.Request.Context(), uid)
	if err != nil {
		// Best-effort contract: the UI shows an empty gallery, not an error page.
		h.log.WithError(err).Error("failed to list projects")
		c.JSON(http.StatusOK, gin.H{"projects": []domain.Project{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": items})
}

func (h *Handler) get(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Project id required"})
		return
	}

	scope := domain.Visibility(c.DefaultQuery("scope", string(domain.VisibilityPrivate)))
	ownerID := c.Query("ownerId")

	uid := auth.UserID(c)
	if scope != domain.VisibilityPublic {
		if uid == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		ownerID = uid
	}

	p, err := h.svc.GetByID(c.Request.Context(), id, scope, ownerID)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("id", id).Error("failed to get project")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get project"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": p})
}

type saveReq struct {
	Project    *domain.Project `json:"project"`
	Visibility string          `json:"visibility"`
}

func (h *Handler) save(c *gin.Context) {
	uid := auth.UserID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req saveReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Project == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.Project.ID == "" || (req.Project.SourceImage == "" && req.Project.SourcePath == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Project id and image required"})
		return
	}

	visibility := domain.VisibilityPrivate
	if req.Visibility == string(domain.VisibilityPublic) {
		visibility = domain.VisibilityPublic
	}

	p, err := h.svc.Save(c.Request.Context(), req.Project, visibility, uid, auth.DisplayName(c))
	if errors.Is(err, domain.ErrOwnershipConflict) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Project is shared by a different owner"})
		return
	}
	if errors.Is(err, domain.ErrInvalidProject) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Project id and image required"})
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("id", req.Project.ID).Error("failed to save project")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save project"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": true, "id": p.ID, "project": p})
}

func (h *Handler) delete(c *gin.Context) {
	uid := auth.UserID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id := c.Param("id")
	err := h.svc.Delete(c.Request.Context(), id, uid)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("id", id).Error("failed to delete project")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) clear(c *gin.Context) {
	uid := auth.UserID(c)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	cleared, clearedPublic, err := h.svc.Clear(c.Request.Context(), uid)
	if err != nil {
		h.log.WithError(err).Error("failed to clear projects")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": cleared, "clearedPublic": clearedPublic})
}
