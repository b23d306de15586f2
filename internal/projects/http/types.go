package http

import (
	"github.com/sirupsen/logrus"

	"github.com/planvista/planvista-backend/internal/projects/service"
)

// Handler bundles the dependencies for project HTTP endpoints.
type Handler struct {
	svc *service.ProjectService
	log *logrus.Logger
}

func New(svc *service.ProjectService, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}
