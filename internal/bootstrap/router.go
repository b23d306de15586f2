package bootstrap

import (
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	httpapi "github.com/planvista/planvista-backend/internal/api/http"
	"github.com/planvista/planvista-backend/internal/api/http/middleware"
	authmw "github.com/planvista/planvista-backend/internal/auth/middleware"
	projectshttp "github.com/planvista/planvista-backend/internal/projects/http"
	"github.com/planvista/planvista-backend/internal/projects/repository"
	"github.com/planvista/planvista-backend/internal/projects/service"
	"github.com/planvista/planvista-backend/internal/render"
	renderhttp "github.com/planvista/planvista-backend/internal/render/http"
	renderrepo "github.com/planvista/planvista-backend/internal/render/repository"
	"github.com/planvista/planvista-backend/internal/storage/kv"
)

type RouterDeps struct {
	ServiceName  string
	Version      string
	AllowOrigins []string
	Redis        *redis.Client
	DB           *pgxpool.Pool
	Blob         repository.BlobStore
	AuthClient   *fbauth.Client
	RenderClient *render.Client
	Logger       *logrus.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-User-Id", "X-User-Name"},
		AllowCredentials: true,
	}))

	store := kv.NewStore(dep.Redis)

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, store, dep.DB)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api")
	api.Use(middleware.RequestIDMiddleware(dep.Logger))
	api.Use(authmw.Identify(dep.AuthClient))

	projectRepo := repository.NewProjectRepository(store, dep.Blob, dep.Logger)
	projectSvc := service.NewProjectService(projectRepo)
	projectshttp.New(projectSvc, dep.Logger).Register(api.Group("/projects"))

	eventRepo := renderrepo.NewEventRepository(dep.DB)
	renderhttp.New(dep.RenderClient, eventRepo, dep.Logger).Register(api)

	return r
}
