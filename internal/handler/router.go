package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-admin-api/internal/middleware"
	"github.com/noah-isme/cohort-admin-api/internal/models"
	"github.com/noah-isme/cohort-admin-api/internal/service"
	"github.com/noah-isme/cohort-admin-api/pkg/config"
	"github.com/noah-isme/cohort-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/cohort-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/cohort-admin-api/pkg/middleware/requestid"
)

// RouterDeps collects everything the HTTP layer needs.
type RouterDeps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *service.MetricsService
	Tokens    middleware.TokenValidator
	Checks    map[string]Pinger
	Teachers  teacherService
	Batches   batchService
	Students  studentService
	Sales     saleService
	Auth      authService
	Dashboard dashboardService
}

// NewRouter builds the gin engine with middleware and every route registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	logr := deps.Logger
	if logr == nil {
		logr = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := NewMetricsHandler(deps.Metrics, deps.Checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	authHandler := NewAuthHandler(deps.Auth)
	api.POST("/auth/login", authHandler.Login)

	var admin []gin.HandlerFunc
	if cfg.Auth.ProtectAdmin {
		admin = append(admin, middleware.JWT(deps.Tokens), middleware.RequireRoles(models.RoleAdmin))
	}

	dashboardHandler := NewDashboardHandler(deps.Dashboard)
	api.GET("/teachers/dashboard",
		middleware.JWT(deps.Tokens),
		middleware.RequireRoles(models.RoleTeacher, models.RoleMentor),
		dashboardHandler.Teacher,
	)

	teacherHandler := NewTeacherHandler(deps.Teachers)
	teachers := api.Group("/teachers", admin...)
	teachers.GET("", teacherHandler.List)
	teachers.POST("", teacherHandler.Create)
	teachers.GET("/:id", teacherHandler.Get)
	teachers.PUT("/:id", teacherHandler.Update)
	teachers.DELETE("/:id", teacherHandler.Delete)

	batchHandler := NewBatchHandler(deps.Batches)
	batches := api.Group("/batches", admin...)
	batches.GET("", batchHandler.List)
	batches.GET("/export", batchHandler.Export)
	batches.POST("", batchHandler.Create)
	batches.GET("/:id", batchHandler.Get)
	batches.PUT("/:id", batchHandler.Update)
	batches.DELETE("/:id", batchHandler.Delete)

	studentHandler := NewStudentHandler(deps.Students)
	students := api.Group("/students", admin...)
	students.GET("", studentHandler.List)
	students.POST("", studentHandler.Create)
	students.GET("/:id", studentHandler.Get)

	saleHandler := NewSaleHandler(deps.Sales)
	sales := api.Group("/sales", admin...)
	sales.GET("", saleHandler.List)
	sales.POST("", saleHandler.Create)
	sales.PATCH("/:id/status", saleHandler.UpdateStatus)

	return r
}
