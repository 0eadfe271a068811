package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/Kishore-Procode/work-flow-lms-api-sub000/api/swagger"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/handler"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/middleware"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/notify"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/repository"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/service"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/cache"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/config"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/database"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/logger"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/mailer"
	corsmiddleware "github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/middleware/requestid"
)

// @title Workflow LMS API
// @version 1.0.0
// @description Registration approval workflow and semester photo tracking
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	photoRepo := repository.NewPhotoRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	mail := mailer.New(cfg.SMTP, logr)
	notifier := notify.NewEmailNotifier(mail, userRepo, logr)
	approverCache := cache.NewApproverCache(redisClient, cfg.Approval.ResolverCacheTTL, logr)

	approvalSvc := service.NewApprovalService(
		registrationRepo,
		userRepo,
		service.DefaultResolvers(userRepo, logr),
		userRepo,
		notifier,
		logr,
		service.WithResolverCache(approverCache, cache.Key),
	)
	registrationSvc := service.NewRegistrationService(registrationRepo, userRepo, approvalSvc, validate, logr)

	eligibilitySvc := service.NewEligibilityService(photoRepo, logr)
	proximity := service.NewProximityGuard(cfg.Photos.MaxDistanceMeters, logr)
	photoSvc := service.NewPhotoService(photoRepo, userRepo, eligibilitySvc, proximity, validate, logr,
		service.WithCertificateTitle(cfg.Photos.CertificateTitle))

	authHandler := handler.NewAuthHandler(authSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc, metricsSvc)
	photoHandler := handler.NewPhotoHandler(photoSvc, metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/registrations", registrationHandler.Register)
		api.GET("/registrations/:id", registrationHandler.Status)

		approvers := api.Group("/registrations", middleware.JWT(authSvc),
			middleware.RequireRoles(models.RoleStaff, models.RoleHOD, models.RolePrincipal, models.RoleAdmin))
		{
			approvers.GET("/pending", registrationHandler.Pending)
			approvers.POST("/:id/decision", registrationHandler.Decide)
		}

		photos := api.Group("/photos", middleware.JWT(authSvc))
		{
			photos.GET("/eligibility", photoHandler.Eligibility)
			photos.POST("", photoHandler.Upload)
			photos.GET("/history", photoHandler.History)
			photos.GET("/certificate", photoHandler.Certificate)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
