package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/auth"
	"github.com/noah-isme/gema-survey-api/internal/config"
	"github.com/noah-isme/gema-survey-api/internal/database"
	"github.com/noah-isme/gema-survey-api/internal/handler"
	"github.com/noah-isme/gema-survey-api/internal/middleware"
	"github.com/noah-isme/gema-survey-api/internal/repository"
	"github.com/noah-isme/gema-survey-api/internal/router"
	"github.com/noah-isme/gema-survey-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, database.PoolOptions{
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, survey feed limited to redis fan-out")
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	sessions, err := auth.NewManager(cfg.StudentSessionSecret, cfg.StudentSessionTTL)
	if err != nil {
		log.Fatalf("failed to create session manager: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	templateRepo := repository.NewSurveyTemplateRepository(db)
	assignmentRepo := repository.NewSurveyAssignmentRepository(db)
	responseRepo := repository.NewSurveyResponseRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	feed := service.NewSurveyFeed(redisClient, cfg.RealtimeChannel, natsConn, logger)
	feed.Start(ctx)

	activityService := service.NewActivityService(activityRepo, logger)
	statisticsService := service.NewSurveyStatisticsService(assignmentRepo, responseRepo, redisClient, cfg.StatisticsCacheTTL, logger)
	templateService := service.NewSurveyTemplateService(templateRepo, feed, validate, activityService, logger)
	assignmentService := service.NewSurveyAssignmentService(assignmentRepo, templateRepo, studentRepo, feed, statisticsService, validate, activityService, logger)
	responseService := service.NewSurveyResponseService(responseRepo, feed, statisticsService, validate, logger)
	formService := service.NewSurveyFormService(assignmentRepo, templateRepo, responseService, validate, logger)
	studentAuthService := service.NewStudentAuthService(studentRepo, sessions, redisClient, validate, logger)
	adminStudentService := service.NewAdminStudentService(studentRepo, validate, activityService, logger)

	if cfg.SeedDefaultTemplates {
		inserted, err := templateService.EnsureDefaults(ctx, service.ActivityActor{Role: "system"})
		if err != nil {
			logger.Error().Err(err).Msg("failed to seed default survey templates")
		} else if inserted > 0 {
			logger.Info().Int("inserted", inserted).Msg("default survey templates seeded")
		}
	}

	assignmentService.StartExpirySweep(ctx, cfg.ExpirySweepInterval)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.AllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		SurveyTemplateHandler:   handler.NewSurveyTemplateHandler(templateService, logger),
		SurveyAssignmentHandler: handler.NewSurveyAssignmentHandler(assignmentService, logger),
		SurveyResponseHandler:   handler.NewSurveyResponseHandler(responseService, statisticsService, logger),
		SurveyLiveHandler:       handler.NewSurveyLiveHandler(templateService, assignmentService, responseService, logger),
		SurveyFormHandler:       handler.NewSurveyFormHandler(formService, logger),
		StudentPortalHandler:    handler.NewStudentPortalHandler(studentAuthService, assignmentService, formService, logger, 30*time.Second),
		AdminStudentHandler:     handler.NewAdminStudentHandler(adminStudentService, logger),
		AdminActivityHandler:    handler.NewAdminActivityHandler(activityService, logger),
		HealthProbes: map[string]handler.HealthProbe{
			"database": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
		JWTMiddleware:  middleware.JWTProtected(cfg.JWTSecret),
		StudentSession: middleware.StudentSession(studentAuthService),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, app)
}

func waitForShutdown(ctx context.Context, app *fiber.App) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
