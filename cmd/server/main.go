package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learnsphere-backend/internal/config"
	"learnsphere-backend/internal/database"
	"learnsphere-backend/internal/handlers"
	"learnsphere-backend/internal/middleware"
	"learnsphere-backend/internal/repository"
	"learnsphere-backend/internal/router"
	"learnsphere-backend/internal/services"
	"learnsphere-backend/internal/worker"
)

func main() {
	log.Println("Starting LearnSphere backend...")

	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClient.Close()
	log.Println("✓ Redis connected")

	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// Repositories
	userRepo := repository.NewUserRepo(pool)
	quizRepo := repository.NewQuizRepo(pool)
	attemptRepo := repository.NewAttemptRepo(pool)
	enrollmentRepo := repository.NewEnrollmentRepo(pool)

	// Services
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, redisClient, jwtAuth)
	locks := services.NewRedisTTLStore(redisClient)
	achievementQueue := services.NewAchievementQueue(redisClient)
	reclaimer := services.NewReclaimer(
		attemptRepo,
		time.Duration(cfg.DefaultTimeLimitMinutes)*time.Minute,
		time.Duration(cfg.AbandonGraceMinutes)*time.Minute,
	)
	attemptManager := services.NewAttemptManager(quizRepo, attemptRepo, enrollmentRepo, locks, achievementQueue, reclaimer)
	quizService := services.NewQuizService(quizRepo, attemptRepo)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	quizHandler := handlers.NewQuizHandler(quizService)
	attemptHandler := handlers.NewAttemptHandler(attemptManager, reclaimer)

	// Background work
	sweepScheduler := services.NewSweepScheduler(reclaimer, time.Duration(cfg.SweepIntervalMinutes)*time.Minute)
	sweepScheduler.Start()

	achievementClient := services.NewAchievementClient(cfg.AchievementServiceURL)
	workerPool := worker.NewPool(redisClient, achievementClient, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	r := router.New(jwtAuth, authHandler, quizHandler, attemptHandler, cfg.FrontendURL)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		sweepScheduler.Stop()
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ LearnSphere backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
