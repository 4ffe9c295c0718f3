package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/config"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/queue"
	"rollcall/internal/roster"
	"rollcall/internal/session"
	"rollcall/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:events")
	}

	sessionRepo := session.NewRepository(db.Client)
	sessions := session.NewService(sessionRepo, cfg.SessionTTL)

	rosterRepo := roster.NewRepository(db.Client)
	accounts := roster.NewService(rosterRepo)

	attRepo := attendance.NewRepository(db.Client)
	att := attendance.NewService(
		sessions,
		rosterRepo,
		attRepo,
		attendance.NewDeviceClaims(redisClient.Client),
		attendance.NewStatsCache(redisClient.Client, time.Hour),
		attendance.NewSigner(cfg.ReceiptSecret),
		cfg.LiveRecentLimit,
	)

	a := &api{
		cfg:        cfg,
		attendance: att,
		sessions:   sessions,
		records:    attRepo,
		roster:     rosterRepo,
		accounts:   accounts,
		queue:      q,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	limiter := httpmiddleware.NewSubmitLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	public := r.Group("/api")
	public.POST("/attendance/submit", limiter.GinMiddleware(), a.submitAttendance)
	public.POST("/auth/login", a.login)
	public.GET("/faqs", a.listFAQs)

	staff := r.Group("/api", auth.StaffAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	staff.POST("/sessions", a.startSession)
	staff.GET("/sessions", a.listSessions)
	staff.POST("/sessions/:id/close", a.closeSession)
	staff.GET("/sessions/:id/live", a.liveSession)
	staff.GET("/sessions/:id/records", a.listSessionRecords)
	staff.GET("/courses", a.listCourses)
	staff.POST("/courses", a.createCourse)
	staff.GET("/students", a.listStudents)
	staff.POST("/students", a.upsertStudent)
	staff.POST("/faqs", a.createFAQ)

	admin := staff.Group("", auth.RequireRole("admin"))
	admin.GET("/lecturers", a.listLecturers)
	admin.POST("/lecturers", a.createLecturer)
	admin.POST("/admin/purge", a.purgeSemester)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}
