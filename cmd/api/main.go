package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"traffic-count-api/config"
	"traffic-count-api/handlers"
	"traffic-count-api/middleware"
	"traffic-count-api/services"
	"traffic-count-api/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := storage.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	if err := storage.Seed(db, cfg.Seed); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	cache := services.NewCacheService(cfg.Redis)
	defer cache.Close()

	auth := services.NewAuthService(db, cfg.Session)
	ledger := services.NewLedgerService(db)
	reports := services.NewReportService(db)

	// Initialize Gin router
	router := gin.Default()
	router.Use(middleware.SetupCORS(cfg.CORS))

	action := handlers.NewActionHandler(auth, ledger, reports, cache)
	download := handlers.NewDownloadHandler(auth, reports, cache)

	router.POST("/action", action.Handle)
	router.GET("/download.csv", download.Download)
	router.GET("/live", handlers.LiveWebSocket(cache, auth))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "UP",
			"message": "Traffic Count API is running",
		})
	})

	registerStatic(router, cfg.Server.StaticDir)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// registerStatic serves the bundled front end: /, *.html, /css, /js.
func registerStatic(router *gin.Engine, dir string) {
	router.Static("/css", filepath.Join(dir, "css"))
	router.Static("/js", filepath.Join(dir, "js"))

	index := filepath.Join(dir, "pages", "index.html")
	router.GET("/", func(c *gin.Context) {
		c.File(index)
	})
	router.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasSuffix(path, ".html") {
			c.File(filepath.Join(dir, "pages", filepath.Base(path)))
			return
		}
		c.Status(http.StatusNotFound)
	})
}
