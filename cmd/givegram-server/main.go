package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"givegram/internal/config"
	"givegram/internal/handlers"
	"givegram/internal/services"
)

func main() {
	// 1. Load configuration and initialize logging
	cfg, err := config.LoadServer()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	defer logger.Init("givegram-server", true, false, io.Discard).Close()

	// 2. Load the platform fixture the sessions authenticate against
	platform, err := services.LoadFixturePlatform(cfg.FixturePath)
	if err != nil {
		logger.Fatalf("Failed to load platform fixture: %v", err)
	}

	// 3. Initialize the services
	sessions := services.NewSessionStore(platform, cfg.SessionTTL)
	selector := services.NewWinnerSelector(nil)

	// 4. Start the janitor that purges expired sessions
	if err := sessions.StartJanitor(cfg.CleanupSchedule); err != nil {
		logger.Fatalf("Failed to start session cleanup: %v", err)
	}
	defer sessions.Stop()

	// 5. Set up the Gin router and register the API routes
	if !cfg.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	handlers.NewHTTPHandler(sessions, selector).RegisterRoutes(r)

	// 6. Run the server until SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		logger.Infof("Server starting on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown: %v", err)
	}
	logger.Infof("Server stopped")
}
