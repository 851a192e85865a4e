// Serves Markdown inspection reports for PCB classification results.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sensorable/yolocrop/report"
)

type config struct {
	Addr        string
	OllamaURL   string // Empty disables remote generation.
	OllamaModel string
	Timeout     time.Duration
}

func loadConfig() config {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	return config{
		Addr:        getEnv("REPORT_ADDR", ":8002"),
		OllamaURL:   getEnv("OLLAMA_URL", ""),
		OllamaModel: getEnv("OLLAMA_MODEL", "llama3.2"),
		Timeout:     time.Duration(getEnvAsInt("REPORT_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Invalid %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	var generator report.Generator
	if cfg.OllamaURL != "" {
		g, err := report.NewOllamaGenerator(cfg.OllamaURL, cfg.OllamaModel, nil)
		if err != nil {
			log.Fatalf("Failed to create Ollama client: %v", err)
		}
		generator = g
		log.Printf("Remote reports from %s (model %s, timeout %s)", cfg.OllamaURL, cfg.OllamaModel, cfg.Timeout)
	} else {
		log.Print("OLLAMA_URL not set, serving template reports only")
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           report.NewHandler(report.NewService(generator, cfg.Timeout)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Report service listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
}
