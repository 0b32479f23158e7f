package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/aqureshiest/parse-pdf/internal/models"
	"github.com/aqureshiest/parse-pdf/internal/server"
	"github.com/aqureshiest/parse-pdf/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/gin-gonic/gin"
)

var (
	parserInstance *services.ParserFunction
	router         http.Handler
	uploadInstance *services.UploadFunction
	once           sync.Once
	initErr        error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	gin.SetMode(gin.ReleaseMode)

	functions.HTTP("ParsePDF", parsePDF)
	functions.CloudEvent("ParseUploadedPDF", parseUploadedPDF)
}

// main is required by the Go Functions Framework.
func main() {}

func initialize() error {
	once.Do(func() {
		ctx := context.Background()
		parserInstance, initErr = services.NewParser(ctx)
		if initErr != nil {
			return
		}
		router = server.New(parserInstance)
		uploadInstance, initErr = services.NewUploadHandler(ctx, parserInstance)
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
	}
	return initErr
}

// parsePDF serves the parse endpoint through the same router as the standalone server.
func parsePDF(w http.ResponseWriter, r *http.Request) {
	if err := initialize(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{Detail: "Service is not configured."})
		return
	}
	router.ServeHTTP(w, r)
}

// parseUploadedPDF parses PDFs dropped into the watched bucket.
func parseUploadedPDF(ctx context.Context, e cloudevents.Event) error {
	if err := initialize(); err != nil {
		return err
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return uploadInstance.Process(ctx, gcsEvent)
}
