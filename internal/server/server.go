// Package server exposes the parse pipeline over HTTP.
package server

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/aqureshiest/parse-pdf/internal/models"
	"github.com/aqureshiest/parse-pdf/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	invalidTypeDetail = "Invalid document type. Please upload a PDF file."
	missingFileDetail = "A PDF file must be uploaded in the \"file\" form field."
	parseErrorPrefix  = "An error occurred while parsing the PDF: "
)

// Parser is the pipeline the handlers call into.
type Parser interface {
	Process(ctx context.Context, req *services.ParseRequest) (*services.ParseResult, error)
}

type handler struct {
	parser Parser
}

// New builds the gin engine with CORS open to every origin.
func New(parser Parser) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(Logger())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders:   []string{"Content-Length", RequestIDHeader},
	}))

	h := &handler{parser: parser}
	router.GET("/healthz", h.healthz)
	router.POST("/parse-pdf", h.parsePDF)
	router.POST("/parse-pdf/", h.parsePDF)
	return router
}

func (h *handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) parsePDF(c *gin.Context) {
	logCtx := slog.With("requestId", c.GetString(requestIDKey))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: missingFileDetail})
		return
	}

	if !isPDF(fileHeader.Header.Get("Content-Type")) {
		logCtx.Info("Rejected non-PDF upload.", "filename", fileHeader.Filename, "contentType", fileHeader.Header.Get("Content-Type"))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Detail: invalidTypeDetail})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logCtx.Error("Failed to open uploaded file.", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: parseErrorPrefix + err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		logCtx.Error("Failed to read uploaded file.", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: parseErrorPrefix + err.Error()})
		return
	}

	result, err := h.parser.Process(c.Request.Context(), &services.ParseRequest{Data: data, Filename: fileHeader.Filename})
	if err != nil {
		logCtx.Error("Failed to parse PDF.", "filename", fileHeader.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: parseErrorPrefix + err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ParsePDFResponse{Content: result.Content})
}

func isPDF(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.EqualFold(mediaType, "application/pdf")
}
