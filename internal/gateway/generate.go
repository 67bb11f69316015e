package gateway

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/webforge-labs/site-builder/internal/generation"
	"github.com/webforge-labs/site-builder/internal/metrics"
	"github.com/webforge-labs/site-builder/internal/models"
	"github.com/webforge-labs/site-builder/internal/projects"
)

// StreamHandler serves the generation endpoint: one POST per prompt,
// answered with the event stream (or the single-shot JSON fallback).
type StreamHandler struct {
	generator      *generation.Generator
	projectService *projects.Service
	genMetrics     *metrics.GenerationMetrics
}

// NewStreamHandler creates the generation endpoint handler
func NewStreamHandler(generator *generation.Generator, projectService *projects.Service, genMetrics *metrics.GenerationMetrics) *StreamHandler {
	return &StreamHandler{
		generator:      generator,
		projectService: projectService,
		genMetrics:     genMetrics,
	}
}

// GenerateRequest represents a generation request
type GenerateRequest struct {
	Prompt    string `json:"prompt" binding:"required"`
	ProjectID string `json:"project_id,omitempty"`
}

// Generate godoc
// @Summary Generate a website
// @Description Stream generation events for a prompt as server-sent frames; pass stream=false for a single JSON response
// @Tags generation
// @Accept json
// @Produce text/event-stream
// @Param request body GenerateRequest true "Generation request"
// @Param stream query bool false "Set false for the non-streaming fallback"
// @Success 200 {string} string "event stream"
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /generate [post]
func (sh *StreamHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request", Code: models.ErrCodeInvalidRequest})
		return
	}

	if c.Query("stream") == "false" {
		sh.generateOnce(c, req)
		return
	}

	ctx := c.Request.Context()
	start := time.Now()
	sh.genMetrics.RecordStarted(ctx, "sse")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	writer := generation.NewStreamWriter(c.Writer)
	payload, err := sh.generator.Run(ctx, req.Prompt, writer.WriteEvent)
	writer.WriteDone()

	if err != nil {
		sh.genMetrics.RecordFailed(ctx, "sse", errorType(err), time.Since(start))
		log.Printf(`{"level":"error","message":"Generation failed","error":"%v"}`, err)
		return
	}

	sh.genMetrics.RecordCompleted(ctx, "sse", len(payload.Files), time.Since(start))

	if req.ProjectID != "" {
		sh.autoSave(c, req.ProjectID, payload)
	}
}

// generateOnce is the non-streaming fallback: one JSON body in, one out
func (sh *StreamHandler) generateOnce(c *gin.Context, req GenerateRequest) {
	ctx := c.Request.Context()
	start := time.Now()
	sh.genMetrics.RecordStarted(ctx, "json")

	payload, err := sh.generator.RunOnce(ctx, req.Prompt)
	if err != nil {
		sh.genMetrics.RecordFailed(ctx, "json", errorType(err), time.Since(start))

		var upstream *generation.UpstreamError
		var format *generation.FormatError
		switch {
		case errors.As(err, &upstream):
			status := http.StatusInternalServerError
			code := models.ErrCodeInternalError
			if upstream.Code == generation.UpstreamRateLimited {
				status = http.StatusTooManyRequests
				code = models.ErrCodeRateLimited
			} else if upstream.Code == generation.UpstreamQuotaExhausted {
				status = http.StatusPaymentRequired
				code = models.ErrCodeQuotaExhausted
			}
			c.JSON(status, models.ErrorResponse{Error: upstream.UserMessage(), Code: code})
		case errors.As(err, &format):
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: format.UserMessage(), Code: models.ErrCodeInternalError})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate website", Code: models.ErrCodeInternalError})
		}
		return
	}

	sh.genMetrics.RecordCompleted(ctx, "json", len(payload.Files), time.Since(start))

	if req.ProjectID != "" {
		sh.autoSave(c, req.ProjectID, payload)
	}
	c.JSON(http.StatusOK, payload)
}

// autoSave persists a completed generation to the named project. Save
// failures are logged, not surfaced: the client already holds the files.
func (sh *StreamHandler) autoSave(c *gin.Context, projectID string, payload *generation.Payload) {
	id, err := uuid.Parse(projectID)
	if err != nil {
		log.Printf(`{"level":"warn","message":"Skipping auto-save, bad project id","project_id":"%s"}`, projectID)
		return
	}

	userIDVal, exists := c.Get("user_id")
	if !exists {
		return
	}
	userID, err := uuid.Parse(userIDVal.(string))
	if err != nil {
		return
	}

	files := make([]generation.SessionFile, 0, len(payload.Files))
	for _, f := range payload.Files {
		files = append(files, generation.SessionFile{Name: f.Name, Content: f.Content, Status: generation.FileComplete})
	}

	if err := sh.projectService.SaveGeneratedFiles(c.Request.Context(), id, userID, files); err != nil {
		log.Printf(`{"level":"error","message":"Auto-save failed","error":"%v","project_id":"%s"}`, err, id)
	}
}

func errorType(err error) string {
	var upstream *generation.UpstreamError
	if errors.As(err, &upstream) {
		return string(upstream.Code)
	}
	var format *generation.FormatError
	if errors.As(err, &format) {
		return "format_error"
	}
	return "internal"
}
