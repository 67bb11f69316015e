package gateway

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/webforge-labs/site-builder/internal/auth"
	"github.com/webforge-labs/site-builder/internal/generation"
	"github.com/webforge-labs/site-builder/internal/metrics"
)

// WebSocketStream serves the generation event sequence over a websocket
// for clients that cannot hold a chunked HTTP response open. The client
// connects, sends one {prompt} message, and receives the same event
// envelopes the SSE endpoint frames, one JSON message each, followed by
// a normal close.
type WebSocketStream struct {
	generator  *generation.Generator
	jwtManager *auth.JWTManager
	genMetrics *metrics.GenerationMetrics
	tracer     trace.Tracer
	upgrader   websocket.Upgrader
}

// NewWebSocketStream creates the websocket generation endpoint
func NewWebSocketStream(generator *generation.Generator, jwtManager *auth.JWTManager, genMetrics *metrics.GenerationMetrics) *WebSocketStream {
	return &WebSocketStream{
		generator:  generator,
		jwtManager: jwtManager,
		genMetrics: genMetrics,
		tracer:     otel.Tracer("websocket-stream"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict origins once the frontend host list is settled
				return true
			},
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

type wsGenerateRequest struct {
	Prompt string `json:"prompt"`
}

// StreamGeneration handles GET /api/ws/generate
func (ws *WebSocketStream) StreamGeneration(c *gin.Context) {
	ctx, span := ws.tracer.Start(c.Request.Context(), "websocket_stream.generate")
	defer span.End()

	// Browsers cannot set headers on websocket dials, so the token
	// rides in the query string.
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}
	claims, err := ws.jwtManager.ValidateToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	span.SetAttributes(attribute.String("user.id", claims.UserID))

	conn, err := ws.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	var req wsGenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		span.RecordError(err)
		log.Printf("Failed to read generation request: %v", err)
		return
	}
	if req.Prompt == "" {
		conn.WriteJSON(generation.Event{Type: generation.EventError, Message: "Prompt is required"})
		return
	}

	start := time.Now()
	ws.genMetrics.RecordStarted(ctx, "websocket")

	sink := func(ev generation.Event) error {
		return conn.WriteJSON(ev)
	}

	payload, err := ws.generator.Run(ctx, req.Prompt, sink)
	if err != nil {
		span.RecordError(err)
		ws.genMetrics.RecordFailed(ctx, "websocket", errorType(err), time.Since(start))
	} else {
		ws.genMetrics.RecordCompleted(ctx, "websocket", len(payload.Files), time.Since(start))
	}

	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
}
