package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxbridge/server/domain/repositories"
	"github.com/voxbridge/server/internal/auth"
	"github.com/voxbridge/server/internal/websocket"
)

// InitRoutes initializes all API routes.
func InitRoutes(e *echo.Echo, hub *websocket.Hub, stt repositories.SpeechToText, translator repositories.Translator, logger *zap.Logger) {
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, StatusResponse{
			Message: "VoxBridge live translation API",
			Status:  "running",
		})
	})

	e.GET("/health", func(c echo.Context) error {
		speech := "not configured"
		if stt.Configured() {
			speech = "configured"
		}
		return c.JSON(http.StatusOK, HealthResponse{
			Status:             "healthy",
			SpeechService:      speech,
			TranslationService: translator.ServiceType(),
		})
	})

	v1 := e.Group("/api/v1")
	v1.POST("/token", func(c echo.Context) error {
		return issueToken(c, logger)
	})

	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, logger)
	})
}

func issueToken(c echo.Context, logger *zap.Logger) error {
	if !auth.Enabled() {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "auth_disabled",
			Message: "Token auth is not configured on this server",
		})
	}

	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	token, err := auth.GenerateClientToken(req.ClientName)
	if err != nil {
		logger.Error("Failed to generate client token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	return c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
}

// websocketWithAuth gates the websocket endpoint behind a bearer token when
// JWT_SECRET is configured; without it the endpoint is open.
func websocketWithAuth(hub *websocket.Hub, c echo.Context, logger *zap.Logger) error {
	if !auth.Enabled() {
		return websocket.HandleWebSocket(hub, c, logger)
	}

	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if token == "" {
		// Browsers cannot set headers on websocket dials; allow the query
		// parameter as a fallback.
		token = c.QueryParam("token")
	}
	if token == "" {
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "Access token is required",
		})
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired access token",
		})
	}

	logger.Info("WebSocket connection authenticated",
		zap.String("clientName", claims.ClientName))
	return websocket.HandleWebSocket(hub, c, logger)
}
