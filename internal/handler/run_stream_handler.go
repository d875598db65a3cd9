package handler

import (
	"support-flow-be/internal/pkg/logger"
	"support-flow-be/internal/pkg/serverutils"
	internalWS "support-flow-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RunStreamHandler pushes run status updates over WebSocket.
type RunStreamHandler struct {
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewRunStreamHandler(hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *RunStreamHandler {
	return &RunStreamHandler{hub: hub, jwtSecret: jwtSecret, logger: log}
}

// ServeWs authenticates the handshake and attaches the connection to the hub.
// Without a JWT secret the client receives every user's runs.
func (h *RunStreamHandler) ServeWs(c *fiber.Ctx) error {
	userID := internalWS.AllUsers
	if h.jwtSecret != "" {
		tokenStr := serverutils.BearerToken(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')"))
		}
		id, err := serverutils.ParseToken(tokenStr, h.jwtSecret)
		if err != nil || id == "" {
			h.logger.Warn("RunStreamHandler", "Invalid token in WS handshake", map[string]interface{}{"error": errString(err)})
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}
		userID = id
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("RunStreamHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(h.hub, conn, userID)
		h.logger.Info("RunStreamHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(c)
}

func (h *RunStreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/runs", h.ServeWs)
}

func errString(err error) string {
	if err == nil {
		return "missing user_id claim"
	}
	return err.Error()
}
