package websocket

import (
	"encoding/json"
	"errors"

	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/middleware"
	"github.com/deployra/docsync/internal/models"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var errAccessDenied = errors.New("access denied")

// ProjectPayload selects the project of a join or leave request
type ProjectPayload struct {
	ProjectID string `json:"projectId"`
}

// UpgradeMiddleware rejects plain HTTP requests on the socket route
func UpgradeMiddleware(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler authenticates the connection from its token query parameter and
// serves join_project / leave_project requests until the client goes away.
func Handler(c *websocket.Conn) {
	cfg := config.Get()
	h := GetHub()

	token := c.Query("token")
	if token == "" {
		closeWithError(c, "Authentication required")
		return
	}
	claims, err := middleware.ParseToken(token, cfg.JWTSecret)
	if err != nil {
		closeWithError(c, "Invalid token")
		return
	}

	client := NewClient(c, claims.UserID)
	h.Register(client)
	defer h.Unregister(client)

	logger := log.With().Str("user_id", claims.UserID).Logger()

	if err := h.SendToClient(client, "connected", map[string]string{"userId": claims.UserID}); err != nil {
		logger.Warn().Err(err).Msg("Error sending connected event")
	}

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("Error reading websocket message")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Debug().Err(err).Msg("Error parsing websocket message")
			continue
		}
		HandleMessage(database.GetDatabase(), h, client, msg)
	}
}

// HandleMessage applies one client request to the hub
func HandleMessage(db *gorm.DB, h *Hub, client *Client, msg Message) {
	switch msg.Event {
	case "join_project", "leave_project":
	default:
		log.Debug().Str("event", msg.Event).Msg("Unknown websocket event")
		return
	}

	var payload ProjectPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.ProjectID == "" {
		_ = h.SendToClient(client, "error", map[string]string{"message": "Invalid payload"})
		return
	}
	room := ProjectRoom(payload.ProjectID)

	if msg.Event == "leave_project" {
		h.LeaveRoom(client, room)
		return
	}

	if err := authorizeProject(db, client.UserID, payload.ProjectID); err != nil {
		message := "Project not found"
		if errors.Is(err, errAccessDenied) {
			message = "Access denied"
		}
		_ = h.SendToClient(client, "error", map[string]string{"message": message})
		return
	}

	h.JoinRoom(client, room)
	_ = h.SendToClient(client, "joined_project", payload)
	log.Debug().Str("user_id", client.UserID).Str("room", room).Msg("Websocket client joined project")
}

func authorizeProject(db *gorm.DB, userID, projectID string) error {
	var project models.Project
	if err := db.Where("id = ? AND deletedAt IS NULL", projectID).First(&project).Error; err != nil {
		return err
	}
	if project.UserID != userID {
		return errAccessDenied
	}
	return nil
}

func closeWithError(c *websocket.Conn, message string) {
	_ = c.WriteJSON(map[string]any{
		"event":   "error",
		"payload": map[string]string{"message": message},
	})
	_ = c.Close()
}
