package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Mariodrm17/Practica1/internal/config"
	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/internal/hub"
	"github.com/Mariodrm17/Practica1/pkg/log"
	"github.com/Mariodrm17/Practica1/pkg/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades authenticated requests and dispatches chat frames to the hub.
type WSHandler struct {
	hub            *hub.Hub
	authMiddleware *middleware.AuthMiddleware
	wsCfg          config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, authMiddleware *middleware.AuthMiddleware, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:            h,
		authMiddleware: authMiddleware,
		wsCfg:          wsCfg,
	}
}

func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/v1/chat/ws", h.authMiddleware.RequireAuth(), h.HandleWebSocket)
}

// HandleWebSocket binds the connection to the identity the gateway resolved. Nothing
// the client sends later can change it.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	connID := uuid.New().String()
	client := hub.NewClient(connID, domain.Identity{
		UserID:   identity.UserID,
		Username: identity.Username,
		Role:     identity.Role,
	}, conn, h.wsCfg)

	// The request context ends when this handler returns; keep only its values.
	ctx := log.WithFields(context.WithoutCancel(c.Request.Context()),
		log.FieldConnID, connID,
		log.FieldUserID, identity.UserID,
	)

	if err := h.hub.Register(client); err != nil {
		conn.WriteJSON(domain.NewErrorMessage(domain.ErrCodeRoomJoinFailed, err.Error()))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(
		func(cl *hub.Client, message []byte) { h.handleMessage(ctx, cl, message) },
		func(cl *hub.Client) { h.hub.Disconnect(ctx, cl) },
	)
}

func (h *WSHandler) handleMessage(ctx context.Context, client *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid message format"))
		return
	}

	switch base.Type {
	case domain.MsgTypeJoin:
		var msg domain.JoinMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid join message"))
			return
		}
		h.reply(ctx, client, base.Type, h.hub.Join(ctx, client, msg.Room, msg.DisplayName))

	case domain.MsgTypeSendMessage:
		var msg domain.SendMessageWS
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid send_message"))
			return
		}
		_, err := h.hub.SendMessage(ctx, client, msg.Body)
		// The sender already got delivery_failed.
		if errors.Is(err, domain.ErrPersistenceFailed) {
			return
		}
		h.reply(ctx, client, base.Type, err)

	case domain.MsgTypeTyping:
		var msg domain.TypingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Invalid typing message"))
			return
		}
		h.reply(ctx, client, base.Type, h.hub.Typing(ctx, client, msg.IsTyping))

	case domain.MsgTypeLeave:
		h.reply(ctx, client, base.Type, h.hub.Leave(ctx, client))

	case domain.MsgTypePing:
		client.SendMessage(map[string]string{"type": domain.MsgTypePong})

	default:
		client.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "Unknown message type"))
	}
}

// reply turns a failed operation into an error frame for the client that sent it.
func (h *WSHandler) reply(ctx context.Context, client *hub.Client, msgType string, err error) {
	if err == nil {
		return
	}
	l := log.Ctx(ctx)
	l.Debug().Err(err).Str(log.FieldMsgType, msgType).Msg("chat operation rejected")

	var dErr *domain.Error
	if errors.As(err, &dErr) {
		client.SendMessage(domain.NewErrorMessage(dErr.Code, dErr.Message))
		return
	}
	client.SendMessage(domain.NewErrorMessage(domain.ErrCodeStorageUnavailable, "internal error"))
}
