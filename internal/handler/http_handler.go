package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/internal/hub"
	"github.com/Mariodrm17/Practica1/internal/messagelog"
	"github.com/Mariodrm17/Practica1/internal/service"
	"github.com/Mariodrm17/Practica1/pkg/log"
	"github.com/Mariodrm17/Practica1/pkg/middleware"
	"github.com/Mariodrm17/Practica1/pkg/response"
)

// Handler serves the storefront's REST endpoints.
type Handler struct {
	cartService    service.CartService
	history        messagelog.Log
	hub            *hub.Hub
	authMiddleware *middleware.AuthMiddleware
	historyLimit   int
}

// NewHandler creates a new HTTP handler.
func NewHandler(
	cartService service.CartService,
	history messagelog.Log,
	chatHub *hub.Hub,
	authMiddleware *middleware.AuthMiddleware,
	historyLimit int,
) *Handler {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Handler{
		cartService:    cartService,
		history:        history,
		hub:            chatHub,
		authMiddleware: authMiddleware,
		historyLimit:   historyLimit,
	}
}

// RegisterRoutes registers all REST routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1", h.authMiddleware.RequireAuth())
	{
		cart := api.Group("/cart")
		{
			cart.GET("", h.GetCart)
			cart.DELETE("", h.ClearCart)
			cart.POST("/items", h.AddItem)
			cart.PUT("/items/:id", h.UpdateItem)
			cart.DELETE("/items/:id", h.RemoveItem)
		}

		api.GET("/chat/history", h.GetChatHistory)
	}
}

// Health reports liveness and chat occupancy.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": h.hub.ClientCount(),
	})
}

// GetCart returns the caller's cart.
func (h *Handler) GetCart(c *gin.Context) {
	ctx := c.Request.Context()

	view, err := h.cartService.View(ctx, middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err, "failed to get cart")
		return
	}
	response.Success(c, view)
}

// AddItem reserves stock and adds it to the caller's cart.
func (h *Handler) AddItem(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind add item request")
		response.BadRequest(c, err.Error())
		return
	}

	view, err := h.cartService.AddItem(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		h.fail(c, err, "failed to add item")
		return
	}
	response.Created(c, view)
}

// UpdateItem sets the quantity of one line.
func (h *Handler) UpdateItem(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind update quantity request")
		response.BadRequest(c, err.Error())
		return
	}

	view, err := h.cartService.UpdateQuantity(ctx, middleware.GetUserID(c), c.Param("id"), req.Quantity)
	if err != nil {
		h.fail(c, err, "failed to update item")
		return
	}
	response.Success(c, view)
}

// RemoveItem deletes one line.
func (h *Handler) RemoveItem(c *gin.Context) {
	ctx := c.Request.Context()

	view, err := h.cartService.RemoveItem(ctx, middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to remove item")
		return
	}
	response.Success(c, view)
}

// ClearCart empties the caller's cart.
func (h *Handler) ClearCart(c *gin.Context) {
	ctx := c.Request.Context()

	view, err := h.cartService.Clear(ctx, middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err, "failed to clear cart")
		return
	}
	response.Success(c, view)
}

// GetChatHistory lists the most recent messages of a room.
func (h *Handler) GetChatHistory(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.ChatHistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	room, err := domain.NormalizeRoom(req.Room)
	if err != nil {
		h.fail(c, err, "invalid room")
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = h.historyLimit
	}

	var kinds []domain.MessageKind
	if !req.IncludeSystem {
		kinds = append(kinds, domain.KindMessage)
	}
	messages, err := h.history.Tail(ctx, room, limit, kinds...)
	if err != nil {
		h.fail(c, err, "failed to get chat history")
		return
	}
	response.Success(c, &domain.ChatHistoryResponse{Room: room, Messages: messages})
}

// fail renders a domain error, or logs and hides anything else.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	if response.FromError(c, err) {
		return
	}
	l := log.Ctx(c.Request.Context())
	l.Error().Err(err).Msg(msg)
}
