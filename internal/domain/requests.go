package domain

// AddItemRequest is the body of POST /cart/items. A missing quantity means one unit.
type AddItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  *int    `json:"quantity"`
	Variant   *string `json:"variant"`
}

// QuantityOrDefault returns the requested quantity, defaulting to 1.
func (r *AddItemRequest) QuantityOrDefault() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

// UpdateQuantityRequest is the body of PUT /cart/items/:id.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ChatHistoryRequest is the query of GET /chat/history. By default only user messages
// are listed, the same entries a joiner is replayed.
type ChatHistoryRequest struct {
	Room          string `form:"room"`
	Limit         int    `form:"limit" binding:"omitempty,min=1,max=200"`
	IncludeSystem bool   `form:"include_system"`
}

// ChatHistoryResponse lists the most recent messages of a room, oldest first.
type ChatHistoryResponse struct {
	Room     string        `json:"room"`
	Messages []ChatMessage `json:"messages"`
}
