package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches pkg/middleware/auth.go keys)
	FieldUserID   = "user_id"
	FieldUsername = "username"
	FieldRole     = "role"

	// Service
	FieldService = "service"

	// Cart and inventory
	FieldProductID  = "product_id"
	FieldVariant    = "variant"
	FieldLineItemID = "line_item_id"
	FieldQuantity   = "quantity"

	// Chat
	FieldRoom    = "room"
	FieldConnID  = "conn_id"
	FieldSeq     = "seq"
	FieldAttempt = "attempt"
	FieldMsgType = "msg_type"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
