package audit

import (
	"context"

	"github.com/Mariodrm17/Practica1/pkg/log"
)

// Audit actions for cart mutations.
const (
	ActionCartAdd    = "cart.add"
	ActionCartUpdate = "cart.update"
	ActionCartRemove = "cart.remove"
	ActionCartClear  = "cart.clear"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogLine emits an audit entry for a change to a single cart line.
func LogLine(ctx context.Context, action, userID, productID, variant string, qty int, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(log.FieldProductID, productID).
		Str(log.FieldVariant, variant).
		Int(log.FieldQuantity, qty).
		Msg(msg)
}
