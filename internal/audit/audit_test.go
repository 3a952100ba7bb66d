package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mariodrm17/Practica1/pkg/log"
)

func TestLogLine(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), log.New(log.Config{Level: "info", Output: &buf}))

	LogLine(ctx, ActionCartAdd, "u1", "j1", "M", 2, "item added")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, log.LogTypeAudit, entry[log.FieldLogType])
	assert.Equal(t, ActionCartAdd, entry[FieldAction])
	assert.Equal(t, "u1", entry[log.FieldUserID])
	assert.Equal(t, "j1", entry[log.FieldProductID])
	assert.EqualValues(t, 2, entry[log.FieldQuantity])
}
