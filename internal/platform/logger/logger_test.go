package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_DebugGate(t *testing.T) {
	var quiet, verbose bytes.Buffer

	NewWithWriter(&quiet, false).DebugContext(context.Background(), "raw provider error")
	NewWithWriter(&verbose, true).DebugContext(context.Background(), "raw provider error")

	assert.Empty(t, quiet.String())
	assert.Contains(t, verbose.String(), `"msg":"raw provider error"`)
}
