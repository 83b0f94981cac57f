package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	logger := New()
	assert.NotNil(t, logger)
	assert.NotNil(t, logger.info)
	assert.NotNil(t, logger.error)
	assert.NotNil(t, logger.warn)
}

func TestLevelsGoToTheirWriters(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewWithWriter(&out, &errOut)

	logger.Info("ad %d created", 7)
	logger.Warn("slow blob write: %s", "2s")
	logger.Error("Failed to process request %d: %s", 500, "boom")

	assert.Contains(t, out.String(), "INFO: ")
	assert.Contains(t, out.String(), "ad 7 created")
	assert.NotContains(t, out.String(), "WARN")

	assert.Contains(t, errOut.String(), "WARN: ")
	assert.Contains(t, errOut.String(), "slow blob write: 2s")
	assert.Contains(t, errOut.String(), "ERROR: ")
	assert.Contains(t, errOut.String(), "Failed to process request 500: boom")
}
