package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kevinchung58/Paper2Poster/internal/shared/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ClientLogEntry is one diagnostic record from a studio front end, such as
// a failed preview render.
type ClientLogEntry struct {
	ID        string         `json:"id"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
	Timestamp string         `json:"timestamp"`
}

// ClientLogBatch is the body of POST /logs.
type ClientLogBatch struct {
	Source  string           `json:"source"`
	Entries []ClientLogEntry `json:"entries"`
}

const (
	maxLogBatch   = 200
	maxLogContext = 32
)

var errEmptyLogMessage = errors.New("empty message")

// StreamLogs writes front end diagnostics into the studio log under the
// "ui" component.
func (h *Handlers) StreamLogs(c *gin.Context) {
	var batch ClientLogBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log request format"})
		return
	}
	if batch.Source != "ui" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid log source"})
		return
	}
	switch n := len(batch.Entries); {
	case n == 0:
		c.JSON(http.StatusBadRequest, gin.H{"error": "No log entries provided"})
		return
	case n > maxLogBatch:
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Too many log entries"})
		return
	}

	logger := h.logger.Component("ui")
	accepted := 0
	for _, e := range batch.Entries {
		if err := writeClientLog(logger.Logger, e); err != nil {
			h.logger.Debug("Client log entry skipped", zap.String("ui_log_id", e.ID), zap.Error(err))
			continue
		}
		accepted++
	}

	c.JSON(http.StatusOK, gin.H{
		"entries_received": len(batch.Entries),
		"entries_accepted": accepted,
	})
}

func writeClientLog(logger *zap.Logger, e ClientLogEntry) error {
	msg := utils.StripMarkup(e.Message)
	if msg == "" {
		return errEmptyLogMessage
	}

	level, err := zapcore.ParseLevel(e.Level)
	if err != nil || level > zapcore.ErrorLevel {
		// Clients never get to panic or fatal the studio.
		level = zapcore.InfoLevel
	}

	fields := make([]zap.Field, 0, 2+min(len(e.Context), maxLogContext))
	fields = append(fields, zap.String("ui_log_id", e.ID), zap.String("ui_timestamp", e.Timestamp))
	n := 0
	for k, v := range e.Context {
		if n == maxLogContext {
			break
		}
		fields = append(fields, zap.Any("ui."+k, v))
		n++
	}

	if ce := logger.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
	return nil
}
