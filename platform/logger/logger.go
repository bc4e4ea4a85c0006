// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// ContractorIDKey is the context key for the contractor being processed
	ContractorIDKey contextKey = "contractor_id"
	// EventIDKey is the context key for the event being processed
	EventIDKey contextKey = "event_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, contractor_id, and event_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if contractorID, ok := ctx.Value(ContractorIDKey).(string); ok && contractorID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("contractor_id", contractorID)),
		}
	}

	if eventID, ok := ctx.Value(EventIDKey).(string); ok && eventID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("event_id", eventID)),
		}
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// MessageDispatched logs the outcome of routing one inbound message.
func (l *Logger) MessageDispatched(contractorID, handler string, durationMs float64, tags int) {
	l.Info("message_dispatched",
		slog.String("contractor_id", contractorID),
		slog.String("handler", handler),
		slog.Float64("duration_ms", durationMs),
		slog.Int("tags_applied", tags),
	)
}

// HandlerError logs an error recovered inside a message handler.
// The dispatcher keeps draining the lane after this.
func (l *Logger) HandlerError(contractorID, handler string, err error) {
	l.Error("handler_error",
		slog.String("contractor_id", contractorID),
		slog.String("handler", handler),
		slog.String("error", err.Error()),
	)
}

// DeliveryFailure logs a failed outbound send after retries were exhausted.
func (l *Logger) DeliveryFailure(messageID, channel string, attempts int, err error) {
	l.Error("delivery_failure",
		slog.String("scheduled_message_id", messageID),
		slog.String("channel", channel),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

// LaneBackpressure logs a task that waited too long before starting.
// This is a capacity signal, not a failure.
func (l *Logger) LaneBackpressure(laneKey string, waited time.Duration, depth int) {
	l.Warn("lane_backpressure",
		slog.String("lane", laneKey),
		slog.Float64("waited_ms", float64(waited.Milliseconds())),
		slog.Int("queue_depth", depth),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
