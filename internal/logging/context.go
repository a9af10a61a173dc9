package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"
)

// GenerateTraceID generates a new trace ID.
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext creates a new context with the logger.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithTraceContext adds a trace ID to the context and returns a logger with it.
func WithTraceContext(ctx context.Context) (context.Context, *Logger) {
	traceID := GenerateTraceID()
	l := Default().WithTraceID(traceID)
	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, loggerKey, l)
	return newCtx, l
}

// RunContext creates a logger context for one investor's backtest run.
func RunContext(runID string, investorID int64, startUTC, endUTC time.Time) *Logger {
	return Default().WithFields(map[string]interface{}{
		"run_id":      runID,
		"investor_id": investorID,
		"start_utc":   startUTC.Format(time.RFC3339),
		"end_utc":     endUTC.Format(time.RFC3339),
	}).WithComponent("simulator")
}

// OperationContext creates a logger context for operation lifecycle events.
func OperationContext(operationID int64, ticker, side string, entryPrice, quantity float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation_id": operationID,
		"ticker":       ticker,
		"side":         side,
		"entry_price":  entryPrice,
		"quantity":     quantity,
	}).WithComponent("operation")
}

// ClosureContext creates a logger context for a closure-rule cascade evaluation.
func ClosureContext(operationID int64, rule string, price float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation_id": operationID,
		"rule":         rule,
		"price":        price,
	}).WithComponent("closure")
}

// DCAContext creates a logger context for a DCA merge.
func DCAContext(operationID int64, newEntryPrice, qtyExtra float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation_id":    operationID,
		"new_entry_price": newEntryPrice,
		"qty_extra":       qtyExtra,
	}).WithComponent("dca")
}

// CapitalContext creates a logger context for capital accounting.
func CapitalContext(investorID int64, capitalBefore, capitalAfter float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"investor_id":    investorID,
		"capital_before": capitalBefore,
		"capital_after":  capitalAfter,
	}).WithComponent("capital")
}

// APIContext creates a logger context for control-plane API operations.
func APIContext(method, path string, statusCode int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
	}).WithComponent("api")
}

// WebSocketContext creates a logger context for the event-stream websocket.
func WebSocketContext(runID string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"run_id": runID,
	}).WithComponent("websocket")
}

// HTTPMiddleware is a middleware that adds logging to HTTP requests.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = GenerateTraceID()
		}

		l := Default().WithTraceID(traceID).WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		}).WithComponent("http")

		ctx := NewContext(r.Context(), l)
		r = r.WithContext(ctx)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		l.WithDuration(duration).WithField("status_code", wrapped.statusCode).Info("Request completed")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// DatabaseContext creates a logger context for database operations.
func DatabaseContext(operation, table string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation": operation,
		"table":     table,
	}).WithComponent("database")
}
