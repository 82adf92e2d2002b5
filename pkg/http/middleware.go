package xhttp

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/lead-crm/pkg/logger"
	"github.com/valyala/fasthttp"
)

const (
	slowThreshold   = 500 * time.Millisecond
	RequestIDHeader = "X-Request-Id"
	RequestIDKey    = "request_id"
)

var skipPaths = []string{"/health", "/metrics"}

type MiddlewareFunc func(next RequestHandler) RequestHandler
type RequestCtx = fasthttp.RequestCtx
type RequestHandler = fasthttp.RequestHandler

func TimeoutMiddleware(timeout time.Duration) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return fasthttp.TimeoutWithCodeHandler(next, timeout, StatusText(StatusRequestTimeout), StatusRequestTimeout)
	}
}

func CompressMiddleware(level int) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return fasthttp.CompressHandlerBrotliLevel(next, level, level)
	}
}

func RecoverMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("[xhttp] panic recovered", "error", err, "path", string(ctx.Path()), "request_id", RequestID(ctx))
				WriteStatusJSON(ctx, StatusInternalServerError)
			}
		}()
		next(ctx)
	}
}

// CORSMiddleware answers preflight requests itself and decorates every other response.
func CORSMiddleware(allowOrigin string) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return func(ctx *RequestCtx) {
			ctx.Response.Header.Set("Access-Control-Allow-Origin", allowOrigin)
			ctx.Response.Header.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")
			ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			ctx.Response.Header.Set("Access-Control-Expose-Headers", RequestIDHeader)
			if ctx.IsOptions() {
				ctx.SetStatusCode(StatusNoContent)
				return
			}
			next(ctx)
		}
	}
}

// MetricsMiddleware reports method, status and latency of every request to observe.
func MetricsMiddleware(observe func(method string, status int, seconds float64)) MiddlewareFunc {
	return func(next RequestHandler) RequestHandler {
		return func(ctx *RequestCtx) {
			start := time.Now()
			next(ctx)
			if shouldSkip(string(ctx.Path())) {
				return
			}
			observe(string(ctx.Method()), ctx.Response.StatusCode(), time.Since(start).Seconds())
		}
	}
}

// RequestLoggerMiddleware assigns a request id, echoes it back and logs the request
// once the handler returns.
func RequestLoggerMiddleware(next RequestHandler) RequestHandler {
	return func(ctx *RequestCtx) {
		rid := string(ctx.Request.Header.Peek(RequestIDHeader))
		if rid == "" {
			rid = uuid.NewString()
		}
		ctx.SetUserValue(RequestIDKey, rid)
		ctx.Response.Header.Set(RequestIDHeader, rid)

		path := string(ctx.Path())
		if shouldSkip(path) {
			next(ctx)
			return
		}

		start := time.Now()
		next(ctx)

		latency := time.Since(start)
		status := ctx.Response.StatusCode()
		fields := []any{
			"status", status,
			"method", string(ctx.Method()),
			"path", path,
			"latency", latency.String(),
			"bytes_in", len(ctx.PostBody()),
			"bytes_out", len(ctx.Response.Body()),
			"ip", ctx.RemoteIP().String(),
			"ua", string(ctx.Request.Header.UserAgent()),
			"request_id", rid,
		}

		switch {
		case status >= 500:
			logger.Error("http_request", fields...)
		case status >= 400 || latency > slowThreshold:
			logger.Warn("http_request", fields...)
		default:
			logger.Info("http_request", fields...)
		}
	}
}

// RequestID returns the id assigned by RequestLoggerMiddleware, or the inbound header.
func RequestID(ctx *RequestCtx) string {
	if v, ok := ctx.UserValue(RequestIDKey).(string); ok {
		return v
	}
	return string(ctx.Request.Header.Peek(RequestIDHeader))
}

func shouldSkip(p string) bool {
	for _, sp := range skipPaths {
		if strings.HasSuffix(p, sp) {
			return true
		}
	}
	return false
}
