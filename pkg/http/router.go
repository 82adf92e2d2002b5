package xhttp

import (
	"github.com/fasthttp/router"
)

type Router = router.Router
type Group = router.Group

// NewRouter returns a new Router
func NewRouter() *Router {
	return router.New()
}

// CreateDefaultRouter returns a new router with the default handlers
// NotFoundHandler
// MethodNotAllowed
func CreateDefaultRouter() *Router {
	r := NewRouter()
	r.RedirectFixedPath = true
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = MethodNotAllowedHandler
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	return r
}

// NotFoundHandler is the default 404 handler
func NotFoundHandler(ctx *RequestCtx) {
	WriteStatusJSON(ctx, StatusNotFound)
}

func MethodNotAllowedHandler(ctx *RequestCtx) {
	WriteStatusJSON(ctx, fasthttpStatusMethodNotAllowed)
}

// WriteStatusJSON writes the bare failure envelope for a status code.
func WriteStatusJSON(ctx *RequestCtx, status int) {
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyString(`{"success":false,"message":"` + StatusText(status) + `"}`)
}
