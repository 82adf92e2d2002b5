package xhttp

import (
	"reflect"
	"runtime"
	"slices"
	"time"

	"github.com/nimasrn/lead-crm/pkg/logger"
	"github.com/valyala/fasthttp"
)

var DefaultServerOption = ServerOption{
	Handler:               NotFoundHandler,
	IdleTimeout:           time.Second * 10,
	MaxIdleWorkerDuration: time.Minute * 1,
	TCPKeepalivePeriod:    time.Minute * 120, // linux default
	MaxRequestBodySize:    1 * 1024 * 1024,
	ReadBufferSize:        1024 * 4, // also, max header size
	WriteBufferSize:       1024 * 4,
	ReadTimeout:           time.Millisecond * 2500,
	WriteTimeout:          time.Millisecond * 2500,
	Concurrency:           30_000,
	MaxConnsPerIP:         10_000,
	ErrorHandler: func(ctx *RequestCtx, err error) {
		logger.Warn("[xhttp] request error", "error", err)
		WriteStatusJSON(ctx, StatusBadRequest)
	},
	TCPKeepalive:                 true,
	DisablePreParseMultipartForm: true,
	NoDefaultServerHeader:        true,
	NoDefaultContentType:         true,
	CloseOnShutdown:              true,
}

type Server = fasthttp.Server

type ServerOption struct {
	Handler RequestHandler

	// open idle connections are capped so the process does not run out of file descriptors
	IdleTimeout           time.Duration
	MaxIdleWorkerDuration time.Duration
	TCPKeepalivePeriod    time.Duration
	MaxRequestBodySize    int
	ReadBufferSize        int
	WriteBufferSize       int
	ReadTimeout           time.Duration
	WriteTimeout          time.Duration
	Concurrency           int
	MaxConnsPerIP         int

	ErrorHandler                 func(ctx *RequestCtx, err error)
	Name                         string
	TCPKeepalive                 bool
	DisablePreParseMultipartForm bool
	NoDefaultServerHeader        bool
	NoDefaultContentType         bool
	CloseOnShutdown              bool
}

type Engine struct {
	*Router
	*Server
	middle []MiddlewareFunc
}

func newServer(options ServerOption) *fasthttp.Server {
	return &fasthttp.Server{
		Handler:                      options.Handler,
		ErrorHandler:                 options.ErrorHandler,
		Name:                         options.Name,
		Concurrency:                  options.Concurrency,
		ReadBufferSize:               options.ReadBufferSize,
		WriteBufferSize:              options.WriteBufferSize,
		ReadTimeout:                  options.ReadTimeout,
		WriteTimeout:                 options.WriteTimeout,
		IdleTimeout:                  options.IdleTimeout,
		MaxConnsPerIP:                options.MaxConnsPerIP,
		MaxIdleWorkerDuration:        options.MaxIdleWorkerDuration,
		TCPKeepalivePeriod:           options.TCPKeepalivePeriod,
		MaxRequestBodySize:           options.MaxRequestBodySize,
		TCPKeepalive:                 options.TCPKeepalive,
		DisablePreParseMultipartForm: options.DisablePreParseMultipartForm,
		NoDefaultServerHeader:        options.NoDefaultServerHeader,
		NoDefaultContentType:         options.NoDefaultContentType,
		CloseOnShutdown:              options.CloseOnShutdown,
		Logger:                       logger.GetLogger(),
	}
}

func NewServer(options ServerOption) *Engine {
	return &Engine{
		Server: newServer(options),
		Router: CreateDefaultRouter(),
	}
}

func CreateServer() *Engine {
	return NewServer(DefaultServerOption)
}

func (e *Engine) ListenAndServe(addr string) error {
	e.DoRouting()
	logger.Info("[xhttp] server is listening", "addr", addr)
	return e.Server.ListenAndServe(addr)
}

// DoRouting wires the router behind the registered middlewares and returns
// the resulting handler. The first middleware passed to Use is the outermost.
func (e *Engine) DoRouting() RequestHandler {
	for method, routes := range e.Router.List() {
		for _, r := range routes {
			logger.Debug("[xhttp] route registered", "method", method, "path", r)
		}
	}
	h := e.Router.Handler
	middle := slices.Clone(e.middle)
	slices.Reverse(middle)
	for i, m := range middle {
		h = m(h)
		logger.Debug("[xhttp] middleware registered", "order", len(middle)-i, "name", runtime.FuncForPC(reflect.ValueOf(m).Pointer()).Name())
	}
	e.Server.Handler = h
	return h
}

// Use adds middleware to the chain which is run for every request.
func (e *Engine) Use(middleware MiddlewareFunc) {
	e.middle = append(e.middle, middleware)
}

// Shutdown gracefully shuts down the server without interrupting any active connections.
func (e *Engine) Shutdown() {
	logger.Info("[xhttp] server is shutting down")
	if err := e.Server.Shutdown(); err != nil {
		logger.Error("[xhttp] error while shutting down", "error", err)
	}
}
