// Package server is a local reference implementation of the plan
// service: GET /health and POST /plan, answering with template plans.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/studyplan/studyplan/internal/logger"
)

const (
	DefaultVersion     = "1.0.0"
	DefaultRatePerMin  = 120
	shutdownGrace      = 5 * time.Second
	readHeaderTimeout  = 10 * time.Second
	serviceNameForSpan = "studyplan-server"
)

type Options struct {
	Generator          Generator
	Version            string
	RateLimitPerMinute int
	Logger             *logger.Logger
}

type Server struct {
	engine *gin.Engine
	log    *logger.Logger
}

var registerTagNames sync.Once

func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	version := opts.Version
	if version == "" {
		version = DefaultVersion
	}
	perMin := opts.RateLimitPerMinute
	if perMin <= 0 {
		perMin = DefaultRatePerMin
	}

	registerTagNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonFieldName)
		}
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceNameForSpan))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "Accept", headerRequestID, "traceparent", "tracestate"},
		ExposeHeaders:   []string{headerRequestID},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(RateLimit(perMin, log))

	h := NewHandler(opts.Generator, version, log)
	r.GET("/health", h.Health)
	r.POST("/plan", h.CreatePlan)

	return &Server{engine: r, log: log}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve runs the server on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("plan service listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.log.Info("plan service shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
