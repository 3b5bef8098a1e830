package server

import (
	"context"
	_ "embed"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ironsheep/rrn-masker/internal/pipeline"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "rrn-masker"

//go:embed index.html
var indexHTML []byte

// Masker runs the masking pipeline on one image. *pipeline.Pipeline
// implements it.
type Masker interface {
	Process(ctx context.Context, img image.Image) (*pipeline.Result, error)
}

// InfoFunc reports the state of the OCR backend for /health. The value is
// encoded as JSON under the "ocr" key.
type InfoFunc func() any

// Config holds server configuration.
type Config struct {
	// MaxUploadMB limits the request body of POST /mask.
	MaxUploadMB int64

	// MaxPixels limits the decoded size of an upload (width times height).
	MaxPixels int64

	// TimeoutSec bounds one masking call. Expiry is answered with 504.
	TimeoutSec int

	Version string
}

// Server serves the upload page, the masking endpoint, health and metrics.
type Server struct {
	masker      Masker
	info        InfoFunc
	maxUploadMB int64
	maxPixels   int64
	timeout     time.Duration
	version     string
	logger      *slog.Logger
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
	OCR     any    `json:"ocr,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// New creates a server around m. info may be nil.
func New(cfg Config, m Masker, info InfoFunc) *Server {
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 20
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 60
	}
	return &Server{
		masker:      m,
		info:        info,
		maxUploadMB: cfg.MaxUploadMB,
		maxPixels:   cfg.MaxPixels,
		timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
		version:     cfg.Version,
		logger:      slog.Default().With("component", "server"),
	}
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.instrument("/", s.indexHandler))
	mux.HandleFunc("POST /mask", s.instrument("/mask", s.maskHandler))
	mux.HandleFunc("GET /health", s.instrument("/health", s.healthHandler))
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) maxUploadBytes() int64 {
	return s.maxUploadMB * 1024 * 1024
}
