package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/raysh454/trygglink/internal/app"
	"github.com/raysh454/trygglink/internal/logging"
	"github.com/raysh454/trygglink/internal/ratelimit"
	"github.com/raysh454/trygglink/internal/store"
	"github.com/raysh454/trygglink/internal/utils"

	_ "github.com/raysh454/trygglink/internal/server/docs" // swagger spec
)

// Server is the HTTP + WebSocket API surface for Trygglink.
type Server struct {
	cfg      Config
	scans    *app.ScanService
	limiter  *ratelimit.Limiter
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewServer wires the API routes to the scan service. A nil limiter
// disables rate limiting.
func NewServer(cfg Config, scans *app.ScanService, limiter *ratelimit.Limiter) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("server")
	}

	s := &Server{
		cfg:     cfg,
		scans:   scans,
		limiter: limiter,
		router:  chi.NewRouter(),
		logger:  logger.With(logging.Field{Key: "component", Value: "server"}),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.routes()
	return s
}

// checkOrigin admits requests without an Origin header and, when
// AllowedOrigins is set, only the listed origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	s.logger.Warn("websocket origin rejected", logging.Field{Key: "origin", Value: origin})
	return false
}

func (s *Server) routes() {
	r := s.router

	if s.cfg.TrustForwardedHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/api/check-url", s.optionsHandler("POST"))
	r.Options("/api/scan-file", s.optionsHandler("POST"))
	r.Options("/api/scans/{id}", s.optionsHandler("GET"))
	r.Options("/api/scans/{id}/deep-scan", s.optionsHandler("GET"))
	r.Options("/api/admin/stats", s.optionsHandler("GET"))
	r.Options("/api/admin/recent-scans", s.optionsHandler("GET"))

	r.Get("/healthz", s.handleHealth)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimitMiddleware)

		// Scans
		r.Post("/api/check-url", s.handleCheckURL)
		r.Post("/api/scan-file", s.handleScanFile)
		r.Get("/api/scans/{id}", s.handleGetScan)
		r.Get("/api/scans/{id}/deep-scan", s.handleGetDeepScan)

		// Admin
		r.Get("/api/admin/stats", s.handleStats)
		r.Get("/api/admin/recent-scans", s.handleRecentScans)
	})

	// WebSocket feed of completed scans
	r.Get("/ws/scans", s.handleScanFeedWS)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// rateLimitMiddleware admits at most the limiter's quota per client IP in
// any sliding window and records every admitted request as API usage.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := utils.ClientIP(r)

		if s.limiter != nil {
			allowed, retryAfter := s.limiter.Allow(ip)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.limiter.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(s.limiter.Remaining(ip)))
			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(1, secs)))
				s.logger.Warn("rate limit exceeded", logging.Field{Key: "ip", Value: ip}, logging.Field{Key: "path", Value: r.URL.Path})
				writeError(w, http.StatusTooManyRequests,
					fmt.Sprintf("Rate limit exceeded. Maximum %d requests per minute.", s.limiter.Limit()))
				return
			}
		}

		if err := s.scans.RecordUsage(r.Context(), r.URL.Path, ip, r.UserAgent()); err != nil {
			s.logger.Warn("recording api usage", logging.Err(err))
		}
		next.ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && r.Method == http.MethodPost && isJSON(r) && r.ContentLength >= 0 && r.ContentLength <= maxLoggedBody {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

const maxLoggedBody = 4 << 10

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- HTTP handlers ---

// handleHealth godoc
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Scans

// handleCheckURL godoc
// @Summary Check a URL
// @Tags scans
// @Accept json
// @Produce json
// @Param request body CheckURLRequest true "URL to scan"
// @Success 200 {object} model.ScanResult
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/check-url [post]
func (s *Server) handleCheckURL(w http.ResponseWriter, r *http.Request) {
	var body CheckURLRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding check url body", logging.Err(err))
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(body.URL) == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}

	res, err := s.scans.ScanURL(r.Context(), body.URL)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "Invalid URL format")
			return
		}
		s.logger.Error("checking url", logging.Field{Key: "url", Value: body.URL}, logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to check URL safety")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleScanFile godoc
// @Summary Scan a file
// @Description Accepts a multipart form with field "file" or a JSON body with a base64 fileBuffer.
// @Tags scans
// @Accept json,mpfd
// @Produce json
// @Param request body ScanFileRequest false "Base64 encoded file"
// @Success 200 {object} model.ScanResult
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /api/scan-file [post]
func (s *Server) handleScanFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	data, name, err := s.readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		s.logger.Warn("reading upload", logging.Err(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.scans.ScanFile(r.Context(), data, name)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "File data is required")
			return
		}
		s.logger.Error("scanning file", logging.Field{Key: "file_name", Value: name}, logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to scan file")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

var errNoFile = errors.New("file data is required")

func (s *Server) readUpload(r *http.Request) ([]byte, string, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			return nil, "", err
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return nil, "", errNoFile
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", err
		}
		return data, hdr.Filename, nil
	}

	var body ScanFileRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", err
		}
		return nil, "", errors.New("invalid JSON")
	}
	if body.FileBuffer == "" {
		return nil, "", errNoFile
	}
	data, err := base64.StdEncoding.DecodeString(body.FileBuffer)
	if err != nil {
		return nil, "", errors.New("fileBuffer must be base64")
	}
	return data, body.FileName, nil
}

// handleGetScan godoc
// @Summary Get a stored scan
// @Tags scans
// @Produce json
// @Param id path string true "Scan ID"
// @Success 200 {object} model.ScanResult
// @Failure 404 {object} ErrorResponse
// @Router /api/scans/{id} [get]
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	res, err := s.scans.Scan(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, "getting scan", "scan not found", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleGetDeepScan godoc
// @Summary Get the sandbox scan attached to a result
// @Tags scans
// @Produce json
// @Param id path string true "Scan ID"
// @Success 200 {object} model.DeepScan
// @Failure 404 {object} ErrorResponse
// @Router /api/scans/{id}/deep-scan [get]
func (s *Server) handleGetDeepScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ds, err := s.scans.DeepScan(r.Context(), id)
	if err != nil {
		s.writeLookupError(w, "getting deep scan", "deep scan not found", err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) writeLookupError(w http.ResponseWriter, op, notFound string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	s.logger.Warn(op, logging.Err(err))
	writeError(w, http.StatusInternalServerError, err.Error())
}

// Admin

// handleStats godoc
// @Summary Usage statistics
// @Tags admin
// @Produce json
// @Success 200 {object} model.UsageStats
// @Router /api/admin/stats [get]
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.scans.Stats(r.Context())
	if err != nil {
		s.logger.Warn("getting stats", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch statistics")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleRecentScans godoc
// @Summary Most recent scans
// @Tags admin
// @Produce json
// @Param limit query int false "Maximum number of scans" default(100)
// @Success 200 {array} model.ScanResult
// @Router /api/admin/recent-scans [get]
func (s *Server) handleRecentScans(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	scans, err := s.scans.RecentScans(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing recent scans", logging.Err(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch recent scans")
		return
	}
	s.logger.Info("listed recent scans", logging.Field{Key: "count", Value: len(scans)})
	writeJSON(w, http.StatusOK, scans)
}

// WebSockets

const wsWriteTimeout = 10 * time.Second

func (s *Server) handleScanFeedWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Err(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := s.scans.Feed().Subscribe()
	defer unsubscribe()

	// The read loop only exists to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Info("feed subscriber connected", logging.Field{Key: "remote", Value: utils.ClientIP(r)})
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-gone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
