package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"postroll/internal/logging"
	"postroll/internal/pipeline"
	"postroll/internal/progress"
	"postroll/internal/records"
	"postroll/internal/services"
)

// ErrNotAccepting is returned by a Dispatcher that is shutting down.
var ErrNotAccepting = errors.New("not accepting jobs")

const maxRequestBody = 64 << 10

// Dispatcher starts a pipeline run in the background.
type Dispatcher interface {
	Submit(req pipeline.Request) error
}

// HealthFunc reports runtime readiness.
type HealthFunc func(ctx context.Context) HealthResponse

// Options wires the router to its collaborators. Progress, Health, and URL
// may be nil.
type Options struct {
	Records  records.Store
	Progress progress.Tracker
	Dispatch Dispatcher
	Health   HealthFunc
	URL      URLFunc
	Logger   *slog.Logger
}

type server struct {
	opts   Options
	logger *slog.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) http.Handler {
	if opts.Progress == nil {
		opts.Progress = progress.Nop{}
	}
	s := &server{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "api-server")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLogger, middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/jobs", s.handleCreateJob)
		r.Route("/videos", func(r chi.Router) {
			r.Get("/", s.handleListVideos)
			r.Get("/{id}", s.handleVideo)
			r.Get("/{id}/progress", s.handleProgress)
		})
	})
	return r
}

func (s *server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	video, err := s.opts.Records.Get(r.Context(), req.VideoID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if !records.CanTransition(video.Status, records.StatusProcessing) {
		s.writeError(w, http.StatusConflict, "video is "+string(video.Status))
		return
	}

	if err := s.opts.Dispatch.Submit(req); err != nil {
		if errors.Is(err, ErrNotAccepting) {
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log(r.Context()).Info("job accepted",
		logging.Int64(logging.FieldVideoID, req.VideoID),
		logging.String("source_key", req.SourceKey),
		logging.String(logging.FieldEventType, "job_accepted"),
	)
	s.writeJSON(w, http.StatusAccepted, JobAccepted{VideoID: req.VideoID, Status: "accepted"})
}

func (s *server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	var opts records.ListOptions
	for _, value := range r.URL.Query()["status"] {
		trimmed := records.Status(strings.TrimSpace(value))
		if trimmed == "" {
			continue
		}
		if !records.ValidStatus(trimmed) {
			s.writeError(w, http.StatusBadRequest, "invalid status "+string(trimmed))
			return
		}
		opts.Statuses = append(opts.Statuses, trimmed)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = limit
	}

	videos, err := s.opts.Records.List(r.Context(), opts)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, VideoListResponse{Videos: FromVideos(videos, s.opts.URL)})
}

func (s *server) handleVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := s.videoID(w, r)
	if !ok {
		return
	}
	video, err := s.opts.Records.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, VideoResponse{Video: FromVideo(video, s.opts.URL)})
}

func (s *server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := s.videoID(w, r)
	if !ok {
		return
	}
	snap, err := s.opts.Progress.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, progress.ErrNotTracked) {
			s.writeError(w, http.StatusNotFound, "no progress recorded")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, ProgressResponse{Progress: snap})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health == nil {
		s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}
	health := s.opts.Health(r.Context())
	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

func (s *server) videoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid video id")
		return 0, false
	}
	return id, true
}

func (s *server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, records.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "video not found")
		return
	}
	s.logger.Error("record store request failed", logging.Error(err))
	s.writeError(w, http.StatusInternalServerError, "record store unavailable")
}

// requestLogger logs each request with the chi request id attached to the
// context for downstream loggers.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := services.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		s.log(ctx).Debug("http request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Int("bytes", ww.BytesWritten()),
			logging.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *server) log(ctx context.Context) *slog.Logger {
	return logging.WithContext(ctx, s.logger)
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

// validationMessage strips the marker prefix so clients see only the problem list.
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
