package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/landgeo/internal/export"
	"github.com/sells-group/landgeo/internal/land"
	"github.com/sells-group/landgeo/internal/store"
)

const maxBodyBytes = 4 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the land geometry HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		a := &api{
			store:       st,
			builder:     newBuilder(),
			limiter:     rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst),
			concurrency: cfg.View.Concurrency,
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(a, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// api holds the dependencies of the HTTP handlers.
type api struct {
	store       store.Store
	builder     *land.Builder
	limiter     *rate.Limiter
	concurrency int
}

func newRouter(a *api, origins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/lands", func(lr chi.Router) {
		lr.Use(a.rateLimit)
		lr.Post("/view", a.handleView)
		lr.Post("/normalize", a.handleNormalize)
		lr.Post("/", a.handleCreate)
		lr.Get("/", a.handleList)
		lr.Get("/{id}", a.handleGet)
		lr.Get("/{id}/view", a.handleGetView)
		lr.Get("/{id}/geojson", a.handleGetGeoJSON)
	})

	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", w.Header().Get("X-Request-ID")),
		)
	})
}

func (a *api) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter != nil && !a.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readBody(w http.ResponseWriter, r *http.Request) (inputDoc, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "read request body")
		}
		return inputDoc{}, false
	}
	return inputDoc{data: data}, true
}

func (a *api) handleView(w http.ResponseWriter, r *http.Request) {
	doc, ok := readBody(w, r)
	if !ok {
		return
	}
	recs, list, err := doc.records()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid land record")
		return
	}
	views, err := land.BuildViews(r.Context(), recs, a.concurrency)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !list {
		writeJSON(w, http.StatusOK, views[0])
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// normalizeResponse carries the normalized submission and every validation
// message. Errors is empty when the submission is valid.
type normalizeResponse struct {
	Submission land.LandSubmission `json:"submission"`
	Errors     []string            `json:"errors"`
}

func (a *api) handleNormalize(w http.ResponseWriter, r *http.Request) {
	doc, ok := readBody(w, r)
	if !ok {
		return
	}
	partial, err := doc.submission()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sub := a.builder.Normalize(partial)
	writeJSON(w, http.StatusOK, normalizeResponse{Submission: sub, Errors: land.Validate(sub)})
}

func (a *api) handleCreate(w http.ResponseWriter, r *http.Request) {
	doc, ok := readBody(w, r)
	if !ok {
		return
	}
	partial, err := doc.submission()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	sub, err := a.builder.Prepare(partial)
	if err != nil {
		var ve land.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string][]string{"errors": ve})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := a.store.CreateLand(r.Context(), sub)
	if err != nil {
		zap.L().Error("create land", zap.String("land_code", sub.LandCode), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "store land failed")
		return
	}
	zap.L().Info("land created", zap.Int64("land_id", id), zap.String("land_code", sub.LandCode))
	writeJSON(w, http.StatusCreated, map[string]int64{"land_id": id})
}

func (a *api) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter store.LandFilter

	if s := q.Get("farmer_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "farmer_id must be an integer")
			return
		}
		filter.FarmerID = &id
	}
	if s := q.Get("bbox"); s != "" {
		b, err := parseBBox(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.BBox = b
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		s := q.Get(key)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, key+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	lands, err := a.store.ListLands(r.Context(), filter)
	if err != nil {
		zap.L().Error("list lands", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list lands failed")
		return
	}
	if lands == nil {
		lands = []store.LandSummary{}
	}
	writeJSON(w, http.StatusOK, lands)
}

// landRecord loads the land named by the {id} URL parameter, writing the
// error response itself when it returns nil.
func (a *api) landRecord(w http.ResponseWriter, r *http.Request) *land.LandRecord {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid land id")
		return nil
	}
	rec, err := a.store.GetLand(r.Context(), id)
	if err != nil {
		zap.L().Error("get land", zap.Int64("land_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "load land failed")
		return nil
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "land not found")
		return nil
	}
	return rec
}

func (a *api) handleGet(w http.ResponseWriter, r *http.Request) {
	if rec := a.landRecord(w, r); rec != nil {
		writeJSON(w, http.StatusOK, rec)
	}
}

func (a *api) handleGetView(w http.ResponseWriter, r *http.Request) {
	if rec := a.landRecord(w, r); rec != nil {
		writeJSON(w, http.StatusOK, land.BuildView(*rec))
	}
}

func (a *api) handleGetGeoJSON(w http.ResponseWriter, r *http.Request) {
	rec := a.landRecord(w, r)
	if rec == nil {
		return
	}
	data, err := export.GeoJSON(land.BuildView(*rec))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
