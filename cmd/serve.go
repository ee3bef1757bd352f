package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/floodsense/internal/model"
	"github.com/sells-group/floodsense/internal/present"
	"github.com/sells-group/floodsense/internal/workflow"
)

var (
	servePort    int
	serveOffline bool
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the presentation API for a map front end",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		} else {
			cfg.Server.Port = port
		}

		env, err := initApp(ctx, "serve", serveOffline)
		if err != nil {
			return err
		}
		defer env.Close()

		w := env.NewWorkflow(ctx)
		defer w.Close()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(w, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
		return runServer(ctx, srv)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveOffline, "offline", false, "use the canned offline prediction")
	rootCmd.AddCommand(serveCmd)
}

// runServer serves until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
	})

	return g.Wait()
}

// newRouter wires the presentation API for one workflow.
func newRouter(w *workflow.Workflow, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", func(rw http.ResponseWriter, _ *http.Request) {
			writeJSON(rw, http.StatusOK, present.Build(w.Snapshot()))
		})
		r.Get("/state.geojson", func(rw http.ResponseWriter, _ *http.Request) {
			rw.Header().Set("Content-Type", "application/geo+json")
			rw.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(rw).Encode(present.PointFeature(w.Snapshot()))
		})
		r.Get("/legend", func(rw http.ResponseWriter, _ *http.Request) {
			writeJSON(rw, http.StatusOK, present.Legend())
		})

		r.Post("/selection", func(rw http.ResponseWriter, req *http.Request) {
			p, err := decodeSelection(req)
			if err != nil {
				writeError(rw, http.StatusBadRequest, err.Error())
				return
			}
			w.SelectPoint(p)
			writeJSON(rw, http.StatusOK, present.Build(w.Snapshot()))
		})
		r.Delete("/selection", func(rw http.ResponseWriter, _ *http.Request) {
			w.Clear()
			writeJSON(rw, http.StatusOK, present.Build(w.Snapshot()))
		})

		r.Post("/analysis", func(rw http.ResponseWriter, _ *http.Request) {
			if !w.RequestAnalysis() {
				writeError(rw, http.StatusConflict, "analysis not available in the current state")
				return
			}
			writeJSON(rw, http.StatusAccepted, present.Build(w.Snapshot()))
		})

		r.Get("/events", eventsHandler(w))
	})

	return r
}

type selectionRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func decodeSelection(req *http.Request) (model.Point, error) {
	var body selectionRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return model.Point{}, eris.New("invalid request body")
	}
	if body.Lat == nil || body.Lng == nil {
		return model.Point{}, eris.New("lat and lng are required")
	}
	return model.NewPoint(*body.Lat, *body.Lng), nil
}

// eventsHandler streams "state" events carrying views and "notification"
// events carrying failure notices as server-sent events. The current view
// is sent first.
func eventsHandler(w *workflow.Workflow) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		flusher, ok := rw.(http.Flusher)
		if !ok {
			writeError(rw, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		states, cancelStates := w.Subscribe(0)
		defer cancelStates()
		notes, cancelNotes := w.Notifications(0)
		defer cancelNotes()

		id := uuid.NewString()
		log := zap.L().With(zap.String("subscriber", id))
		log.Debug("event stream opened")
		defer log.Debug("event stream closed")

		rw.Header().Set("Content-Type", "text/event-stream")
		rw.Header().Set("Cache-Control", "no-cache")
		rw.Header().Set("Connection", "keep-alive")
		rw.WriteHeader(http.StatusOK)

		if err := writeEvent(rw, "state", present.Build(w.Snapshot())); err != nil {
			return
		}
		flusher.Flush()

		for {
			var err error
			select {
			case <-req.Context().Done():
				return
			case snap, ok := <-states:
				if !ok {
					return
				}
				err = writeEvent(rw, "state", present.Build(snap))
			case n, ok := <-notes:
				if !ok {
					return
				}
				err = writeEvent(rw, "notification", n)
			}
			if err != nil {
				log.Debug("event stream write failed", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(rw http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "encode event")
	}
	_, err = fmt.Fprintf(rw, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(rw, req.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, req)
		zap.L().Debug("http request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(req.Context())),
		)
	})
}
