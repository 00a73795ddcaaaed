// Package server exposes the dashboard over HTTP: a JSON API consumed by
// the embedded single-page frontend, plus the export downloads. Every
// request recomputes filter and aggregation from the immutable snapshot;
// there is no cross-request state beyond the export log.
package server

import (
	"embed"
	"io/fs"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dadoslab/rfbdash/internal/aggregate"
	"github.com/dadoslab/rfbdash/internal/config"
	"github.com/dadoslab/rfbdash/internal/dataset"
	"github.com/dadoslab/rfbdash/internal/geodata"
	"github.com/dadoslab/rfbdash/internal/store"
)

//go:embed static
var staticFS embed.FS

// Server holds the loaded snapshot and serves the dashboard API.
type Server struct {
	snap       *dataset.Snapshot
	boundaries *geodata.BoundarySet
	exports    store.Store
	cfg        config.Config

	limiter *rate.Limiter

	// Precomputed options for the sidebar; the snapshot never changes.
	municipalities []string
	yearMin        int
	yearMax        int
}

// New builds a Server over an already-loaded snapshot and boundary set.
// exports may be nil; export downloads then go unlogged.
func New(snap *dataset.Snapshot, boundaries *geodata.BoundarySet, exports store.Store, cfg config.Config) *Server {
	perMinute := cfg.Server.ExportsPerMinute
	if perMinute <= 0 {
		perMinute = 6
	}

	s := &Server{
		snap:       snap,
		boundaries: boundaries,
		exports:    exports,
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
	s.precomputeOptions()
	return s
}

func (s *Server) precomputeOptions() {
	seen := map[string]bool{}
	for i := range s.snap.Rows {
		e := &s.snap.Rows[i]
		if e.Municipality != "" && !seen[e.Municipality] {
			seen[e.Municipality] = true
			s.municipalities = append(s.municipalities, e.Municipality)
		}
	}
	sort.Strings(s.municipalities)

	timeline, _ := aggregate.OpeningTimeline(s.snap.Rows)
	if len(timeline) > 0 {
		s.yearMin = timeline[0].Year
		s.yearMax = timeline[len(timeline)-1].Year
	}
}

// Router assembles the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/options", s.handleOptions)
		r.Get("/summary", s.handleSummary)
		r.Get("/status-distribution", s.handleStatusDistribution)
		r.Get("/type-distribution", s.handleTypeDistribution)
		r.Get("/municipalities", s.handleMunicipalities)
		r.Get("/timeline", s.handleTimeline)
		r.Get("/decades", s.handleDecades)
		r.Get("/activities", s.handleActivities)
		r.Get("/map", s.handleMap)
		r.Get("/preview", s.handlePreview)
		r.Get("/exports", s.handleExportHistory)
		r.Get("/export.csv", s.handleExportCSV)
		r.Get("/export.xlsx", s.handleExportXLSX)
	})

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The static directory is compiled in; this cannot happen at runtime.
		panic(err)
	}
	r.Handle("/*", http.FileServer(http.FS(static)))

	return r
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})
}
