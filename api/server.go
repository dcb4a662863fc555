package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"collection-kpi/models"
	"collection-kpi/services"
	"collection-kpi/storage"
	"collection-kpi/utils"
)

const cacheLimit = 64

// Options are the defaults applied when a request does not override them.
type Options struct {
	OverdueThreshold  decimal.Decimal
	OverdueGraceDays  int
	TrendMonths       int
	MismatchTolerance decimal.Decimal
}

type reportKey struct {
	asOf      string
	threshold string
}

// Server serves read-only views over one loaded dataset.
type Server struct {
	ds        *models.Dataset
	opts      Options
	insights  *services.InsightService
	validator *services.Validator
	logger    *utils.Logger

	reports *utils.Memo[reportKey, *models.Report]
	checks  *utils.Memo[string, *models.CheckReport]

	now func() time.Time
}

func NewServer(ds *models.Dataset, opts Options, logger *utils.Logger) *Server {
	return &Server{
		ds:        ds,
		opts:      opts,
		insights:  services.NewInsightService(logger),
		validator: services.NewValidator(logger),
		logger:    logger,
		reports:   utils.NewMemo[reportKey, *models.Report](cacheLimit),
		checks:    utils.NewMemo[string, *models.CheckReport](cacheLimit),
		now:       time.Now,
	}
}

// Router wires every endpoint.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/api/summary", s.handleSummary).Methods("GET")
	router.HandleFunc("/api/bookings", s.handleBookings).Methods("GET")
	router.HandleFunc("/api/trend", s.handleTrend).Methods("GET")
	router.HandleFunc("/api/checks", s.handleChecks).Methods("GET")
	router.HandleFunc("/api/checks/{code:[a-z_]+}.csv", s.handleCheckCSV).Methods("GET")

	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[api] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("[api] Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// Report returns the memoised report for the given as-of date and threshold.
func (s *Server) Report(asOf time.Time, threshold decimal.Decimal) (*models.Report, error) {
	key := reportKey{asOf: asOf.Format("2006-01-02"), threshold: threshold.String()}
	return s.reports.GetOrCompute(key, func() (*models.Report, error) {
		return s.insights.Generate(s.ds, services.ReportOptions{
			AsOf:             asOf,
			OverdueThreshold: threshold,
			OverdueGraceDays: s.opts.OverdueGraceDays,
			TrendMonths:      s.opts.TrendMonths,
		})
	})
}

// Checks returns the memoised check battery for the given as-of date.
func (s *Server) Checks(asOf time.Time) *models.CheckReport {
	cr, _ := s.checks.GetOrCompute(asOf.Format("2006-01-02"), func() (*models.CheckReport, error) {
		return s.validator.Run(s.ds, services.ValidationOptions{
			AsOf:              asOf,
			MismatchTolerance: s.opts.MismatchTolerance,
		}), nil
	})
	return cr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"source": s.ds.Source,
		"rows":   len(s.ds.Items),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reportFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, newSummaryResponse(report))
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reportFor(w, r)
	if !ok {
		return
	}
	out := make([]bookingJSON, 0, len(report.Bookings))
	for _, b := range report.Bookings {
		out = append(out, newBookingJSON(b))
	}
	writeJSON(w, out)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	report, ok := s.reportFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, newTrendResponse(report))
}

func (s *Server) handleChecks(w http.ResponseWriter, r *http.Request) {
	asOf, err := s.parseAsOf(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, newChecksResponse(s.Checks(asOf)))
}

func (s *Server) handleCheckCSV(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	asOf, err := s.parseAsOf(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.Checks(asOf).Result(code)
	if res == nil {
		httpError(w, http.StatusNotFound, fmt.Sprintf("unknown check %q", code))
		return
	}
	if res.Err != nil {
		httpError(w, http.StatusUnprocessableEntity, res.Err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", code+".csv"))
	if err := storage.WriteCSV(w, res.Table); err != nil {
		s.logger.Error("[api] write %s.csv: %v", code, err)
	}
}

// reportFor resolves query parameters and writes an error response when the
// report cannot be produced.
func (s *Server) reportFor(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	asOf, err := s.parseAsOf(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	threshold, err := s.parseThreshold(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	report, err := s.Report(asOf, threshold)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, models.ErrMissingField) {
			status = http.StatusUnprocessableEntity
		}
		httpError(w, status, err.Error())
		return nil, false
	}
	return report, true
}

func (s *Server) parseAsOf(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return services.DateOnly(s.now()), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("as_of must be yyyy-mm-dd, got %q", raw)
	}
	return t, nil
}

func (s *Server) parseThreshold(r *http.Request) (decimal.Decimal, error) {
	raw := r.URL.Query().Get("threshold")
	if raw == "" {
		return s.opts.OverdueThreshold, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("threshold must be a non-negative number, got %q", raw)
	}
	return d, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": msg})
}
