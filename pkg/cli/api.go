package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mchmarny/runweight/pkg/data"
	"github.com/mchmarny/runweight/pkg/score"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps store and scoring errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, data.ErrEnsembleNotFound), errors.Is(err, data.ErrCriterionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, score.ErrInvalidInput),
		errors.Is(err, score.ErrType):
		return http.StatusBadRequest
	case errors.Is(err, score.ErrAllMissing),
		errors.Is(err, score.ErrEmptySubset),
		errors.Is(err, score.ErrShape),
		errors.Is(err, score.ErrDegenerateWeights):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func ensembleListAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		list, err := data.ListEnsembles(db)
		if err != nil {
			slog.Error("failed to list ensembles", "error", err)
			writeError(w, http.StatusInternalServerError, "error listing ensembles")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func ensembleAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := data.GetEnsemble(db, r.PathValue("ref"))
		if err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}
		vars, err := data.ListVariables(db, e.ID)
		if err != nil {
			slog.Error("failed to list variables", "ensemble", e.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "error listing variables")
			return
		}
		writeJSON(w, http.StatusOK, &EnsembleDetail{Ensemble: e, Variables: vars})
	}
}

func criterionListAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		list, err := data.ListCriteria(db)
		if err != nil {
			slog.Error("failed to list criteria", "error", err)
			writeError(w, http.StatusInternalServerError, "error listing criteria")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func criterionAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := data.GetCriterion(db, r.PathValue("name"))
		if err != nil {
			writeError(w, errorStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func stateAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		state, err := data.GetDataState(db)
		if err != nil {
			slog.Error("failed to get data state", "error", err)
			writeError(w, http.StatusInternalServerError, "error getting data state")
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func scoreAPIHandler(cfg *appConfig, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := parseScoreQuery(cfg, r.URL.Query())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		start := time.Now()
		rep, err := scoreEnsemble(cfg.DB, req)
		m.ObserveScore(req.Method, time.Since(start), err)
		if err != nil {
			status := errorStatus(err)
			if status == http.StatusInternalServerError {
				slog.Error("failed to score ensemble", "ensemble", req.Ensemble, "error", err)
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// parseScoreQuery builds a scoring request from query parameters over the
// configured defaults. The criterion parameter may repeat.
func parseScoreQuery(cfg *appConfig, q url.Values) (*scoreRequest, error) {
	req := newScoreRequest(cfg.Config)
	req.Ensemble = q.Get("ensemble")
	req.Criteria = q["criterion"]
	if req.Ensemble == "" || len(req.Criteria) == 0 {
		return nil, fmt.Errorf("%w: ensemble and criterion are required", errBadRequest)
	}
	if v := q.Get("method"); v != "" {
		req.Method = v
	}

	floats := map[string]*float64{
		"w1":         &req.Params.W1,
		"w2":         &req.Params.W2,
		"e":          &req.Params.E,
		"min_weight": &req.MinWeight,
	}
	for k, p := range floats {
		v := q.Get(k)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: invalid %s: %s", errBadRequest, k, v)
		}
		*p = f
	}

	for _, v := range q["criterion_weight"] {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: invalid criterion_weight: %s", errBadRequest, v)
		}
		req.CriterionWeights = append(req.CriterionWeights, f)
	}

	if v := q.Get("drop_na"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid drop_na: %s", errBadRequest, v)
		}
		req.Params.DropNA = b
	}
	if v := q.Get("align_check"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid align_check: %s", errBadRequest, v)
		}
		req.AlignmentCheck = b
	}
	if v := q.Get("workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: invalid workers: %s", errBadRequest, v)
		}
		req.Workers = n
	}

	return req, nil
}
