package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mchmarny/runweight/pkg/config"
	"github.com/mchmarny/runweight/pkg/data"
	"github.com/mchmarny/runweight/pkg/score"
	"github.com/urfave/cli/v3"
)

var (
	ensembleFlag = &cli.StringFlag{
		Name:     "ensemble",
		Usage:    "Ensemble name or ID",
		Required: true,
	}

	criterionFlag = &cli.StringSliceFlag{
		Name:     "criterion",
		Usage:    "Criterion name (can be specified multiple times)",
		Required: true,
	}

	criterionWeightFlag = &cli.FloatSliceFlag{
		Name:  "criterion-weight",
		Usage: "Relative weight of each criterion when combining (default: equal)",
	}

	methodFlag = &cli.StringFlag{
		Name:  "method",
		Usage: "Scoring method [ramp, bayesian] (default: from config)",
	}

	w1Flag = &cli.FloatFlag{
		Name:  "w1",
		Usage: "Ramp distance at or below which a row scores 1 (default: from config)",
	}

	w2Flag = &cli.FloatFlag{
		Name:  "w2",
		Usage: "Ramp distance at or above which a row scores 0 (default: from config)",
	}

	dropNAFlag = &cli.BoolFlag{
		Name:  "drop-na",
		Usage: "Ignore rows with a missing observed or modeled value (default: from config)",
	}

	exponentFlag = &cli.FloatFlag{
		Name:  "e",
		Usage: "Bayesian likelihood exponent (default: from config)",
	}

	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "Number of runs scored in parallel (default: from config)",
	}

	noAlignCheckFlag = &cli.BoolFlag{
		Name:  "no-align-check",
		Usage: "Skip the check that run years match the criterion years",
	}

	minWeightFlag = &cli.FloatFlag{
		Name:  "min-weight",
		Usage: "Only report runs with at least this weight",
	}

	scoreCmd = &cli.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Weight the runs of an ensemble against one or more criteria",
		UsageText: `runweight score --ensemble hector-ssp245 --criterion hadcrut5
   runweight score --ensemble hector-ssp245 --criterion hadcrut5 --method bayesian --e 2
   runweight score --ensemble hector-ssp245 --criterion hadcrut5 --criterion mauna-loa --criterion-weight 2 --criterion-weight 1`,
		HideHelpCommand: true,
		Action:          cmdScore,
		Flags: []cli.Flag{
			ensembleFlag,
			criterionFlag,
			criterionWeightFlag,
			methodFlag,
			w1Flag,
			w2Flag,
			dropNAFlag,
			exponentFlag,
			workersFlag,
			noAlignCheckFlag,
			minWeightFlag,
		},
	}
)

// scoreRequest describes one scoring call against stored runs.
type scoreRequest struct {
	Ensemble         string
	Criteria         []string
	CriterionWeights []float64
	Method           string
	Params           score.Params
	Workers          int
	AlignmentCheck   bool
	MinWeight        float64
}

// ScoreReport is the outcome of scoring an ensemble. Combined is set when
// more than one criterion was used.
type ScoreReport struct {
	Ensemble *data.Ensemble       `json:"ensemble" yaml:"ensemble"`
	Method   string               `json:"method" yaml:"method"`
	Criteria []*score.ResultTable `json:"criteria" yaml:"criteria"`
	Combined *score.ResultTable   `json:"combined,omitempty" yaml:"combined,omitempty"`
	Duration string               `json:"duration" yaml:"duration"`
}

func newScoreRequest(c *config.Config) *scoreRequest {
	return &scoreRequest{
		Method:         c.Method,
		Params:         c.Params(),
		Workers:        c.Workers,
		AlignmentCheck: true,
	}
}

func cmdScore(_ context.Context, cmd *cli.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}

	req := newScoreRequest(cfg.Config)
	req.Ensemble = cmd.String(ensembleFlag.Name)
	req.Criteria = cmd.StringSlice(criterionFlag.Name)
	req.CriterionWeights = cmd.FloatSlice(criterionWeightFlag.Name)
	req.MinWeight = cmd.Float(minWeightFlag.Name)
	req.AlignmentCheck = !cmd.Bool(noAlignCheckFlag.Name)

	if cmd.IsSet(methodFlag.Name) {
		req.Method = cmd.String(methodFlag.Name)
	}
	if cmd.IsSet(w1Flag.Name) {
		req.Params.W1 = cmd.Float(w1Flag.Name)
	}
	if cmd.IsSet(w2Flag.Name) {
		req.Params.W2 = cmd.Float(w2Flag.Name)
	}
	if cmd.IsSet(dropNAFlag.Name) {
		req.Params.DropNA = cmd.Bool(dropNAFlag.Name)
	}
	if cmd.IsSet(exponentFlag.Name) {
		req.Params.E = cmd.Float(exponentFlag.Name)
	}
	if cmd.IsSet(workersFlag.Name) {
		req.Workers = cmd.Int(workersFlag.Name)
	}

	rep, err := scoreEnsemble(cfg.DB, req)
	if err != nil {
		return err
	}
	return encode(cmd, rep)
}

// scoreEnsemble loads the runs of the requested ensemble for each criterion,
// scores them, and combines the tables when there is more than one.
func scoreEnsemble(db *sql.DB, req *scoreRequest) (*ScoreReport, error) {
	if req == nil || len(req.Criteria) == 0 {
		return nil, errors.New("at least one criterion is required")
	}
	if math.IsNaN(req.MinWeight) || math.IsInf(req.MinWeight, 0) {
		return nil, fmt.Errorf("%w: min weight must be finite, got %v", score.ErrInvalidInput, req.MinWeight)
	}
	start := time.Now()

	s, err := score.NewScorer(req.Method, req.Params)
	if err != nil {
		return nil, err
	}

	e, err := data.GetEnsemble(db, req.Ensemble)
	if err != nil {
		return nil, err
	}

	opts := []score.Option{score.WithAlignmentCheck(req.AlignmentCheck)}
	if req.Workers > 1 {
		opts = append(opts, score.WithWorkers(req.Workers))
	}

	rep := &ScoreReport{
		Ensemble: e,
		Method:   s.Name(),
		Criteria: make([]*score.ResultTable, 0, len(req.Criteria)),
	}

	for _, name := range req.Criteria {
		c, err := data.GetCriterion(db, name)
		if err != nil {
			return nil, err
		}

		runs, err := data.QueryRuns(db, e.ID, c.Variable, c.Years)
		if err != nil {
			return nil, fmt.Errorf("loading runs for %s: %w", name, err)
		}
		slog.Debug("runs loaded", "ensemble", e.Name, "criterion", name, "records", len(runs))

		tbl, err := score.ScoreRuns(runs, c, s, opts...)
		if err != nil {
			return nil, fmt.Errorf("scoring %s against %s: %w", e.Name, name, err)
		}
		rep.Criteria = append(rep.Criteria, tbl)
	}

	if len(rep.Criteria) > 1 {
		var weights []float64
		if len(req.CriterionWeights) > 0 {
			weights = req.CriterionWeights
		}
		combined, err := score.CombineCriteria(rep.Criteria, weights)
		if err != nil {
			return nil, fmt.Errorf("combining criteria: %w", err)
		}
		rep.Combined = combined
	}

	if req.MinWeight > 0 {
		for i, t := range rep.Criteria {
			rep.Criteria[i] = t.Filter(req.MinWeight)
		}
		if rep.Combined != nil {
			rep.Combined = rep.Combined.Filter(req.MinWeight)
		}
	}

	rep.Duration = time.Since(start).String()
	slog.Info("ensemble scored", "ensemble", e.Name, "method", rep.Method, "criteria", len(rep.Criteria))
	return rep, nil
}
