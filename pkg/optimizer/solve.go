package optimizer

import (
	"github.com/hmiyake/roster-optimizer-go/pkg/cpsolver"
	"github.com/hmiyake/roster-optimizer-go/pkg/models"
)

// Solve runs the full pipeline for one request: normalize, assemble the
// constraint model, enumerate solutions within the time budget, and pick
// the requested index. Every call re-solves from scratch so the result is
// always consistent with the weights and constraints passed in; there is
// no cross-call cache.
//
// The error return is non-nil only for invalid input (a *ValidationError).
// Infeasible, exhausted, and timed-out outcomes are reported as typed
// statuses on the result, not as errors.
func Solve(req *models.SolveRequest) (*models.SolveResult, error) {
	in, err := normalize(req)
	if err != nil {
		return nil, err
	}

	comp := build(in)
	res := cpsolver.Solve(comp.model, cpsolver.Options{
		MaxSolutions: in.maxSolutions,
		TimeLimit:    in.timeLimit,
	})

	switch res.Status {
	case cpsolver.StatusInfeasible:
		return &models.SolveResult{Status: models.StatusInfeasible}, nil
	case cpsolver.StatusUnknown:
		return &models.SolveResult{Status: models.StatusTimeLimit}, nil
	}

	if in.index >= len(res.Solutions) {
		return &models.SolveResult{
			Status:     models.StatusExhausted,
			FoundCount: len(res.Solutions),
		}, nil
	}

	status := models.StatusFeasible
	if res.Status == cpsolver.StatusOptimal {
		status = models.StatusOptimal
	}
	return &models.SolveResult{
		Status:        status,
		Schedule:      materialize(in, comp, res.Solutions[in.index]),
		SolutionIndex: in.index,
		FoundCount:    len(res.Solutions),
	}, nil
}
