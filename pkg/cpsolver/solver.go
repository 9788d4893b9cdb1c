package cpsolver

import "time"

// Status is the final state of a solve.
type Status int

const (
	// StatusUnknown: the time budget elapsed before any solution was found.
	StatusUnknown Status = iota
	// StatusOptimal: the search space was exhausted. With an objective the
	// last solution is optimal; without one, every solution was enumerated.
	StatusOptimal
	// StatusFeasible: at least one solution was found but the search stopped
	// early (solution cap or time limit).
	StatusFeasible
	// StatusInfeasible: the constraints admit no assignment.
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// Options bound one solve.
type Options struct {
	// MaxSolutions caps enumeration. Zero means 1.
	MaxSolutions int
	// TimeLimit is the wall-clock budget. Zero means no limit.
	TimeLimit time.Duration
}

// Solution is one complete assignment.
type Solution struct {
	values    []int
	objective int
}

// Value returns the assigned value of v.
func (s *Solution) Value(v Var) int {
	return s.values[v]
}

// BoolValue returns the assignment of a boolean variable.
func (s *Solution) BoolValue(v Var) bool {
	return s.values[v] != 0
}

// Objective returns the objective value, zero when the model has none.
func (s *Solution) Objective() int {
	return s.objective
}

// Result carries the solutions in discovery order plus the final status.
// Under an objective the sequence is strictly improving, so the last
// solution of an optimal result is the optimum.
type Result struct {
	Status    Status
	Solutions []*Solution
}

// Solve runs the model to completion, the solution cap, or the time limit,
// whichever comes first. The returned solutions are fully materialized;
// nothing references solver state afterwards.
func Solve(m *Model, opts Options) *Result {
	maxSol := opts.MaxSolutions
	if maxSol <= 0 {
		maxSol = 1
	}

	s := &solver{
		m:      m,
		lo:     append([]int(nil), m.lo...),
		hi:     append([]int(nil), m.hi...),
		maxSol: maxSol,
	}
	if opts.TimeLimit > 0 {
		s.deadline = time.Now().Add(opts.TimeLimit)
		s.hasDeadline = true
	}

	if !s.propagate() {
		return &Result{Status: StatusInfeasible}
	}
	aborted := s.search()

	res := &Result{Solutions: s.solutions}
	switch {
	case !aborted:
		if len(s.solutions) > 0 {
			res.Status = StatusOptimal
		} else {
			res.Status = StatusInfeasible
		}
	case len(s.solutions) > 0:
		res.Status = StatusFeasible
	default:
		res.Status = StatusUnknown
	}
	return res
}

type trailEntry struct {
	v      int
	lo, hi int
}

type solver struct {
	m      *Model
	lo, hi []int
	trail  []trailEntry

	solutions []*Solution
	best      int
	hasBest   bool
	maxSol    int

	deadline    time.Time
	hasDeadline bool
}

// setLo raises the lower bound of v. Reports whether the domain stayed
// non-empty. Bound moves are recorded on the trail for backtracking.
func (s *solver) setLo(v Var, nl int) bool {
	if nl <= s.lo[v] {
		return true
	}
	s.trail = append(s.trail, trailEntry{int(v), s.lo[v], s.hi[v]})
	s.lo[v] = nl
	return nl <= s.hi[v]
}

// setHi lowers the upper bound of v.
func (s *solver) setHi(v Var, nh int) bool {
	if nh >= s.hi[v] {
		return true
	}
	s.trail = append(s.trail, trailEntry{int(v), s.lo[v], s.hi[v]})
	s.hi[v] = nh
	return nh >= s.lo[v]
}

func (s *solver) undo(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		e := s.trail[i]
		s.lo[e.v] = e.lo
		s.hi[e.v] = e.hi
	}
	s.trail = s.trail[:mark]
}

// propagate runs bounds propagation over every constraint until quiescence.
// Reports false on a domain wipeout. Tightening with partially stale sums
// inside one sweep is sound (stale bounds are only ever looser); the outer
// fixed-point loop picks up whatever a single sweep misses.
func (s *solver) propagate() bool {
	for {
		mark := len(s.trail)
		for i := range s.m.cons {
			if !s.propagateOne(&s.m.cons[i]) {
				return false
			}
		}
		if len(s.trail) == mark {
			return true
		}
	}
}

func (s *solver) propagateOne(c *constraint) bool {
	switch c.kind {
	case conLinear:
		return s.propagateLinear(c)
	case conMaxEq:
		return s.propagateMax(c)
	case conMinEq:
		return s.propagateMin(c)
	default:
		return s.propagateProduct(c)
	}
}

func (s *solver) propagateLinear(c *constraint) bool {
	sumMin, sumMax := 0, 0
	for i, v := range c.vars {
		if coef := c.coefs[i]; coef > 0 {
			sumMin += coef * s.lo[v]
			sumMax += coef * s.hi[v]
		} else {
			sumMin += coef * s.hi[v]
			sumMax += coef * s.lo[v]
		}
	}
	if sumMin > c.hi || sumMax < c.lo {
		return false
	}

	for i, v := range c.vars {
		coef := c.coefs[i]
		var cmin, cmax int
		if coef > 0 {
			cmin, cmax = coef*s.lo[v], coef*s.hi[v]
		} else {
			cmin, cmax = coef*s.hi[v], coef*s.lo[v]
		}
		minOthers := sumMin - cmin
		maxOthers := sumMax - cmax

		// coef*v <= c.hi - minOthers and coef*v >= c.lo - maxOthers.
		if c.hi < infinity {
			ub := c.hi - minOthers
			if coef > 0 {
				if !s.setHi(v, floorDiv(ub, coef)) {
					return false
				}
			} else if !s.setLo(v, ceilDiv(ub, coef)) {
				return false
			}
		}
		if c.lo > -infinity {
			lb := c.lo - maxOthers
			if coef > 0 {
				if !s.setLo(v, ceilDiv(lb, coef)) {
					return false
				}
			} else if !s.setHi(v, floorDiv(lb, coef)) {
				return false
			}
		}
	}
	return true
}

func (s *solver) propagateMax(c *constraint) bool {
	ubAll, lbAll := -infinity, -infinity
	for _, a := range c.args {
		if s.hi[a] > ubAll {
			ubAll = s.hi[a]
		}
		if s.lo[a] > lbAll {
			lbAll = s.lo[a]
		}
	}
	t := c.target
	if !s.setHi(t, ubAll) || !s.setLo(t, lbAll) {
		return false
	}
	for _, a := range c.args {
		if !s.setHi(a, s.hi[t]) {
			return false
		}
	}
	return true
}

func (s *solver) propagateMin(c *constraint) bool {
	ubAll, lbAll := infinity, infinity
	for _, a := range c.args {
		if s.hi[a] < ubAll {
			ubAll = s.hi[a]
		}
		if s.lo[a] < lbAll {
			lbAll = s.lo[a]
		}
	}
	t := c.target
	if !s.setHi(t, ubAll) || !s.setLo(t, lbAll) {
		return false
	}
	for _, a := range c.args {
		if !s.setLo(a, s.lo[t]) {
			return false
		}
	}
	return true
}

// propagateProduct handles target = a*b with boolean b and non-negative a.
func (s *solver) propagateProduct(c *constraint) bool {
	t, a, b := c.target, c.args[0], c.args[1]
	switch {
	case s.hi[b] == 0: // b fixed false
		return s.setLo(t, 0) && s.setHi(t, 0)
	case s.lo[b] == 1: // b fixed true: t == a
		return s.setLo(t, s.lo[a]) && s.setHi(t, s.hi[a]) &&
			s.setLo(a, s.lo[t]) && s.setHi(a, s.hi[t])
	default:
		if !s.setLo(t, 0) || !s.setHi(t, s.hi[a]) {
			return false
		}
		if s.lo[t] > 0 && !s.setLo(b, 1) {
			return false
		}
		return true
	}
}

func (s *solver) objLowerBound() int {
	lb := s.m.obj.offset
	for i, v := range s.m.obj.vars {
		if coef := s.m.obj.coefs[i]; coef > 0 {
			lb += coef * s.lo[v]
		} else {
			lb += coef * s.hi[v]
		}
	}
	return lb
}

func (s *solver) firstUnfixed() Var {
	for v := range s.lo {
		if s.lo[v] != s.hi[v] {
			return Var(v)
		}
	}
	return -1
}

// search explores the remaining subtree depth-first, branching on the first
// unfixed variable in declaration order: value = lower bound first, then
// the rest of the domain. Reports true when the whole solve should stop
// (cap reached or deadline passed).
func (s *solver) search() bool {
	if s.hasDeadline && time.Now().After(s.deadline) {
		return true
	}
	if s.m.obj != nil && s.hasBest && s.objLowerBound() >= s.best {
		return false
	}

	v := s.firstUnfixed()
	if v < 0 {
		return s.record()
	}

	lo := s.lo[v]
	mark := len(s.trail)

	if s.setHi(v, lo) && s.propagate() {
		if s.search() {
			return true
		}
	}
	s.undo(mark)

	if s.setLo(v, lo+1) && s.propagate() {
		if s.search() {
			return true
		}
	}
	s.undo(mark)
	return false
}

// record captures the current complete assignment. Reports true when the
// enumeration cap is reached.
func (s *solver) record() bool {
	vals := append([]int(nil), s.lo...)
	sol := &Solution{values: vals}
	if s.m.obj != nil {
		obj := s.m.obj.offset
		for i, v := range s.m.obj.vars {
			obj += s.m.obj.coefs[i] * vals[v]
		}
		sol.objective = obj
		s.best = obj
		s.hasBest = true
	}
	s.solutions = append(s.solutions, sol)
	return len(s.solutions) >= s.maxSol
}

// floorDiv is division rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// ceilDiv is division rounding toward positive infinity.
func ceilDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
