// Package cpsolver is a small deterministic constraint solver over boolean
// and bounded-integer variables. It supports linear constraints,
// exactly-one, max/min equality, integer-times-boolean products, a linear
// minimization objective, and time-bounded enumeration of multiple
// solutions in a stable order.
//
// Search is depth-first over variables in declaration order with
// bounds-consistency propagation run to a fixed point after every decision,
// and branch-and-bound pruning against the best objective found. Given an
// identically constructed model, the enumeration order is identical across
// runs; there is no randomness anywhere in the search.
package cpsolver

import "fmt"

// Var identifies a variable within one Model.
type Var int

// infinity sentinel for one-sided linear constraints. Large enough to
// dominate any bound this solver is used with, small enough to never
// overflow intermediate arithmetic.
const infinity = int(1) << 40

// LinearExpr is an integer linear expression: sum(coef_i * var_i) + offset.
type LinearExpr struct {
	vars   []Var
	coefs  []int
	offset int
}

// NewLinearExpr returns an empty expression.
func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// Sum returns an expression adding the given variables with coefficient 1.
func Sum(vars ...Var) *LinearExpr {
	e := NewLinearExpr()
	for _, v := range vars {
		e.AddTerm(v, 1)
	}
	return e
}

// AddTerm appends coef*v and returns the expression for chaining.
func (e *LinearExpr) AddTerm(v Var, coef int) *LinearExpr {
	e.vars = append(e.vars, v)
	e.coefs = append(e.coefs, coef)
	return e
}

// Add appends v with coefficient 1.
func (e *LinearExpr) Add(v Var) *LinearExpr {
	return e.AddTerm(v, 1)
}

// AddConstant adds a constant term.
func (e *LinearExpr) AddConstant(c int) *LinearExpr {
	e.offset += c
	return e
}

// merged returns the expression's terms with duplicate variables combined
// and zero coefficients dropped, preserving first-occurrence order.
func (e *LinearExpr) merged() (vars []Var, coefs []int) {
	seen := make(map[Var]int, len(e.vars))
	for i, v := range e.vars {
		if j, ok := seen[v]; ok {
			coefs[j] += e.coefs[i]
			continue
		}
		seen[v] = len(vars)
		vars = append(vars, v)
		coefs = append(coefs, e.coefs[i])
	}
	out := 0
	for i := range vars {
		if coefs[i] == 0 {
			continue
		}
		vars[out], coefs[out] = vars[i], coefs[i]
		out++
	}
	return vars[:out], coefs[:out]
}

type constraintKind int

const (
	conLinear constraintKind = iota
	conMaxEq
	conMinEq
	conProduct
)

type constraint struct {
	kind constraintKind

	// conLinear: lo <= sum(coefs*vars) <= hi (expression offset folded in).
	vars  []Var
	coefs []int
	lo    int
	hi    int

	// conMaxEq / conMinEq: target = max/min(args).
	// conProduct: target = args[0] * args[1], args[1] boolean.
	target Var
	args   []Var
}

// Model is a set of variables and constraints plus an optional objective.
// Build it fully, then pass it to Solve. A Model is not safe for concurrent
// mutation and is consumed by a single solve.
type Model struct {
	lo, hi []int
	names  []string
	cons   []constraint
	obj    *LinearExpr
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewBoolVar declares a 0/1 variable.
func (m *Model) NewBoolVar(name string) Var {
	return m.NewIntVar(0, 1, name)
}

// NewIntVar declares an integer variable with inclusive bounds.
func (m *Model) NewIntVar(lo, hi int, name string) Var {
	if lo > hi {
		panic(fmt.Sprintf("cpsolver: variable %q has empty domain [%d,%d]", name, lo, hi))
	}
	m.lo = append(m.lo, lo)
	m.hi = append(m.hi, hi)
	m.names = append(m.names, name)
	return Var(len(m.lo) - 1)
}

// NumVars reports how many variables the model declares.
func (m *Model) NumVars() int {
	return len(m.lo)
}

func (m *Model) addLinear(e *LinearExpr, lo, hi int) {
	vars, coefs := e.merged()
	m.cons = append(m.cons, constraint{
		kind:  conLinear,
		vars:  vars,
		coefs: coefs,
		lo:    lo - e.offset,
		hi:    hi - e.offset,
	})
}

// AddEquality constrains e == k.
func (m *Model) AddEquality(e *LinearExpr, k int) {
	m.addLinear(e, k, k)
}

// AddAtLeast constrains e >= k.
func (m *Model) AddAtLeast(e *LinearExpr, k int) {
	m.addLinear(e, k, infinity)
}

// AddAtMost constrains e <= k.
func (m *Model) AddAtMost(e *LinearExpr, k int) {
	m.addLinear(e, -infinity, k)
}

// AddRange constrains lo <= e <= hi.
func (m *Model) AddRange(e *LinearExpr, lo, hi int) {
	m.addLinear(e, lo, hi)
}

// AddExactlyOne constrains exactly one of the given boolean variables to be
// true.
func (m *Model) AddExactlyOne(vars ...Var) {
	m.AddEquality(Sum(vars...), 1)
}

// AddMaxEquality constrains target == max(vars). vars must be non-empty.
func (m *Model) AddMaxEquality(target Var, vars []Var) {
	if len(vars) == 0 {
		panic("cpsolver: AddMaxEquality with no operands")
	}
	m.cons = append(m.cons, constraint{kind: conMaxEq, target: target, args: append([]Var(nil), vars...)})
}

// AddMinEquality constrains target == min(vars). vars must be non-empty.
func (m *Model) AddMinEquality(target Var, vars []Var) {
	if len(vars) == 0 {
		panic("cpsolver: AddMinEquality with no operands")
	}
	m.cons = append(m.cons, constraint{kind: conMinEq, target: target, args: append([]Var(nil), vars...)})
}

// AddBoolProduct constrains target == a*b where b is boolean and a is a
// non-negative integer variable. This is the conditional-term construct:
// target equals a when b is true and zero when b is false.
func (m *Model) AddBoolProduct(target, a, b Var) {
	m.cons = append(m.cons, constraint{kind: conProduct, target: target, args: []Var{a, b}})
}

// Minimize sets the objective. Solutions are enumerated in strictly
// improving objective order; the final solution of an exhausted search is
// optimal.
func (m *Model) Minimize(e *LinearExpr) {
	m.obj = e
}
