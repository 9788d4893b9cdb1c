package optimizer

import (
	"fmt"

	"github.com/hmiyake/roster-optimizer-go/pkg/cpsolver"
)

// maxConsecutiveWork caps working days in any 7-day window.
const maxConsecutiveWork = 6

// compiled ties a built model to the assignment variables the materializer
// reads back.
type compiled struct {
	model *cpsolver.Model
	// x[staff][day][shift]: this member works this shift on this day.
	x [][][]cpsolver.Var
}

// build assembles the constraint model and objective for one instance.
// Construction order is fixed so that identical requests produce identical
// models, which in turn makes the solver's enumeration order reproducible.
func build(in *instance) *compiled {
	m := cpsolver.NewModel()
	numDays := len(in.dates)
	numShifts := len(in.shiftLabels)
	normal := in.normalLabels()
	obj := cpsolver.NewLinearExpr()

	x := make([][][]cpsolver.Var, len(in.staff))
	for s := range in.staff {
		x[s] = make([][]cpsolver.Var, numDays)
		for d := range in.dates {
			x[s][d] = make([]cpsolver.Var, numShifts)
			for sh := range in.shiftLabels {
				x[s][d][sh] = m.NewBoolVar(fmt.Sprintf("x_%d_%d_%d", s, d, sh))
			}
		}
	}

	// Every staff-day has exactly one status, Rest included.
	for s := range in.staff {
		for d := range in.dates {
			m.AddExactlyOne(x[s][d]...)
		}
	}

	// Requested-off and paid-leave days force Rest; a preferred shift is
	// forced on (and Rest off, via exactly-one).
	for s, st := range in.staff {
		if s == in.supportStaff {
			continue
		}
		ls, ok := in.leave[st.Name]
		if !ok {
			continue
		}
		for d, date := range in.dates {
			if ls.daysOff[date] || ls.paidLeave[date] {
				m.AddEquality(cpsolver.Sum(x[s][d][in.restIdx]), 1)
				continue
			}
			if label, prefOK := ls.prefs[date]; prefOK {
				m.AddEquality(cpsolver.Sum(x[s][d][in.shiftIndex[label]]), 1)
			}
		}
	}

	// At most 6 working days per 7-day window, i.e. at least one Rest in
	// every window. The support member is exempt.
	for s := range in.staff {
		if s == in.supportStaff {
			continue
		}
		for start := 0; start+maxConsecutiveWork < numDays; start++ {
			window := cpsolver.NewLinearExpr()
			for d := start; d <= start+maxConsecutiveWork; d++ {
				window.Add(x[s][d][in.restIdx])
			}
			m.AddAtLeast(window, 1)
		}
	}

	// Support exclusivity: the support member works only Support or Rest,
	// and nobody else ever works Support.
	if in.useSupport {
		for d := range in.dates {
			for sh := range in.shiftLabels {
				if sh != in.supportIdx && sh != in.restIdx {
					m.AddEquality(cpsolver.Sum(x[in.supportStaff][d][sh]), 0)
				}
			}
			for s := range in.staff {
				if s != in.supportStaff {
					m.AddEquality(cpsolver.Sum(x[s][d][in.supportIdx]), 0)
				}
			}
		}
	}

	// Support coverage: one boolean per (day, normal shift) saying the
	// support member's Support day counts toward that shift's headcount.
	// Coverage needs the member actually working, and covers at most one
	// shift slot per day.
	var cover [][]cpsolver.Var
	if in.useSupport {
		cover = make([][]cpsolver.Var, numDays)
		for d := range in.dates {
			cover[d] = make([]cpsolver.Var, len(normal))
			daySum := cpsolver.NewLinearExpr()
			for j, label := range normal {
				cover[d][j] = m.NewBoolVar(fmt.Sprintf("cover_%d_%s", d, label))
				m.AddAtMost(
					cpsolver.NewLinearExpr().
						Add(cover[d][j]).
						AddTerm(x[in.supportStaff][d][in.supportIdx], -1),
					0,
				)
				daySum.Add(cover[d][j])
			}
			m.AddAtMost(daySum, 1)
		}
	}

	// Headcount requirements. Zero-required cells are forced empty; strict
	// days are met exactly, other days as a minimum. Support coverage
	// counts toward the cell it was allocated to.
	for d, date := range in.dates {
		row := in.required[date]
		strict := in.strict[date]
		for j, label := range normal {
			shIdx := in.shiftIndex[label]
			required := row[label]
			if required == 0 {
				for s := range in.staff {
					if s == in.supportStaff {
						continue
					}
					m.AddEquality(cpsolver.Sum(x[s][d][shIdx]), 0)
				}
				continue
			}
			head := cpsolver.NewLinearExpr()
			for s := range in.staff {
				if s == in.supportStaff {
					continue
				}
				head.Add(x[s][d][shIdx])
			}
			if in.useSupport {
				head.Add(cover[d][j])
			}
			if strict {
				m.AddEquality(head, required)
			} else {
				m.AddAtLeast(head, required)
			}
		}
	}

	// Per-member assignment counts of each normal shift, for balancing and
	// steering.
	counts := make([][]cpsolver.Var, len(in.staff))
	for s := range in.staff {
		if s == in.supportStaff {
			continue
		}
		counts[s] = make([]cpsolver.Var, len(normal))
		for j, label := range normal {
			c := m.NewIntVar(0, numDays, fmt.Sprintf("count_%d_%s", s, label))
			sum := cpsolver.NewLinearExpr().AddTerm(c, -1)
			for d := range in.dates {
				sum.Add(x[s][d][in.shiftIndex[label]])
			}
			m.AddEquality(sum, 0)
			counts[s][j] = c
		}
	}

	// Shift balance: the max-min spread of each normal shift's per-member
	// count joins the objective at fixed weight 1.
	for j, label := range normal {
		var ops []cpsolver.Var
		for s := range in.staff {
			if s != in.supportStaff {
				ops = append(ops, counts[s][j])
			}
		}
		maxC := m.NewIntVar(0, numDays, "max_"+label)
		minC := m.NewIntVar(0, numDays, "min_"+label)
		m.AddMaxEquality(maxC, ops)
		m.AddMinEquality(minC, ops)
		diff := m.NewIntVar(0, numDays, "spread_"+label)
		m.AddEquality(
			cpsolver.NewLinearExpr().Add(diff).AddTerm(maxC, -1).Add(minC),
			0,
		)
		obj.Add(diff)
	}

	// Compatibility is a preference: working outside the member's set is
	// penalized, never forbidden. Rest never counts as incompatible.
	if in.weights.compatibility != 0 {
		for s, st := range in.staff {
			set, restricted := in.compat[st.Name]
			if !restricted {
				continue
			}
			for d := range in.dates {
				for sh, label := range in.shiftLabels {
					if sh == in.restIdx || set[label] {
						continue
					}
					obj.AddTerm(x[s][d][sh], in.weights.compatibility)
				}
			}
		}
	}

	// Worked hours per member with a target: shift hours plus a constant
	// for paid-leave days at the daily rate. Drives the workload deviation
	// penalty and the primary-shift steering bonus.
	maxShiftHours := 0
	for _, h := range in.shiftHours {
		if h > maxShiftHours {
			maxShiftHours = h
		}
	}
	primaryJ := -1
	for j, label := range normal {
		if in.primaryIdx >= 0 && in.shiftIndex[label] == in.primaryIdx {
			primaryJ = j
		}
	}
	for s, st := range in.staff {
		if s == in.supportStaff || st.TargetHours == nil {
			continue
		}
		target := *st.TargetHours
		ls := in.leave[st.Name]
		paidDays := 0
		for _, date := range in.dates {
			if ls.paidLeave[date] {
				paidDays++
			}
		}
		extra := paidDays * st.DailyHours
		upper := numDays*maxShiftHours + extra

		hours := m.NewIntVar(0, upper, fmt.Sprintf("hours_%d", s))
		sum := cpsolver.NewLinearExpr().AddTerm(hours, -1).AddConstant(extra)
		for d := range in.dates {
			for sh := range in.shiftLabels {
				if h := in.shiftHours[sh]; h > 0 {
					sum.AddTerm(x[s][d][sh], h)
				}
			}
		}
		m.AddEquality(sum, 0)

		if in.weights.workload != 0 {
			dev := m.NewIntVar(0, upper+target, fmt.Sprintf("dev_%d", s))
			// dev >= hours - target and dev >= target - hours; minimization
			// pins dev to the absolute deviation.
			m.AddAtLeast(cpsolver.NewLinearExpr().Add(dev).AddTerm(hours, -1), -target)
			m.AddAtLeast(cpsolver.NewLinearExpr().Add(dev).Add(hours), target)
			obj.AddTerm(dev, in.weights.workload)
		}

		if in.weights.steering != 0 && primaryJ >= 0 {
			// under == 1 exactly when hours < target, big-M encoded:
			//   hours + M*under <= target - 1 + M
			//   hours + M*under >= target
			bigM := upper + target + 1
			under := m.NewBoolVar(fmt.Sprintf("under_%d", s))
			m.AddAtMost(
				cpsolver.NewLinearExpr().Add(hours).AddTerm(under, bigM),
				target-1+bigM,
			)
			m.AddAtLeast(
				cpsolver.NewLinearExpr().Add(hours).AddTerm(under, bigM),
				target,
			)
			// The steering term applies only while under target: proxy is
			// the primary-shift count gated by the indicator.
			proxy := m.NewIntVar(0, numDays, fmt.Sprintf("steer_%d", s))
			m.AddBoolProduct(proxy, counts[s][primaryJ], under)
			obj.AddTerm(proxy, in.weights.steering)
		}
	}

	// Support usage is discouraged, not forbidden.
	if in.useSupport {
		total := m.NewIntVar(0, numDays, "support_days")
		sum := cpsolver.NewLinearExpr().AddTerm(total, -1)
		for d := range in.dates {
			sum.Add(x[in.supportStaff][d][in.supportIdx])
		}
		m.AddEquality(sum, 0)
		obj.AddTerm(total, in.weights.support)
	}

	m.Minimize(obj)
	return &compiled{model: m, x: x}
}
