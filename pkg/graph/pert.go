package graph

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ExpectedTime is the PERT mean (op + 4·mo + pe)/6.
func ExpectedTime(op, mo, pe float64) (float64, error) {
	if err := validateEstimate(op, mo, pe); err != nil {
		return 0, err
	}
	return (op + 4*mo + pe) / 6, nil
}

// TaskVariance is ((pe - op)/6)².
func TaskVariance(op, mo, pe float64) (float64, error) {
	if err := validateEstimate(op, mo, pe); err != nil {
		return 0, err
	}
	s := (pe - op) / 6
	return s * s, nil
}

func validateEstimate(op, mo, pe float64) error {
	if op < 0 || mo < 0 || pe < 0 {
		return fmt.Errorf("%w: estimates must be non-negative (op=%g, mo=%g, pe=%g)", ErrValidation, op, mo, pe)
	}
	if op > mo || mo > pe {
		return fmt.Errorf("%w: estimates must satisfy op <= mo <= pe (op=%g, mo=%g, pe=%g)", ErrValidation, op, mo, pe)
	}
	return nil
}

// ValidateProbabilistic checks that every node carries a three-point
// estimate.
func (n *Network) ValidateProbabilistic() error {
	for _, id := range n.IDs() {
		if _, _, _, err := n.estimate(id); err != nil {
			return err
		}
	}
	return nil
}

// IsProbabilistic reports whether every node has op, mo and pe.
func (n *Network) IsProbabilistic() bool {
	return n.hasAll("op", "mo", "pe")
}

func (n *Network) estimate(id string) (op, mo, pe float64, err error) {
	p := n.Nodes[id]
	var okOp, okMo, okPe bool
	op, okOp = p.Get("op")
	mo, okMo = p.Get("mo")
	pe, okPe = p.Get("pe")
	if !okOp || !okMo || !okPe {
		return 0, 0, 0, fmt.Errorf("%w: node %q needs numeric op, mo and pe", ErrValidation, id)
	}
	return op, mo, pe, validateEstimate(op, mo, pe)
}

// ProjectVariance sums the task variances along the critical path.
func (n *Network) ProjectVariance() (float64, error) {
	path, err := n.CriticalPath()
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, id := range path {
		op, mo, pe, err := n.estimate(id)
		if err != nil {
			return 0, err
		}
		v, _ := TaskVariance(op, mo, pe)
		total += v
	}
	return total, nil
}

// ProjectStdDev is the square root of ProjectVariance.
func (n *Network) ProjectStdDev() (float64, error) {
	v, err := n.ProjectVariance()
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// CompletionProbability is P(project finishes by t) under the normal
// approximation Φ((t - te)/σ). A zero σ degenerates to a step.
func (n *Network) CompletionProbability(t float64) (float64, error) {
	te, err := n.ProjectDuration()
	if err != nil {
		return 0, err
	}
	sigma, err := n.ProjectStdDev()
	if err != nil {
		return 0, err
	}
	if sigma == 0 {
		if t >= te {
			return 1, nil
		}
		return 0, nil
	}
	return distuv.UnitNormal.CDF((t - te) / sigma), nil
}

// TimeForProbability is the completion time reached with probability p,
// te + Φ⁻¹(p)·σ.
func (n *Network) TimeForProbability(p float64) (float64, error) {
	if p < 0 || p > 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("%w: probability %g must be in [0, 1]", ErrValidation, p)
	}
	te, err := n.ProjectDuration()
	if err != nil {
		return 0, err
	}
	sigma, err := n.ProjectStdDev()
	if err != nil {
		return 0, err
	}
	if sigma == 0 {
		return te, nil
	}
	return te + distuv.UnitNormal.Quantile(p)*sigma, nil
}

// Analysis is the combined result of a PERT run.
type Analysis struct {
	Network      *Network
	CriticalPath []string
	Duration     float64

	// Probabilistic is set when every task has a three-point estimate, in
	// which case Variance and StdDev are filled in.
	Probabilistic bool
	Variance      float64
	StdDev        float64
}

// Analyze runs the full CPM pipeline on a copy of the network and adds
// the probabilistic summary when estimates are available.
func (n *Network) Analyze() (*Analysis, error) {
	work := n.Clone()
	if err := work.CalculateSlack(); err != nil {
		return nil, err
	}
	path, err := work.CriticalPath()
	if err != nil {
		return nil, err
	}
	total, err := work.ProjectDuration()
	if err != nil {
		return nil, err
	}

	a := &Analysis{
		Network:      work,
		CriticalPath: path,
		Duration:     total,
	}
	if work.IsProbabilistic() {
		if err := work.ValidateProbabilistic(); err != nil {
			return nil, err
		}
		if a.Variance, err = work.ProjectVariance(); err != nil {
			return nil, err
		}
		a.StdDev = math.Sqrt(a.Variance)
		a.Probabilistic = true
	}
	return a, nil
}
