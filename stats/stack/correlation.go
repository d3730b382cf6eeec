package stack

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Covariate is a per-record quantity a field can be correlated with.
type Covariate int

const (
	Mass Covariate = iota
	// InverseMassSquared tests for a deviation that scales like 1/M^2.
	InverseMassSquared
	Spin
)

func (c Covariate) String() string {
	switch c {
	case Mass:
		return "mass"
	case InverseMassSquared:
		return "inverse_mass_squared"
	case Spin:
		return "spin"
	default:
		return fmt.Sprintf("covariate(%d)", int(c))
	}
}

func (c Covariate) of(s sample) (float64, bool) {
	switch c {
	case Mass:
		return s.mass, s.mass > 0
	case InverseMassSquared:
		return 1 / (s.mass * s.mass), s.mass > 0
	case Spin:
		return s.spin, true
	default:
		return 0, false
	}
}

// Correlation is a Pearson correlation with its two-sided p-value.
type Correlation struct {
	Field     string
	Covariate Covariate
	R         float64
	PValue    float64
	Count     int
}

// Correlation computes the Pearson correlation between field and cov over
// the records that carry both. The p-value tests r = 0 against a Student-t
// distribution with n-2 degrees of freedom.
func (a *Aggregator) Correlation(field string, cov Covariate) (Correlation, error) {
	var x, y []float64
	for _, s := range a.samples(field) {
		v, ok := cov.of(s)
		if !ok {
			continue
		}
		x = append(x, v)
		y = append(y, s.value)
	}

	n := len(x)
	if n < 3 {
		return Correlation{}, fmt.Errorf("stack: %d records for %q vs %v, need 3: %w", n, field, cov, ErrInsufficientRecords)
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return Correlation{}, fmt.Errorf("stack: %q vs %v has zero variance: %w", field, cov, ErrDegenerate)
	}

	r := stat.Correlation(x, y, nil)
	r = math.Max(-1, math.Min(1, r))

	c := Correlation{Field: field, Covariate: cov, R: r, Count: n}
	if 1-r*r <= 0 {
		return c, nil
	}

	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
	c.PValue = 2 * dist.Survival(math.Abs(t))

	return c, nil
}
