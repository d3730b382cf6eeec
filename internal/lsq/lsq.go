// Package lsq implements a bound-constrained Levenberg-Marquardt solver for
// small nonlinear least-squares problems.
package lsq

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-ringdown/dsp/core"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Problem describes residuals r(p) of length M over N parameters.
type Problem struct {
	M int

	// Residual writes r(p) into dst.
	Residual func(dst, p []float64)
	// Jacobian writes dr/dp into the M x N matrix dst.
	Jacobian func(dst *mat.Dense, p []float64)

	// Lower and Upper bound every parameter. Nil means unbounded.
	Lower, Upper []float64
}

// Result is the outcome of Solve.
type Result struct {
	Params     []float64
	Cost       float64 // sum of squared residuals
	Iterations int
	Converged  bool

	// Covariance is s^2 (J^T J)^-1 with s^2 = Cost/(M-N). It is nil when
	// J^T J is singular at the solution.
	Covariance *mat.SymDense
	AtBound    []bool
}

// StdErr returns the square root of the i-th covariance diagonal, or NaN
// when no covariance is available.
func (r Result) StdErr(i int) float64 {
	if r.Covariance == nil {
		return math.NaN()
	}
	return math.Sqrt(math.Max(r.Covariance.At(i, i), 0))
}

type settings struct {
	maxIter   int
	costTol   float64
	stepTol   float64
	gradTol   float64
	absTol    float64
	lambda0   float64
	lambdaMax float64
}

// Option configures Solve.
type Option func(*settings)

// WithMaxIterations caps the number of Jacobian evaluations.
func WithMaxIterations(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxIter = n
		}
	}
}

// WithTolerance sets the relative cost-reduction threshold for convergence.
func WithTolerance(tol float64) Option {
	return func(s *settings) {
		if tol > 0 {
			s.costTol = tol
		}
	}
}

// Solve minimizes |r(p)|^2 starting at x0. A parameter resting on a bound
// whose gradient points out of the box is held fixed for the iteration, so
// the step is solved over the free parameters only and then projected into
// the bounds. It returns core.ErrFitDivergence together with the best
// parameters found when the iteration budget runs out or the residuals stop
// being finite.
func Solve(prob Problem, x0 []float64, opts ...Option) (Result, error) {
	s := settings{
		maxIter:   200,
		costTol:   1e-10,
		stepTol:   1e-10,
		gradTol:   1e-10,
		absTol:    1e-28,
		lambda0:   1e-3,
		lambdaMax: 1e16,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	n := len(x0)
	if err := prob.validate(n); err != nil {
		return Result{}, err
	}

	x := make([]float64, n)
	copy(x, x0)
	prob.project(x)

	r := make([]float64, prob.M)
	prob.Residual(r, x)
	cost := floats.Dot(r, r)
	if !core.IsFinite(cost) {
		return Result{Params: x}, fmt.Errorf("lsq: initial residual not finite: %w", core.ErrFitDivergence)
	}

	jac := mat.NewDense(prob.M, n, nil)
	active := make([]bool, n)
	trial := make([]float64, n)
	rTrial := make([]float64, prob.M)
	lambda := s.lambda0

	res := Result{Params: x}
	for res.Iterations < s.maxIter && !res.Converged {
		res.Iterations++

		prob.Jacobian(jac, x)
		jtj := mat.NewSymDense(n, nil)
		jtj.SymOuterK(1, jac.T())
		var grad mat.VecDense
		grad.MulVec(jac.T(), mat.NewVecDense(prob.M, r))

		prob.activeSet(active, x, grad.RawVector().Data)
		if prob.stationary(active, jtj, &grad, cost, s.gradTol) {
			res.Converged = true
			break
		}
		for i, fixed := range active {
			if fixed {
				grad.SetVec(i, 0)
			}
		}

		floor := 1e-12 * maxDiag(jtj)
		if floor == 0 {
			floor = 1e-12
		}

		improved := false
		for !improved {
			if lambda > s.lambdaMax {
				// No descent direction left at machine precision.
				res.Converged = true
				break
			}

			damped := mat.NewSymDense(n, nil)
			damped.CopySym(jtj)
			for i := range n {
				if active[i] {
					for j := range n {
						damped.SetSym(i, j, 0)
					}
					damped.SetSym(i, i, 1)
					continue
				}
				d := jtj.At(i, i)
				damped.SetSym(i, i, d+lambda*math.Max(d, floor))
			}

			var chol mat.Cholesky
			if !chol.Factorize(damped) {
				lambda *= 10
				continue
			}
			var step mat.VecDense
			if err := chol.SolveVecTo(&step, &grad); err != nil {
				lambda *= 10
				continue
			}

			for i := range n {
				trial[i] = x[i] - step.AtVec(i)
			}
			prob.project(trial)

			prob.Residual(rTrial, trial)
			trialCost := floats.Dot(rTrial, rTrial)
			if !core.IsFinite(trialCost) || trialCost >= cost {
				lambda *= 10
				continue
			}

			moved := floats.Distance(trial, x, 2)
			improvement := cost - trialCost

			copy(x, trial)
			copy(r, rTrial)
			cost = trialCost
			lambda = math.Max(lambda/10, 1e-12)
			improved = true

			if improvement <= s.costTol*(cost+improvement) ||
				moved <= s.stepTol*(floats.Norm(x, 2)+s.stepTol) ||
				cost <= s.absTol {
				res.Converged = true
			}
		}
	}

	res.Cost = cost
	res.AtBound = prob.atBound(x)

	if dof := prob.M - n; dof > 0 {
		prob.Jacobian(jac, x)
		jtj := mat.NewSymDense(n, nil)
		jtj.SymOuterK(1, jac.T())
		var chol mat.Cholesky
		if chol.Factorize(jtj) {
			inv := mat.NewSymDense(n, nil)
			if err := chol.InverseTo(inv); err == nil {
				cov := mat.NewSymDense(n, nil)
				cov.ScaleSym(cost/float64(dof), inv)
				res.Covariance = cov
			}
		}
	}

	if !res.Converged {
		return res, fmt.Errorf("lsq: no convergence after %d iterations: %w", res.Iterations, core.ErrFitDivergence)
	}

	return res, nil
}

func (p Problem) validate(n int) error {
	switch {
	case n == 0:
		return fmt.Errorf("lsq: no parameters: %w", core.ErrInvalidParameter)
	case p.M < n:
		return fmt.Errorf("lsq: %d residuals for %d parameters: %w", p.M, n, core.ErrInsufficientSamples)
	case p.Residual == nil || p.Jacobian == nil:
		return fmt.Errorf("lsq: residual and jacobian are required: %w", core.ErrInvalidParameter)
	case p.Lower != nil && len(p.Lower) != n, p.Upper != nil && len(p.Upper) != n:
		return fmt.Errorf("lsq: bounds do not match %d parameters: %w", n, core.ErrInvalidParameter)
	}

	for i := range n {
		lo, hi := p.bounds(i)
		if lo > hi {
			return fmt.Errorf("lsq: parameter %d bounds [%v, %v]: %w", i, lo, hi, core.ErrInvalidParameter)
		}
	}

	return nil
}

func (p Problem) bounds(i int) (lo, hi float64) {
	lo, hi = math.Inf(-1), math.Inf(1)
	if p.Lower != nil {
		lo = p.Lower[i]
	}
	if p.Upper != nil {
		hi = p.Upper[i]
	}
	return lo, hi
}

func (p Problem) project(x []float64) {
	for i := range x {
		lo, hi := p.bounds(i)
		x[i] = core.Clamp(x[i], lo, hi)
	}
}

// activeSet marks the parameters that sit on a bound with a descent
// direction leading out of the box. grad is J^T r, so descent is -grad.
func (p Problem) activeSet(dst []bool, x, grad []float64) {
	for i, v := range x {
		lo, hi := p.bounds(i)
		dst[i] = (v <= lo && grad[i] > 0) || (v >= hi && grad[i] < 0)
	}
}

// stationary reports whether the projected gradient vanishes: every free
// component is negligible against |J_i| |r|.
func (p Problem) stationary(active []bool, jtj *mat.SymDense, grad *mat.VecDense, cost, tol float64) bool {
	for i, fixed := range active {
		if fixed {
			continue
		}
		if math.Abs(grad.AtVec(i)) > tol*math.Sqrt(jtj.At(i, i)*cost) {
			return false
		}
	}
	return true
}

func (p Problem) atBound(x []float64) []bool {
	out := make([]bool, len(x))
	for i, v := range x {
		lo, hi := p.bounds(i)
		eps := 1e-9 * (math.Abs(v) + 1)
		out[i] = math.Abs(v-lo) <= eps || math.Abs(hi-v) <= eps
	}
	return out
}

func maxDiag(a *mat.SymDense) float64 {
	m := 0.0
	for i := range a.SymmetricDim() {
		m = math.Max(m, a.At(i, i))
	}
	return m
}
