package qnm

// SolarMassSeconds is G*Msun/c^3, the light-crossing time of one solar mass.
const SolarMassSeconds = 4.925490947641267e-6

// Coefficient is one row of a mode table: the complex frequency M*omega of
// the mode for a remnant of dimensionless spin Spin, with the convention
// omega = Re - i*Im.
type Coefficient struct {
	Spin float64
	Re   float64
	Im   float64
}

// Kerr220 lists the fundamental l=m=2 Kerr mode from Leaver's continued
// fraction. Re rises and Im falls monotonically with spin.
var Kerr220 = []Coefficient{
	{Spin: 0.00, Re: 0.373672, Im: 0.088962},
	{Spin: 0.10, Re: 0.387018, Im: 0.088706},
	{Spin: 0.20, Re: 0.402145, Im: 0.088311},
	{Spin: 0.30, Re: 0.419527, Im: 0.087729},
	{Spin: 0.40, Re: 0.439842, Im: 0.086882},
	{Spin: 0.50, Re: 0.464123, Im: 0.085639},
	{Spin: 0.60, Re: 0.494045, Im: 0.083765},
	{Spin: 0.70, Re: 0.532600, Im: 0.080793},
	{Spin: 0.80, Re: 0.586017, Im: 0.075630},
	{Spin: 0.90, Re: 0.671614, Im: 0.064869},
	{Spin: 0.95, Re: 0.746320, Im: 0.053149},
	{Spin: 0.98, Re: 0.825429, Im: 0.038630},
	{Spin: 0.99, Re: 0.870893, Im: 0.029390},
}

func columns(table []Coefficient) (spin, re, im []float64) {
	spin = make([]float64, len(table))
	re = make([]float64, len(table))
	im = make([]float64, len(table))
	for i, c := range table {
		spin[i], re[i], im[i] = c.Spin, c.Re, c.Im
	}

	return spin, re, im
}
