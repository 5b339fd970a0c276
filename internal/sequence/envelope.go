package sequence

// clamp01 clamps x in [0,1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// smootherstep (cubic-ish) for ease="cubic"
func smootherstep(x float64) float64 {
	// 6x^5 - 15x^4 + 10x^3
	return x * x * x * (x*(x*6-15) + 10)
}

func easeApply(kind string, x float64) float64 {
	switch kind {
	case "smooth":
		return x * x * (3 - 2*x)
	case "cubic":
		return smootherstep(x)
	default:
		return x
	}
}

// Eval returns the value of the envelope at time t (seconds).
// With no keys it returns def; before the first and after the last key it
// holds the nearest value.
func (e Envelope) Eval(t, def float64) float64 {
	n := len(e)
	if n == 0 {
		return def
	}
	if t <= e[0].T {
		return e[0].V
	}
	if t >= e[n-1].T {
		return e[n-1].V
	}
	for i := 0; i < n-1; i++ {
		a, b := e[i], e[i+1]
		if t >= a.T && t <= b.T {
			den := b.T - a.T
			if den <= 0 {
				return b.V
			}
			u := easeApply(a.Ease, clamp01((t-a.T)/den))
			return a.V + (b.V-a.V)*u
		}
	}
	return e[n-1].V
}
