package ppg

// Smooth applies one step of a single-pole exponential smoother.
func Smooth(prev, raw, alpha float64) float64 {
	return prev + alpha*(raw-prev)
}

// LowPass is a first-order IIR smoother. Small alpha smooths heavily; alpha
// close to 1 passes the input through almost unchanged.
type LowPass struct {
	alpha float64
	value float64
}

// NewLowPass returns a filter starting at initial.
func NewLowPass(alpha, initial float64) *LowPass {
	return &LowPass{alpha: alpha, value: initial}
}

// Apply feeds one raw value and returns the new filtered value.
func (f *LowPass) Apply(raw float64) float64 {
	f.value = Smooth(f.value, raw, f.alpha)
	return f.value
}

// Value returns the current filtered value.
func (f *LowPass) Value() float64 { return f.value }

// Reset sets the filtered value to v.
func (f *LowPass) Reset(v float64) { f.value = v }
