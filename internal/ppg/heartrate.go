package ppg

// noPeak marks a peak index that has not been set. The refractory gate is
// open while lastPeak is noPeak, so no arithmetic is done on it.
const noPeak = -1

// DetectionKind classifies what one estimator step observed.
type DetectionKind int

const (
	// DetectionNone means no rising-edge crossing on this sample.
	DetectionNone DetectionKind = iota
	// DetectionRefractory is a crossing inside the refractory window; it was
	// ignored.
	DetectionRefractory
	// DetectionFirstPeak is an accepted peak with no earlier peak to measure
	// an interval against.
	DetectionFirstPeak
	// DetectionImplausible is an accepted peak whose interval gave a heart
	// rate outside the plausible bounds.
	DetectionImplausible
	// DetectionAccepted is an accepted peak that updated the heart rate.
	DetectionAccepted
)

func (k DetectionKind) String() string {
	switch k {
	case DetectionNone:
		return "none"
	case DetectionRefractory:
		return "refractory"
	case DetectionFirstPeak:
		return "first_peak"
	case DetectionImplausible:
		return "implausible"
	case DetectionAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// Detection is the result of one Estimator.Update call.
type Detection struct {
	Kind        DetectionKind
	SampleIndex int
	// IntervalSamples, InstantBPM are set for implausible and accepted
	// detections; FilteredBPM only for accepted ones.
	IntervalSamples int
	InstantBPM      float64
	FilteredBPM     float64
}

// Estimator is a level-crossing beat detector with a fixed threshold and a
// refractory window measured in samples.
type Estimator struct {
	threshold    float64
	sampleRate   float64
	refractory   int
	minBPM       float64
	maxBPM       float64
	hrAlpha      float64
	seedFiltered bool

	sampleIndex  int
	lastPeak     int
	prevPeak     int
	prevFiltered float64

	hr         float64
	hrFiltered float64
	accepted   int
}

// NewEstimator builds an estimator from cfg. cfg is assumed to be valid.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{
		threshold:    cfg.PeakThreshold,
		sampleRate:   cfg.SampleRateHz,
		refractory:   cfg.RefractorySamples(),
		minBPM:       cfg.MinBPM,
		maxBPM:       cfg.MaxBPM,
		hrAlpha:      cfg.HRAlpha,
		seedFiltered: cfg.SeedHRFilter,
		lastPeak:     noPeak,
		prevPeak:     noPeak,
	}
}

// Update advances the detector by one filtered sample.
func (e *Estimator) Update(filtered float64) Detection {
	d := Detection{SampleIndex: e.sampleIndex}

	if e.prevFiltered < e.threshold && filtered >= e.threshold {
		if e.lastPeak == noPeak || e.sampleIndex-e.lastPeak > e.refractory {
			e.prevPeak = e.lastPeak
			e.lastPeak = e.sampleIndex
			d = e.measure(d)
		} else {
			d.Kind = DetectionRefractory
		}
	}

	e.prevFiltered = filtered
	e.sampleIndex++
	return d
}

func (e *Estimator) measure(d Detection) Detection {
	if e.prevPeak == noPeak {
		d.Kind = DetectionFirstPeak
		return d
	}

	d.IntervalSamples = e.lastPeak - e.prevPeak
	period := float64(d.IntervalSamples) / e.sampleRate
	d.InstantBPM = 60 / period

	if !(d.InstantBPM > e.minBPM && d.InstantBPM < e.maxBPM) {
		d.Kind = DetectionImplausible
		return d
	}

	e.hr = d.InstantBPM
	if e.seedFiltered && e.accepted == 0 {
		e.hrFiltered = d.InstantBPM
	} else {
		e.hrFiltered = Smooth(e.hrFiltered, d.InstantBPM, e.hrAlpha)
	}
	e.accepted++

	d.Kind = DetectionAccepted
	d.FilteredBPM = e.hrFiltered
	return d
}

// HeartRate returns the latest accepted instantaneous rate and its smoothed
// value. Both are zero until a rate has been accepted.
func (e *Estimator) HeartRate() (instant, filtered float64) {
	return e.hr, e.hrFiltered
}

// SampleIndex is the number of samples seen so far.
func (e *Estimator) SampleIndex() int { return e.sampleIndex }

// RefractorySamples is the gate width derived at construction.
func (e *Estimator) RefractorySamples() int { return e.refractory }

// Peaks returns the last and previous peak indices. ok is false until at
// least one peak has been accepted; prev is -1 while only one is known.
func (e *Estimator) Peaks() (last, prev int, ok bool) {
	if e.lastPeak == noPeak {
		return -1, -1, false
	}
	prev = e.prevPeak
	if prev == noPeak {
		prev = -1
	}
	return e.lastPeak, prev, true
}
