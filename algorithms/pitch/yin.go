package pitch

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/melodia/algorithms/common"
	"github.com/RyanBlaney/melodia/algorithms/spectral"
)

// Params contains parameters for the YIN pitch detector
type Params struct {
	SampleRate int `json:"sample_rate"`
	FrameSize  int `json:"frame_size"` // analysis window length: frequency resolution vs latency
	HopSize    int `json:"hop_size"`   // update rate

	// Frequency range constraints bounding the instrument's expected range
	MinFreq float64 `json:"min_freq"` // Hz
	MaxFreq float64 `json:"max_freq"` // Hz

	// YinThreshold is the absolute threshold on the cumulative mean
	// normalized difference function (0.1-0.5 is the useful range)
	YinThreshold float64 `json:"yin_threshold"`

	// VoicingThreshold is the minimum confidence to declare a frame voiced
	VoicingThreshold float64 `json:"voicing_threshold"`

	// SilenceRMS is the amplitude floor below which a frame is unvoiced
	// regardless of periodicity
	SilenceRMS float64 `json:"silence_rms"`

	// Tuning is the reference frequency of A4 in Hz
	Tuning float64 `json:"tuning"`
}

// DefaultParams returns parameters suitable for most monophonic instruments
func DefaultParams(sampleRate int) Params {
	return Params{
		SampleRate:       sampleRate,
		FrameSize:        2048,
		HopSize:          512,
		MinFreq:          80.0,
		MaxFreq:          2000.0,
		YinThreshold:     0.15,
		VoicingThreshold: 0.45,
		SilenceRMS:       0.01,
		Tuning:           common.DefaultTuning,
	}
}

// Validate rejects parameter combinations a session cannot start with
func (p Params) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", p.SampleRate)
	}
	if p.FrameSize <= 0 {
		return fmt.Errorf("frame size must be positive, got %d", p.FrameSize)
	}
	if p.HopSize <= 0 || p.HopSize > p.FrameSize {
		return fmt.Errorf("hop size must be in (0, %d], got %d", p.FrameSize, p.HopSize)
	}
	if p.MinFreq <= 0 || p.MaxFreq <= p.MinFreq {
		return fmt.Errorf("invalid frequency range [%.1f, %.1f]", p.MinFreq, p.MaxFreq)
	}
	if p.YinThreshold <= 0 || p.YinThreshold >= 1 {
		return fmt.Errorf("yin threshold must be in (0, 1), got %.3f", p.YinThreshold)
	}
	if p.VoicingThreshold < 0 || p.VoicingThreshold > 1 {
		return fmt.Errorf("voicing threshold must be in [0, 1], got %.3f", p.VoicingThreshold)
	}
	if p.SilenceRMS < 0 {
		return fmt.Errorf("silence RMS must be non-negative, got %.4f", p.SilenceRMS)
	}
	if p.Tuning <= 0 {
		return fmt.Errorf("tuning must be positive, got %.1f", p.Tuning)
	}
	// The largest period we search for has to fit inside the frame
	// with room for the difference function to accumulate evidence.
	if maxTau := int(float64(p.SampleRate) / p.MinFreq); maxTau >= p.FrameSize/2 {
		return fmt.Errorf("min frequency %.1f Hz needs a period of %d samples, frame of %d can resolve at most %d",
			p.MinFreq, maxTau, p.FrameSize, p.FrameSize/2-1)
	}
	return nil
}

// HopSeconds returns the real-time cadence between successive estimates
func (p Params) HopSeconds() float64 {
	return float64(p.HopSize) / float64(p.SampleRate)
}

// Estimate is the per-frame result: one per AudioFrame, time-monotonic
// across a stream. Voiced=false means no fundamental was found; Frequency
// and MidiNum are zero in that case and Confidence says how close the best
// periodicity candidate came.
type Estimate struct {
	Time       float64 `json:"time"`       // frame start, seconds from recording start
	Frequency  float64 `json:"frequency"`  // Hz, 0 when unvoiced
	MidiNum    float64 `json:"midi_num"`   // real-valued MIDI number, 0 when unvoiced
	Confidence float64 `json:"confidence"` // periodicity strength (0-1)
	Amplitude  float64 `json:"amplitude"`  // frame RMS
	Voiced     bool    `json:"voiced"`
}

// Detector implements the YIN pitch detection algorithm with an FFT-based
// difference function.
//
// References:
// - de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental frequency estimator for speech and music"
// - Mauch, M., Dixon, S. (2014). "pYIN: A fundamental frequency estimator using probabilistic threshold distributions"
//
// A Detector is a pure function of frame plus configuration: it holds only
// preallocated scratch buffers, no cross-frame state, so estimates never
// depend on call history.
type Detector struct {
	params Params

	tauMin int
	tauMax int

	// Scratch buffers reused across frames to stay allocation-free on the
	// real-time path
	prefix []float64
	diff   []float64
	cmndf  []float64
}

// NewDetector creates a detector, validating the parameters
func NewDetector(params Params) (*Detector, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("pitch detector config: %w", err)
	}

	tauMin := int(float64(params.SampleRate) / params.MaxFreq)
	if tauMin < 2 {
		tauMin = 2
	}
	tauMax := int(math.Ceil(float64(params.SampleRate)/params.MinFreq)) + 1
	if tauMax > params.FrameSize/2 {
		tauMax = params.FrameSize / 2
	}

	return &Detector{
		params: params,
		tauMin: tauMin,
		tauMax: tauMax,
		prefix: make([]float64, params.FrameSize+1),
		diff:   make([]float64, tauMax),
		cmndf:  make([]float64, tauMax),
	}, nil
}

// Params returns the detector configuration
func (d *Detector) Params() Params {
	return d.params
}

// ProcessFrame turns one fixed-size audio frame into a pitch estimate.
// startTime is the frame's start in seconds from recording start. Frames of
// the wrong length yield an unvoiced estimate rather than an error; on the
// steady-state path low confidence is the signal, not failure.
func (d *Detector) ProcessFrame(frame []float64, startTime float64) Estimate {
	est := Estimate{Time: startTime}

	if len(frame) != d.params.FrameSize {
		return est
	}

	est.Amplitude = common.RMS(frame)
	if est.Amplitude < d.params.SilenceRMS {
		return est
	}

	// The difference function operates on the raw frame: tapering the frame
	// here would modulate the signal within one period lag and inflate the
	// CMNDF troughs for low notes.
	d.differenceFunction(frame)
	d.cumulativeMeanNormalized()

	tau, found := d.absoluteThreshold()
	if tau <= 0 {
		return est
	}

	confidence := common.Clamp(1.0-d.cmndf[tau], 0, 1)
	est.Confidence = confidence

	if !found || confidence < d.params.VoicingThreshold {
		return est
	}

	period := parabolicInterpolation(d.cmndf, tau)
	if period <= 0 {
		return est
	}

	frequency := float64(d.params.SampleRate) / period
	if frequency < d.params.MinFreq || frequency > d.params.MaxFreq {
		return est
	}

	est.Frequency = frequency
	est.MidiNum = common.FreqToMidi(frequency, d.params.Tuning)
	est.Voiced = true
	return est
}

// differenceFunction fills d.diff with the YIN difference function
// d(tau) = sum_j (x_j - x_{j+tau})^2 for tau in [0, tauMax), computed as
// e_head(tau) + e_tail(tau) - 2*r(tau) with the autocorrelation r obtained
// via FFT (Wiener-Khinchin).
func (d *Detector) differenceFunction(x []float64) {
	n := len(x)

	d.prefix[0] = 0
	for i, v := range x {
		d.prefix[i+1] = d.prefix[i] + v*v
	}

	corr := spectral.Autocorrelation(x, d.tauMax)

	d.diff[0] = 0
	for tau := 1; tau < d.tauMax; tau++ {
		head := d.prefix[n-tau]
		tail := d.prefix[n] - d.prefix[tau]
		v := head + tail - 2*corr[tau]
		if v < 0 {
			v = 0 // numeric noise from the FFT round-trip
		}
		d.diff[tau] = v
	}
}

// cumulativeMeanNormalized fills d.cmndf, the YIN normalization that biases
// against the zero-lag trough
func (d *Detector) cumulativeMeanNormalized() {
	d.cmndf[0] = 1.0

	runningSum := 0.0
	for tau := 1; tau < d.tauMax; tau++ {
		runningSum += d.diff[tau]
		if runningSum <= 0 {
			d.cmndf[tau] = 1.0
			continue
		}
		d.cmndf[tau] = d.diff[tau] * float64(tau) / runningSum
	}
}

// absoluteThreshold returns the first local minimum of the CMNDF below the
// YIN threshold within the configured lag range. When no trough dips under
// the threshold it falls back to the global minimum with found=false, so the
// caller still gets a confidence reading for the frame.
func (d *Detector) absoluteThreshold() (tau int, found bool) {
	for t := d.tauMin; t < d.tauMax; t++ {
		if d.cmndf[t] < d.params.YinThreshold {
			// Walk down to the bottom of this trough
			for t+1 < d.tauMax && d.cmndf[t+1] < d.cmndf[t] {
				t++
			}
			return t, true
		}
	}

	best := -1
	bestVal := math.Inf(1)
	for t := d.tauMin; t < d.tauMax; t++ {
		if d.cmndf[t] < bestVal {
			bestVal = d.cmndf[t]
			best = t
		}
	}
	return best, false
}

// parabolicInterpolation refines a trough position to sub-sample accuracy
func parabolicInterpolation(data []float64, troughIdx int) float64 {
	if troughIdx <= 0 || troughIdx >= len(data)-1 {
		return float64(troughIdx)
	}

	y1 := data[troughIdx-1]
	y2 := data[troughIdx]
	y3 := data[troughIdx+1]

	denominator := 2 * (y1 - 2*y2 + y3)
	if denominator == 0 {
		return float64(troughIdx)
	}

	return float64(troughIdx) + (y1-y3)/denominator
}
