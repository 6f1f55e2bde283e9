package tracker

import (
	"fmt"

	"github.com/RyanBlaney/melodia/algorithms/align"
	"github.com/RyanBlaney/melodia/algorithms/pitch"
	"github.com/RyanBlaney/melodia/algorithms/scoring"
	"github.com/RyanBlaney/melodia/algorithms/segment"
	"github.com/RyanBlaney/melodia/model"
)

// ConfigError reports which part of a session configuration was rejected
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid session config (%s): %s", e.Field, e.Reason)
}

// Config bundles the tuning of every pipeline stage for one session.
// The callbacks are optional taps on the real-time path and are invoked
// synchronously from ProcessSamples, so they must be cheap.
//
// The match tolerances live on Costs only; the scorer classifying outcomes
// uses those same values, so alignment and classification cannot disagree
// on what counts as in tolerance.
type Config struct {
	Pitch   pitch.Params   `json:"pitch"`
	Segment segment.Config `json:"segment"`
	Costs   align.Costs    `json:"costs"`

	// FrontierLag is how many trailing performed notes stay provisional
	// before their alignment is allowed to settle
	FrontierLag int `json:"frontier_lag"`

	OnEstimate func(pitch.Estimate) `json:"-"`
	OnNote     func(model.Note)     `json:"-"`
}

// DefaultConfig returns a config tuned for monophonic instrument tracking
// at the given sample rate
func DefaultConfig(sampleRate int) Config {
	return Config{
		Pitch:       pitch.DefaultParams(sampleRate),
		Segment:     segment.DefaultConfig(),
		Costs:       align.DefaultCosts(),
		FrontierLag: 2,
	}
}

// scorer builds the outcome classifier from the alignment tolerances
func (c Config) scorer() scoring.Scorer {
	return scoring.Scorer{
		PitchToleranceSemitones: c.Costs.PitchToleranceSemitones,
		OnsetToleranceSeconds:   c.Costs.OnsetToleranceSeconds,
	}
}

// Validate checks every stage's parameters before a session starts
func (c Config) Validate() error {
	if err := c.Pitch.Validate(); err != nil {
		return &ConfigError{Field: "pitch", Reason: err.Error()}
	}
	if err := c.Segment.Validate(); err != nil {
		return &ConfigError{Field: "segment", Reason: err.Error()}
	}
	if err := c.Costs.Validate(); err != nil {
		return &ConfigError{Field: "costs", Reason: err.Error()}
	}
	if err := c.scorer().Validate(); err != nil {
		return &ConfigError{Field: "costs", Reason: err.Error()}
	}
	if c.FrontierLag < 0 {
		return &ConfigError{Field: "frontier_lag", Reason: "must be non-negative"}
	}
	return nil
}
