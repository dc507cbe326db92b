package domain

import (
	"errors"
	"fmt"
)

// Policy holds the scoring thresholds and severity bands of an analysis.
type Policy struct {
	LocalThreshold float64 `yaml:"local_threshold" json:"local_threshold"`
	WebThreshold   float64 `yaml:"web_threshold" json:"web_threshold"`
	ModerateAbove  float64 `yaml:"moderate_above" json:"moderate_above"`
	CriticalAbove  float64 `yaml:"critical_above" json:"critical_above"`
	TopK           int     `yaml:"top_k" json:"top_k"`
	MinTextLength  int     `yaml:"min_text_length" json:"min_text_length"`
}

func DefaultPolicy() Policy {
	return Policy{
		LocalThreshold: 0.4,
		WebThreshold:   0.3,
		ModerateAbove:  0.5,
		CriticalAbove:  0.8,
		TopK:           5,
		MinTextLength:  50,
	}
}

func (p Policy) Validate() error {
	for name, v := range map[string]float64{
		"local_threshold": p.LocalThreshold,
		"web_threshold":   p.WebThreshold,
		"moderate_above":  p.ModerateAbove,
		"critical_above":  p.CriticalAbove,
	} {
		if v < -1 || v > 1 {
			return WrapError(ErrInvalidInput, "validate policy", fmt.Errorf("%s=%v outside [-1, 1]", name, v))
		}
	}
	if p.ModerateAbove >= p.CriticalAbove {
		return WrapError(ErrInvalidInput, "validate policy", errors.New("moderate_above must be below critical_above"))
	}
	if p.TopK <= 0 {
		return WrapError(ErrInvalidInput, "validate policy", errors.New("top_k must be positive"))
	}
	if p.MinTextLength < 0 {
		return WrapError(ErrInvalidInput, "validate policy", errors.New("min_text_length must not be negative"))
	}
	return nil
}

// Threshold returns the exclusive lower bound a match from origin must exceed.
func (p Policy) Threshold(origin Origin) float64 {
	if origin == OriginWeb {
		return p.WebThreshold
	}
	return p.LocalThreshold
}

// Classify maps the top score of a report onto exactly one severity band.
func (p Policy) Classify(maxScore float64) Severity {
	switch {
	case maxScore > p.CriticalAbove:
		return SeverityCritical
	case maxScore > p.ModerateAbove:
		return SeverityModerate
	default:
		return SeverityClean
	}
}
