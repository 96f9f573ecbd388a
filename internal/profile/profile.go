// Package profile defines reflow time/temperature profiles.
package profile

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidProfile is returned for an empty profile or a segment with a
// non-positive duration.
var ErrInvalidProfile = errors.New("invalid profile")

// Segment holds the plate at TargetC for Duration.
type Segment struct {
	Duration time.Duration
	TargetC  float64
}

// Profile is an ordered list of segments. It is not modified after load.
type Profile struct {
	Name     string
	Segments []Segment
}

// SnPb is the Sn63/Pb37 leaded solder profile.
func SnPb() Profile {
	return Profile{
		Name: "Sn63/Pb37",
		Segments: []Segment{
			{Duration: 50 * time.Second, TargetC: 100},
			{Duration: 45 * time.Second, TargetC: 125},
			{Duration: 45 * time.Second, TargetC: 150},
			{Duration: 30 * time.Second, TargetC: 183},
			{Duration: 60 * time.Second, TargetC: 235},
			{Duration: 30 * time.Second, TargetC: 183},
			{Duration: 60 * time.Second, TargetC: 100},
		},
	}
}

// Validate checks the profile before any actuation.
func (p Profile) Validate() error {
	if len(p.Segments) == 0 {
		return fmt.Errorf("%w: no segments", ErrInvalidProfile)
	}
	for i, s := range p.Segments {
		if s.Duration <= 0 {
			return fmt.Errorf("%w: segment %d has duration %v", ErrInvalidProfile, i, s.Duration)
		}
	}
	return nil
}

// TotalDuration is the sum of all segment durations.
func (p Profile) TotalDuration() time.Duration {
	var d time.Duration
	for _, s := range p.Segments {
		d += s.Duration
	}
	return d
}

// MaxTargetC returns the highest segment target, or 0 for an empty profile.
func (p Profile) MaxTargetC() float64 {
	var max float64
	for i, s := range p.Segments {
		if i == 0 || s.TargetC > max {
			max = s.TargetC
		}
	}
	return max
}

// Ticks returns how many control ticks a segment runs for. A segment shorter
// than one period still gets a single tick.
func Ticks(s Segment, period time.Duration) int {
	if period <= 0 {
		return 1
	}
	n := int(s.Duration / period)
	if n < 1 {
		return 1
	}
	return n
}

// TotalTicks is the number of ticks across every segment.
func (p Profile) TotalTicks(period time.Duration) int {
	n := 0
	for _, s := range p.Segments {
		n += Ticks(s, period)
	}
	return n
}
