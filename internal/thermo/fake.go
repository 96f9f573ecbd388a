package thermo

import (
	"errors"
	"sync"
)

// FakeSensor is a test double that returns scripted temperatures.
type FakeSensor struct {
	mu sync.Mutex

	// Samples contains scripted readings.
	// Each call to ReadTemperature() consumes the next sample.
	Samples []float64

	// index tracks current position in Samples
	index int

	// Reads counts ReadTemperature calls.
	Reads int

	// ReadError, if set, will be returned by ReadTemperature()
	ReadError error

	// FailAt, if positive, makes the FailAt-th read (1-based) return ReadError
	// or a generic error when ReadError is nil.
	FailAt int
}

// NewFakeSensor creates a FakeSensor with the given samples.
func NewFakeSensor(samples ...float64) *FakeSensor {
	return &FakeSensor{Samples: samples}
}

// ReadTemperature returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeSensor) ReadTemperature() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads++
	if f.FailAt > 0 && f.Reads == f.FailAt {
		if f.ReadError != nil {
			return 0, f.ReadError
		}
		return 0, errors.New("scripted sensor failure")
	}
	if f.FailAt == 0 && f.ReadError != nil {
		return 0, f.ReadError
	}

	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Set replaces the script with a single constant reading.
func (f *FakeSensor) Set(c float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Samples = []float64{c}
	f.index = 0
}

// ReadCount returns how many reads were made.
func (f *FakeSensor) ReadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Reads
}
