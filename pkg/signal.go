package sigproc

import (
	"errors"
	"fmt"
	"golang.org/x/exp/slices"
)

// Unit is a physical unit tag attached to a signal's samples, e.g. "mV" or
// "uV". The normalizer does not interpret units beyond replacing them with
// Dimensionless.
type Unit string

// Dimensionless is the unit of a normalized signal: value 1, no physical
// dimension.
const Dimensionless Unit = "1"

type Dtype int

const (
	Float64 Dtype = iota
	Int64
)

func (d Dtype) String() string {
	switch d {
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	}
	return fmt.Sprintf("Dtype(%d)", int(d))
}

// Signal is the capability contract a container must satisfy to be
// normalized: read access to samples, unit, dtype, and shape; write access to
// samples and unit for in-place work; and construction of a float64 duplicate
// carrying the same auxiliary metadata. Samples are exchanged as row-major
// (time x channel) float64 slices.
type Signal interface {
	Shape() (n, channels int)
	Dtype() Dtype
	Unit() Unit
	SetUnit(u Unit)
	Floats() []float64
	SetFloats(vals []float64) error
	WithFloats(u Unit, vals []float64) Signal
}

var BadShapeError = errors.New("bad shape")

// AnalogSignal is a regularly sampled time series: one or more channels of
// numeric samples with a unit tag, a start time, and a sampling rate. Storage
// is row-major time x channel, backed by float64 or int64 depending on the
// dtype chosen at construction.
type AnalogSignal struct {
	unit     Unit
	dtype    Dtype
	channels int
	tStart   float64
	rate     float64
	floats   []float64
	ints     []int64
}

// NewAnalogSignal builds a float64-backed signal from row-major samples.
// Pass channels = 1 for a single-channel signal; a flat length-N slice and an
// explicit Nx1 layout are the same thing here. tStart is in seconds, rate in
// Hz.
func NewAnalogSignal(samples []float64, channels int, unit Unit, tStart, rate float64) (*AnalogSignal, error) {
	if e := checkLayout(len(samples), channels); e != nil {
		return nil, fmt.Errorf("NewAnalogSignal: %w", e)
	}
	return &AnalogSignal{
		unit:     unit,
		dtype:    Float64,
		channels: channels,
		tStart:   tStart,
		rate:     rate,
		floats:   slices.Clone(samples),
	}, nil
}

// NewIntAnalogSignal builds an int64-backed signal. In-place normalization of
// an integer-backed signal truncates the z-scores on write-back; see
// SetFloats.
func NewIntAnalogSignal(samples []int64, channels int, unit Unit, tStart, rate float64) (*AnalogSignal, error) {
	if e := checkLayout(len(samples), channels); e != nil {
		return nil, fmt.Errorf("NewIntAnalogSignal: %w", e)
	}
	return &AnalogSignal{
		unit:     unit,
		dtype:    Int64,
		channels: channels,
		tStart:   tStart,
		rate:     rate,
		ints:     slices.Clone(samples),
	}, nil
}

func checkLayout(nvals, channels int) error {
	if channels < 1 {
		return fmt.Errorf("channels %v < 1: %w", channels, BadShapeError)
	}
	if nvals%channels != 0 {
		return fmt.Errorf("%v samples not divisible by %v channels: %w", nvals, channels, BadShapeError)
	}
	return nil
}

func (s *AnalogSignal) Shape() (n, channels int) {
	return s.nsamples(), s.channels
}

func (s *AnalogSignal) nsamples() int {
	if s.dtype == Int64 {
		return len(s.ints) / s.channels
	}
	return len(s.floats) / s.channels
}

func (s *AnalogSignal) Dtype() Dtype {
	return s.dtype
}

func (s *AnalogSignal) Unit() Unit {
	return s.unit
}

func (s *AnalogSignal) SetUnit(u Unit) {
	s.unit = u
}

func (s *AnalogSignal) TStart() float64 {
	return s.tStart
}

func (s *AnalogSignal) SamplingRate() float64 {
	return s.rate
}

// At returns the sample at time index i, channel ch, as a float64 regardless
// of the storage dtype.
func (s *AnalogSignal) At(i, ch int) float64 {
	if s.dtype == Int64 {
		return float64(s.ints[i*s.channels+ch])
	}
	return s.floats[i*s.channels+ch]
}

// Floats returns a row-major copy of the samples as float64. Mutating the
// returned slice does not affect the signal.
func (s *AnalogSignal) Floats() []float64 {
	if s.dtype == Int64 {
		out := make([]float64, len(s.ints))
		for i, v := range s.ints {
			out[i] = float64(v)
		}
		return out
	}
	return slices.Clone(s.floats)
}

// SetFloats overwrites the stored samples in place, keeping the signal's
// identity, shape, and dtype. Integer-backed storage truncates each value
// toward zero; real-valued results written into an int64 signal lose their
// fractional part. That loss is the documented cost of mutating fixed-width
// storage in place.
func (s *AnalogSignal) SetFloats(vals []float64) error {
	n := len(s.floats)
	if s.dtype == Int64 {
		n = len(s.ints)
	}
	if len(vals) != n {
		return fmt.Errorf("SetFloats: got %v vals, storage holds %v: %w", len(vals), n, BadShapeError)
	}
	if s.dtype == Int64 {
		for i, v := range vals {
			s.ints[i] = int64(v)
		}
		return nil
	}
	copy(s.floats, vals)
	return nil
}

// WithFloats builds a new float64-backed signal with the given unit and
// samples, preserving the receiver's shape, start time, and sampling rate.
// The result is float64 even when the receiver is integer-backed.
func (s *AnalogSignal) WithFloats(u Unit, vals []float64) Signal {
	return &AnalogSignal{
		unit:     u,
		dtype:    Float64,
		channels: s.channels,
		tStart:   s.tStart,
		rate:     s.rate,
		floats:   slices.Clone(vals),
	}
}

// Times returns the timestamp in seconds of each sample row.
func (s *AnalogSignal) Times() []float64 {
	n := s.nsamples()
	out := make([]float64, n)
	for i := range out {
		out[i] = s.tStart + float64(i)/s.rate
	}
	return out
}

// Duration is the length of the signal in seconds.
func (s *AnalogSignal) Duration() float64 {
	return float64(s.nsamples()) / s.rate
}
