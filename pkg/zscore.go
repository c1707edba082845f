package sigproc

import (
	"errors"
	"fmt"
	"github.com/jgbaldwinbrown/iterh"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"iter"
)

// Mode selects the side-effect contract of a normalization call.
type Mode int

const (
	// Duplicate leaves the inputs untouched and returns new float64-backed
	// signals.
	Duplicate Mode = iota
	// InPlace overwrites each input's sample storage and returns the same
	// objects. Integer-backed storage truncates the z-scores on write-back.
	InPlace
)

var EmptyInputError = errors.New("empty input")
var ShapeMismatchError = errors.New("shape mismatch")

type channelStats struct {
	Mean float64
	Sd   float64
}

// channelVals walks channel ch of every buffer in order, pooling the group's
// samples along the time axis.
func channelVals(bufs [][]float64, ch, channels int) iter.Seq[float64] {
	return func(y func(float64) bool) {
		for _, buf := range bufs {
			for i := ch; i < len(buf); i += channels {
				if !y(buf[i]) {
					return
				}
			}
		}
	}
}

func pooledStats(bufs [][]float64, channels int) ([]channelStats, error) {
	out := make([]channelStats, 0, channels)
	for ch := 0; ch < channels; ch++ {
		vals := iterh.Collect(channelVals(bufs, ch, channels))
		mean, e := stats.Mean(vals)
		if e != nil {
			return nil, e
		}
		sd, e := stats.StandardDeviationPopulation(vals)
		if e != nil {
			return nil, e
		}
		out = append(out, channelStats{mean, sd})
	}
	return out, nil
}

// zscoreBuf rewrites buf channel by channel as (x - mean) / sd. A channel
// with sd == 0 comes out all NaN (0 / 0).
func zscoreBuf(buf []float64, channels int, cs []channelStats) {
	n := len(buf) / channels
	col := make([]float64, n)
	for ch := 0; ch < channels; ch++ {
		for i := 0; i < n; i++ {
			col[i] = buf[i*channels+ch]
		}
		floats.AddConst(-cs[ch].Mean, col)
		floats.Scale(1/cs[ch].Sd, col)
		for i := 0; i < n; i++ {
			buf[i*channels+ch] = col[i]
		}
	}
}

func checkShapes(sigs []Signal) (n, channels int, err error) {
	if len(sigs) == 0 {
		return 0, 0, fmt.Errorf("no signals: %w", EmptyInputError)
	}
	n, channels = sigs[0].Shape()
	if n == 0 || channels == 0 {
		return 0, 0, fmt.Errorf("signal 0 has shape %vx%v: %w", n, channels, EmptyInputError)
	}
	for i, sig := range sigs[1:] {
		ni, ci := sig.Shape()
		if ni == 0 || ci == 0 {
			return 0, 0, fmt.Errorf("signal %v has shape %vx%v: %w", i+1, ni, ci, EmptyInputError)
		}
		if ni != n || ci != channels {
			return 0, 0, fmt.Errorf("signal %v has shape %vx%v, signal 0 has %vx%v: %w", i+1, ni, ci, n, channels, ShapeMismatchError)
		}
	}
	return n, channels, nil
}

// ZScorePooled normalizes a group of signals that must share one statistic
// per channel: for each channel, the mean and population standard deviation
// (divisor = count) are computed over the samples of every signal in the
// group pooled along the time axis, then applied to each signal separately.
// All signals must share both sample count and channel count.
//
// The result always carries the Dimensionless unit, whatever the input units
// were. In Duplicate mode the results are new float64-backed signals and the
// inputs are untouched. In InPlace mode each input's storage is overwritten
// and the same objects are returned in order; integer-backed inputs keep
// their dtype, so the z-scores are truncated toward zero on write-back. The
// caller must not read or write an input's storage concurrently with an
// InPlace call; no locking or snapshotting is done.
//
// A zero-variance channel is not an error: every sample of a constant
// channel normalizes to NaN (0 / 0). All precondition failures are detected
// before any storage is written, so a failed call leaves every input
// unchanged.
func ZScorePooled(sigs []Signal, mode Mode) ([]Signal, error) {
	h := func(e error) ([]Signal, error) {
		return nil, fmt.Errorf("ZScorePooled: %w", e)
	}

	_, channels, e := checkShapes(sigs)
	if e != nil {
		return h(e)
	}

	bufs := make([][]float64, 0, len(sigs))
	for _, sig := range sigs {
		bufs = append(bufs, sig.Floats())
	}

	cs, e := pooledStats(bufs, channels)
	if e != nil {
		return h(e)
	}

	out := make([]Signal, 0, len(sigs))
	for i, sig := range sigs {
		zscoreBuf(bufs[i], channels, cs)
		if mode == InPlace {
			if e := sig.SetFloats(bufs[i]); e != nil {
				return h(e)
			}
			sig.SetUnit(Dimensionless)
			out = append(out, sig)
			continue
		}
		out = append(out, sig.WithFloats(Dimensionless, bufs[i]))
	}
	return out, nil
}

// ZScore normalizes a single signal: a group of size 1. See ZScorePooled for
// the mode, unit, dtype, and zero-variance contracts.
func ZScore(sig Signal, mode Mode) (Signal, error) {
	out, e := ZScorePooled([]Signal{sig}, mode)
	if e != nil {
		return nil, fmt.Errorf("ZScore: %w", e)
	}
	return out[0], nil
}
