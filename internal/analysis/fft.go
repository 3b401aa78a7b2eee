package analysis

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/san-kum/odesolve/internal/dynamo"
	"github.com/san-kum/odesolve/internal/solver"
)

// Spectrum is a one-sided power spectrum.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// PowerSpectrum computes |X_k|^2 / n of evenly spaced samples taken dt apart.
// Frequencies are in cycles per unit time.
func PowerSpectrum(samples []float64, dt float64) (*Spectrum, error) {
	n := len(samples)
	if n < 2 || dt <= 0 {
		return nil, fmt.Errorf("%w: spectrum needs at least two samples and a positive spacing", dynamo.ErrConfiguration)
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, samples)

	ps := &Spectrum{
		Freqs: make([]float64, len(coeffs)),
		Power: make([]float64, len(coeffs)),
	}
	for i, c := range coeffs {
		ps.Freqs[i] = fft.Freq(i) / dt
		a := cmplx.Abs(c)
		ps.Power[i] = a * a / float64(n)
	}
	return ps, nil
}

// DominantFrequency returns the non-zero frequency with the most power.
func (s *Spectrum) DominantFrequency() float64 {
	best, freq := -1.0, 0.0
	for i := 1; i < len(s.Power); i++ {
		if s.Power[i] > best {
			best, freq = s.Power[i], s.Freqs[i]
		}
	}
	return freq
}

// ComponentSpectrum takes the spectrum of one component of solutions recorded
// on a constant grid of spacing dt.
func ComponentSpectrum(solutions []solver.Solution, idx int, dt float64) (*Spectrum, error) {
	samples := make([]float64, len(solutions))
	for i, sol := range solutions {
		if idx < 0 || idx >= len(sol.State) {
			return nil, fmt.Errorf("%w: component %d of %d", dynamo.ErrDimensionMismatch, idx, len(sol.State))
		}
		samples[i] = sol.State[idx]
	}
	return PowerSpectrum(samples, dt)
}
