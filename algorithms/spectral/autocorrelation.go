package spectral

// Autocorrelation computes the autocorrelation of a frame for lags
// [0, maxLag) using the Wiener-Khinchin theorem: the autocorrelation is the
// inverse FFT of the signal's power spectrum. O(n log n) instead of the
// O(n*maxLag) direct sum, which matters inside a per-frame real-time budget.
//
// Reference: de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental
// frequency estimator for speech and music", eq. (1).
func Autocorrelation(frame []float64, maxLag int) []float64 {
	n := len(frame)
	if n == 0 || maxLag <= 0 {
		return []float64{}
	}
	if maxLag > n {
		maxLag = n
	}

	// Zero-pad past n+maxLag so the circular convolution equals the linear
	// one over the lags we read back.
	fftSize := nextPow2(n + maxLag)
	padded := make([]float64, fftSize)
	copy(padded, frame)

	f := NewFFT()
	spectrum := f.Compute(padded)

	// Power spectrum
	for i, c := range spectrum {
		re := real(c)
		im := imag(c)
		spectrum[i] = complex(re*re+im*im, 0)
	}

	corr := f.ComputeInverseReal(spectrum)

	result := make([]float64, maxLag)
	copy(result, corr[:maxLag])
	return result
}

func nextPow2(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}
