package audioio

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestWAV(t *testing.T, path string, data []int, sampleRate, channels int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func TestLoadWAVMono(t *testing.T) {
	sr := 44100
	n := 4410
	data := make([]int, n)
	for i := range data {
		data[i] = int(0.5 * 32767 * math.Sin(2*math.Pi*440*float64(i)/float64(sr)))
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWAV(t, path, data, sr, 1)

	clip, err := LoadWAV(path)
	require.NoError(t, err)

	assert.Equal(t, sr, clip.SampleRate)
	assert.Len(t, clip.Samples, n)
	assert.InDelta(t, 0.1, clip.Duration(), 1e-6)

	peak := 0.0
	for _, s := range clip.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	assert.InDelta(t, 0.5, peak, 0.01)
}

func TestLoadWAVStereoMixdown(t *testing.T) {
	sr := 8000
	n := 100
	data := make([]int, 2*n)
	for i := 0; i < n; i++ {
		data[2*i] = 16384   // left
		data[2*i+1] = -8192 // right
	}

	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeTestWAV(t, path, data, sr, 2)

	clip, err := LoadWAV(path)
	require.NoError(t, err)
	require.Len(t, clip.Samples, n)

	// Average of 0.5 and -0.25
	assert.InDelta(t, 0.125, clip.Samples[10], 1e-3)
}

func TestReadWAVInvalid(t *testing.T) {
	_, err := ReadWAV(bytes.NewReader([]byte("definitely not audio")))
	assert.Error(t, err)
}

func TestLoadWAVMissingFile(t *testing.T) {
	_, err := LoadWAV(filepath.Join(t.TempDir(), "nope.wav"))
	assert.Error(t, err)
}
