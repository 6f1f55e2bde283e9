package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/melodia/algorithms/filters"
	"github.com/RyanBlaney/melodia/algorithms/pitch"
	"github.com/RyanBlaney/melodia/algorithms/segment"
	"github.com/RyanBlaney/melodia/audioio"
	"github.com/RyanBlaney/melodia/score"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid|file.wav>",
	Short: "Print the notes found in a MIDI score or a WAV recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		switch strings.ToLower(filepath.Ext(path)) {
		case ".mid", ".midi":
			return inspectMidi(path)
		case ".wav":
			return inspectWav(path)
		default:
			return fmt.Errorf("unsupported file type: %s", path)
		}
	},
}

func inspectMidi(path string) error {
	sc, err := score.LoadSMF(path)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d notes, %.2fs\n", path, sc.Len(), sc.Duration())
	for i, n := range sc.Notes() {
		fmt.Printf("  #%-3d %-7s onset %7.3fs  duration %6.3fs\n",
			i, noteName(n.Pitch), n.Onset, n.Duration)
	}
	return nil
}

func inspectWav(path string) error {
	clip, err := audioio.LoadWAV(path)
	if err != nil {
		return err
	}

	filters.NewDCRemoval().ProcessBuffer(clip.Samples)

	detector, err := pitch.NewDetector(pitch.DefaultParams(clip.SampleRate))
	if err != nil {
		return err
	}
	segmenter, err := segment.NewSegmenter(segment.DefaultConfig())
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d Hz, %.2fs\n", path, clip.SampleRate, clip.Duration())

	params := detector.Params()
	count := 0
	for off := 0; off+params.FrameSize <= len(clip.Samples); off += params.HopSize {
		frame := clip.Samples[off : off+params.FrameSize]
		est := detector.ProcessFrame(frame, float64(off)/float64(clip.SampleRate))
		if n := segmenter.Push(est); n != nil {
			fmt.Printf("  #%-3d %-7s onset %7.3fs  duration %6.3fs  confidence %.2f\n",
				count, noteName(n.Pitch), n.Onset, n.Duration, n.MeanConfidence)
			count++
		}
	}
	if n := segmenter.Flush(); n != nil {
		fmt.Printf("  #%-3d %-7s onset %7.3fs  duration %6.3fs  confidence %.2f\n",
			count, noteName(n.Pitch), n.Onset, n.Duration, n.MeanConfidence)
		count++
	}
	if count == 0 {
		fmt.Println("  no notes detected")
	}
	return nil
}
