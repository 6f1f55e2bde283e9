package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/melodia/audioio"
	"github.com/RyanBlaney/melodia/model"
	"github.com/RyanBlaney/melodia/score"
	"github.com/RyanBlaney/melodia/tracker"
)

var (
	analyzeAudioPath string
	analyzeMidiPath  string
	analyzeTempo     float64
	analyzeJSON      bool
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeAudioPath, "audio", "", "WAV recording of the performance")
	analyzeCmd.Flags().StringVar(&analyzeMidiPath, "midi", "", "MIDI file with the reference score")
	analyzeCmd.Flags().Float64Var(&analyzeTempo, "tempo", 1.0, "tempo factor relative to the score (2 = twice as fast)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit the full report as JSON")
	analyzeCmd.MarkFlagRequired("audio")
	analyzeCmd.MarkFlagRequired("midi")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compare a recorded performance against a reference score",
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyze(analyzeAudioPath, analyzeMidiPath, analyzeTempo, analyzeJSON)
	},
}

func analyze(audioPath, midiPath string, tempo float64, asJSON bool) error {
	sc, err := score.LoadSMF(midiPath)
	if err != nil {
		return err
	}
	if tempo != 1.0 {
		if sc, err = sc.Scaled(tempo); err != nil {
			return err
		}
	}
	clip, err := audioio.LoadWAV(audioPath)
	if err != nil {
		return err
	}

	cfg := tracker.DefaultConfig(clip.SampleRate)
	session, err := tracker.NewSession(sc, cfg)
	if err != nil {
		return err
	}

	// Feed in hop-sized chunks, the same granularity a live capture
	// callback would deliver.
	chunk := cfg.Pitch.HopSize
	for off := 0; off < len(clip.Samples); off += chunk {
		end := off + chunk
		if end > len(clip.Samples) {
			end = len(clip.Samples)
		}
		if err := session.ProcessSamples(clip.Samples[off:end]); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	report, err := session.Stop(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(sc, report)
	return nil
}

func printReport(sc *score.ReferenceScore, report model.MistakeReport) {
	counts := report.Counts()
	fmt.Printf("%d reference notes: %d matched, %d wrong pitch, %d mistimed, %d missed, %d extra\n\n",
		sc.Len(),
		counts[model.StatusMatched],
		counts[model.StatusWrongPitch],
		counts[model.StatusMistimed],
		counts[model.StatusMissed],
		len(report.Extras))

	for _, o := range report.Outcomes {
		ref := sc.Note(o.RefIndex)
		switch o.Status {
		case model.StatusMatched:
			fmt.Printf("  #%-3d %-7s at %6.2fs  ok\n", o.RefIndex, noteName(ref.Pitch), ref.Onset)
		case model.StatusWrongPitch:
			fmt.Printf("  #%-3d %-7s at %6.2fs  wrong pitch (%+.0f cents)\n",
				o.RefIndex, noteName(ref.Pitch), ref.Onset, o.PitchErrorCents)
		case model.StatusMistimed:
			fmt.Printf("  #%-3d %-7s at %6.2fs  mistimed (%+.0f ms)\n",
				o.RefIndex, noteName(ref.Pitch), ref.Onset, o.OnsetErrorMs)
		case model.StatusMissed:
			fmt.Printf("  #%-3d %-7s at %6.2fs  missed\n", o.RefIndex, noteName(ref.Pitch), ref.Onset)
		}
	}
	for _, e := range report.Extras {
		fmt.Printf("  extra %-7s at %6.2fs\n", noteName(e.Note.Pitch), e.Note.Onset)
	}
}

var pitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func noteName(midi float64) string {
	n := int(midi + 0.5)
	if n < 0 || n > 127 {
		return fmt.Sprintf("%.1f", midi)
	}
	return fmt.Sprintf("%s%d", pitchClasses[n%12], n/12-1)
}
