package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/mediaforge/smartcut/config"
	"github.com/mediaforge/smartcut/history"
	"github.com/mediaforge/smartcut/orchestrator"
)

var log = logrus.New()

func main() {
	root := &cobra.Command{
		Use:   "smartcut",
		Short: "Cut videos where a shot change meets a speaker change",
	}
	root.AddCommand(analyzeCmd(), historyCmd())
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func loadConfig() (*cfg.Root, error) {
	conf, err := cfg.Load()
	if err != nil {
		return nil, err
	}
	if lvl, err := logrus.ParseLevel(conf.Pipeline.LogLvl); err == nil {
		log.SetLevel(lvl)
	}
	return conf, nil
}

func analyzeCmd() *cobra.Command {
	var (
		output     string
		exportPath string
		language   string
		minSegment float64
		noSplit    bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Analyze a video and split it at the decided cut points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoPath := args[0]
			if _, err := os.Stat(videoPath); err != nil {
				return fmt.Errorf("video not found: %s", videoPath)
			}

			conf, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("language") {
				conf.Speech.Language = language
			}
			if cmd.Flags().Changed("min-segment") {
				conf.Fusion.MinSegmentDuration = minSegment
			}
			if err := conf.Validate(); err != nil {
				return err
			}

			store, err := history.Open(conf.Paths.History)
			if err != nil {
				log.WithError(err).Warn("history disabled")
				store = nil
			} else {
				defer store.Close()
			}

			p, err := orchestrator.NewPipeline(conf, store, logrus.NewEntry(log))
			if err != nil {
				return err
			}
			res, err := p.Run(cmd.Context(), videoPath, orchestrator.RunOptions{
				OutputDir:  output,
				NoSplit:    noSplit,
				ExportPath: exportPath,
			})
			if err != nil {
				return err
			}
			printSummary(res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "directory for the cut segments")
	cmd.Flags().StringVar(&exportPath, "export", "", "write the analysis bundle to this path (.json or .yaml)")
	cmd.Flags().StringVar(&language, "language", "zh", "speech language code")
	cmd.Flags().Float64Var(&minSegment, "min-segment", 2.0, "minimum segment duration in seconds")
	cmd.Flags().BoolVar(&noSplit, "no-split", false, "analyze only, do not cut the video")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past analysis runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(conf.Paths.History)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs recorded yet")
				return nil
			}
			for _, r := range runs {
				fmt.Printf("%s  %s  %7.2fs  %d splits  %d segments  %s\n",
					r.CreatedAt.Format("2006-01-02 15:04"), r.ID[:8], r.Duration,
					r.SplitCount, r.SegmentCount, r.VideoPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

func printSummary(res *orchestrator.Result) {
	fmt.Printf("\nvideo: %s (%.2fs)\n", res.VideoPath, res.Duration)
	fmt.Printf("shot changes: %d, splits: %d, skipped: %d\n",
		len(res.Analysis.ShotChanges), len(res.Analysis.FinalSplits), len(res.Analysis.SkippedShots))
	if res.Speakers > 0 {
		fmt.Printf("speakers detected: %d (silhouette %.3f)\n", res.Speakers, res.Silhouette)
	}
	for _, s := range res.Analysis.FinalSplits {
		fmt.Printf("  split %.2fs  %s (%.2f)\n", s.Timestamp, s.Reason, s.Confidence)
	}
	fmt.Printf("segments: %d\n", len(res.Segments))
	for _, seg := range res.Segments {
		fmt.Printf("  segment %d: %.2fs - %.2fs (%.2fs)\n", seg.Index, seg.Start, seg.End, seg.Duration)
	}
	if res.ExportPath != "" {
		fmt.Printf("analysis exported to %s\n", res.ExportPath)
	}
	for _, f := range res.OutputFiles {
		fmt.Printf("  wrote %s\n", f)
	}
}
