// Package orchestrator runs the full analysis pipeline: signal acquisition,
// speaker clustering, fusion and splitting.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mediaforge/smartcut/clients"
	cfg "github.com/mediaforge/smartcut/config"
	"github.com/mediaforge/smartcut/history"
	"github.com/mediaforge/smartcut/media"
	"github.com/mediaforge/smartcut/segmenter"
)

// RunOptions selects per-invocation behavior on top of the config.
type RunOptions struct {
	// OutputDir receives the cut segment files. Empty means a segments/
	// folder next to the video.
	OutputDir string
	// NoSplit analyzes only and writes no media output.
	NoSplit bool
	// ExportPath overrides where the analysis bundle is written. A .yaml
	// or .yml extension selects YAML instead of JSON.
	ExportPath string
}

// Result is the outcome of one pipeline run.
type Result struct {
	VideoPath   string
	Duration    float64
	Analysis    segmenter.Analysis
	Segments    []segmenter.Segment
	Speakers    int
	Silhouette  float64
	ExportPath  string
	OutputFiles []string
}

// Pipeline wires the external services and the fusion core together.
type Pipeline struct {
	cfg    *cfg.Root
	http   *clients.HTTP
	engine *segmenter.Engine
	store  *history.Store
	log    *logrus.Entry
}

// NewPipeline builds a pipeline from validated config. The history store is
// optional; pass nil to skip run recording.
func NewPipeline(c *cfg.Root, store *history.Store, log *logrus.Entry) (*Pipeline, error) {
	engine, err := segmenter.NewEngine(segmenter.FusionOptions{
		MinSegmentDuration:    c.Fusion.MinSegmentDuration,
		CoincidenceWindow:     c.Fusion.CoincidenceWindow,
		ShotEpsilon:           c.Fusion.ShotEpsilon,
		HighConfidence:        c.Fusion.HighConfidence,
		MediumConfidence:      c.Fusion.MediumConfidence,
		SpeakerOnlySplits:     c.Fusion.SpeakerOnlySplits,
		SpeakerOnlyConfidence: c.Fusion.SpeakerOnlyConfidence,
	})
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: c, http: clients.NewHTTP(), engine: engine, store: store, log: log}, nil
}

// Run analyzes one video and, unless opts.NoSplit, cuts it.
func (p *Pipeline) Run(ctx context.Context, videoPath string, opts RunOptions) (*Result, error) {
	duration, err := media.Duration(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{"video": videoPath, "duration": fmt.Sprintf("%.2fs", duration)}).
		Info("starting analysis")

	hash := p.checkHistory(ctx, videoPath)

	p.log.Info("step 1/4: shot detection")
	shots, err := p.http.DetectShots(ctx, p.cfg.Services.ShotDetector.URL, videoPath, p.cfg.Detect.ShotThreshold)
	if err != nil {
		return nil, fmt.Errorf("shot detection: %w", err)
	}
	p.log.WithField("shots", len(shots)).Info("shot detection done")

	wavPath, cleanup, err := media.ExtractAudio(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	p.log.Info("step 2/4: speech recognition")
	asr, err := p.http.Transcribe(ctx, p.cfg.Services.ASR.URL, wavPath, p.cfg.Speech.Language)
	if err != nil {
		return nil, fmt.Errorf("transcription: %w", err)
	}
	speech := make([]segmenter.SpeechSegment, 0, len(asr.Segments))
	for _, s := range asr.Segments {
		speech = append(speech, segmenter.SpeechSegment{Start: s.Start, End: s.End, Text: s.Text})
	}
	p.log.WithField("segments", len(speech)).Info("speech recognition done")

	p.log.Info("step 3/4: speaker change detection")
	speakerChanges, speakers, silhouette, err := p.detectSpeakerChanges(ctx, wavPath, speech)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{"speakers": speakers, "changes": len(speakerChanges)}).
		Info("speaker change detection done")

	p.log.Info("step 4/4: signal fusion")
	analysis, err := p.engine.Analyze(shots, speech, speakerChanges, duration)
	if err != nil {
		return nil, err
	}
	segments, err := segmenter.BuildSegments(analysis.FinalSplits, duration)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{
		"splits":  len(analysis.FinalSplits),
		"skipped": len(analysis.SkippedShots),
	}).Info("fusion done")
	if len(analysis.FinalSplits) == 0 {
		p.log.Info("no split points found")
	}

	res := &Result{
		VideoPath:  videoPath,
		Duration:   duration,
		Analysis:   analysis,
		Segments:   segments,
		Speakers:   speakers,
		Silhouette: silhouette,
	}

	res.ExportPath, err = p.export(videoPath, duration, analysis, segments, opts.ExportPath)
	if err != nil {
		return nil, err
	}

	p.recordRun(ctx, videoPath, hash, res)

	if !opts.NoSplit && len(analysis.FinalSplits) > 0 {
		outDir := opts.OutputDir
		if outDir == "" {
			outDir = filepath.Join(filepath.Dir(videoPath), "segments")
		}
		res.OutputFiles, err = media.Split(ctx, videoPath, outDir, segments)
		if err != nil {
			return nil, err
		}
		p.log.WithFields(logrus.Fields{"files": len(res.OutputFiles), "dir": outDir}).
			Info("video split complete")
	}
	return res, nil
}

// detectSpeakerChanges windows the speech, embeds every window and clusters
// the embeddings into speakers. Too little speech simply means no speaker
// signal; fusion then falls back to shot+speech rules.
func (p *Pipeline) detectSpeakerChanges(ctx context.Context, wavPath string, speech []segmenter.SpeechSegment) ([]float64, int, float64, error) {
	windows := segmenter.BuildWindows(speech, p.cfg.Embedding.WindowSec, p.cfg.Embedding.StrideSec)
	if len(windows) < 2 {
		return nil, 0, 0, nil
	}

	reqs := make([]clients.TimeWindow, len(windows))
	for i, w := range windows {
		reqs[i] = clients.TimeWindow{Start: w.Start, End: w.End}
	}
	vectors, err := p.http.Embed(ctx, p.cfg.Services.Embedding.URL, wavPath, reqs)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("embedding: %w", err)
	}
	for i := range windows {
		windows[i].Vector = vectors[i]
	}

	clus, err := segmenter.ClusterSpeakers(windows, segmenter.ClusterOptions{
		MaxSpeakers:         p.cfg.Cluster.MaxSpeakers,
		SimilarityThreshold: p.cfg.Cluster.SimilarityThreshold,
	})
	if err != nil {
		return nil, 0, 0, err
	}
	return segmenter.ChangePoints(windows, clus.Labels), clus.K, clus.Silhouette, nil
}

// checkHistory hashes the input and warns when the same content was already
// analyzed. Failures here never block the run.
func (p *Pipeline) checkHistory(ctx context.Context, videoPath string) string {
	if p.store == nil {
		return ""
	}
	hash, err := history.HashFile(videoPath)
	if err != nil {
		p.log.WithError(err).Warn("could not hash input video")
		return ""
	}
	prev, err := p.store.FindByHash(ctx, hash)
	if err == nil {
		p.log.WithFields(logrus.Fields{"run": prev.ID, "at": prev.CreatedAt.Format("2006-01-02 15:04")}).
			Warn("this video was analyzed before")
	} else if !errors.Is(err, history.ErrNotFound) {
		p.log.WithError(err).Warn("history lookup failed")
	}
	return hash
}

func (p *Pipeline) recordRun(ctx context.Context, videoPath, hash string, res *Result) {
	if p.store == nil || hash == "" {
		return
	}
	run, err := p.store.Record(ctx, history.Run{
		VideoPath:    videoPath,
		VideoHash:    hash,
		Duration:     res.Duration,
		SplitCount:   len(res.Analysis.FinalSplits),
		SegmentCount: len(res.Segments),
		ExportPath:   res.ExportPath,
	})
	if err != nil {
		p.log.WithError(err).Warn("could not record run in history")
		return
	}
	p.log.WithField("run", run.ID).Debug("run recorded")
}
