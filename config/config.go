// Package config loads and validates smartcut's tunable parameters.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Service points at one of the external model services.
type Service struct {
	URL string `mapstructure:"url"`
}

// Services groups the deep-learning collaborators the pipeline calls.
type Services struct {
	ShotDetector Service `mapstructure:"shot_detector"`
	ASR          Service `mapstructure:"asr"`
	Embedding    Service `mapstructure:"embedding"`
}

// Detect configures shot-boundary detection.
type Detect struct {
	ShotThreshold float64 `mapstructure:"shot_threshold"`
}

// Speech configures transcription.
type Speech struct {
	Language string `mapstructure:"language"`
	Model    string `mapstructure:"model"`
}

// Embedding configures voice-embedding windowing.
type Embedding struct {
	WindowSec float64 `mapstructure:"window_sec"`
	StrideSec float64 `mapstructure:"stride_sec"`
}

// Cluster configures speaker clustering.
type Cluster struct {
	MaxSpeakers         int     `mapstructure:"max_speakers"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
}

// Fusion configures the split decision rules.
type Fusion struct {
	MinSegmentDuration    float64 `mapstructure:"min_segment_duration"`
	CoincidenceWindow     float64 `mapstructure:"coincidence_window"`
	ShotEpsilon           float64 `mapstructure:"shot_epsilon"`
	HighConfidence        float64 `mapstructure:"high_confidence"`
	MediumConfidence      float64 `mapstructure:"medium_confidence"`
	SpeakerOnlySplits     bool    `mapstructure:"speaker_only_splits"`
	SpeakerOnlyConfidence float64 `mapstructure:"speaker_only_confidence"`
}

// Paths says where session outputs and the run history database live.
type Paths struct {
	Outputs string `mapstructure:"outputs"`
	History string `mapstructure:"history"`
}

// Root is the full configuration tree.
type Root struct {
	Pipeline struct {
		Name   string `mapstructure:"name"`
		LogLvl string `mapstructure:"log_level"`
	} `mapstructure:"pipeline"`
	Detect    Detect    `mapstructure:"detect"`
	Speech    Speech    `mapstructure:"speech"`
	Embedding Embedding `mapstructure:"embedding"`
	Cluster   Cluster   `mapstructure:"cluster"`
	Fusion    Fusion    `mapstructure:"fusion"`
	Services  Services  `mapstructure:"services"`
	Paths     Paths     `mapstructure:"paths"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "smartcut")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("detect.shot_threshold", 0.5)
	v.SetDefault("speech.language", "zh")
	v.SetDefault("speech.model", "base")
	v.SetDefault("embedding.window_sec", 1.5)
	v.SetDefault("embedding.stride_sec", 1.5)
	v.SetDefault("cluster.max_speakers", 8)
	v.SetDefault("cluster.similarity_threshold", 0.25)
	v.SetDefault("fusion.min_segment_duration", 2.0)
	v.SetDefault("fusion.coincidence_window", 1.0)
	v.SetDefault("fusion.shot_epsilon", 0.05)
	v.SetDefault("fusion.high_confidence", 0.9)
	v.SetDefault("fusion.medium_confidence", 0.6)
	v.SetDefault("fusion.speaker_only_splits", false)
	v.SetDefault("fusion.speaker_only_confidence", 0.4)
	v.SetDefault("paths.outputs", "outputs")
	v.SetDefault("paths.history", "smartcut.db")
}

// Load reads config.yaml from the working directory or ./config, applies
// SMARTCUT_* environment overrides and validates the result. A missing file
// is fine; defaults cover everything.
func Load() (*Root, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.SetEnvPrefix("SMARTCUT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects parameter combinations the engine would refuse anyway,
// so bad config surfaces before any media work starts.
func (c *Root) Validate() error {
	switch {
	case c.Fusion.MinSegmentDuration <= 0:
		return fmt.Errorf("config: fusion.min_segment_duration must be > 0, got %.3f", c.Fusion.MinSegmentDuration)
	case c.Fusion.CoincidenceWindow <= 0:
		return fmt.Errorf("config: fusion.coincidence_window must be > 0, got %.3f", c.Fusion.CoincidenceWindow)
	case c.Cluster.MaxSpeakers < 2:
		return fmt.Errorf("config: cluster.max_speakers must be >= 2, got %d", c.Cluster.MaxSpeakers)
	case c.Embedding.WindowSec <= 0 || c.Embedding.StrideSec <= 0:
		return fmt.Errorf("config: embedding window/stride must be > 0, got %.3f/%.3f",
			c.Embedding.WindowSec, c.Embedding.StrideSec)
	}
	return nil
}
