// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package config loads pipeline-level defaults (§6.4) via viper, with
// go-playground/validator enforcing the recognized shape and ranges.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envReplacer maps "." to "_" so nested keys like llm.system_prompt can be
// overridden via LLM_SYSTEM_PROMPT.
var envReplacer = strings.NewReplacer(".", "_")

// ProcessorConfig mirrors §6.4's processor options.
type ProcessorConfig struct {
	ID            string `mapstructure:"id"`
	Name          string `mapstructure:"name" validate:"required"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
	EnableLogging bool   `mapstructure:"enable_logging"`
}

// VADConfig mirrors §6.4's VAD options and documented defaults.
type VADConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Threshold   float64 `mapstructure:"threshold" validate:"gte=0,lte=1"`
	StartFrames int     `mapstructure:"start_frames" validate:"gte=1"`
	StopFrames  int     `mapstructure:"stop_frames" validate:"gte=1"`
}

// AudioConfig mirrors §6.4's ingress/egress audio options.
type AudioConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	SampleRate  int  `mapstructure:"sample_rate" validate:"required"`
	Channels    int  `mapstructure:"channels" validate:"required"`
	ChunkSizeMs int  `mapstructure:"chunk_size_ms" validate:"required"`
}

// BatcherConfig mirrors §6.4's audio-batcher options.
type BatcherConfig struct {
	SampleRate    int `mapstructure:"sample_rate" validate:"required"`
	Channels      int `mapstructure:"channels" validate:"required"`
	PreRollFrames int `mapstructure:"pre_roll_frames" validate:"gte=0"`
}

// LLMConfig mirrors §6.4's LLM generation options.
type LLMConfig struct {
	ModelID          string  `mapstructure:"model_id"`
	SystemPrompt     string  `mapstructure:"system_prompt"`
	MaxTokens        int     `mapstructure:"max_tokens"`
	Temperature      float64 `mapstructure:"temperature"`
	TopP             float64 `mapstructure:"top_p"`
	FrequencyPenalty float64 `mapstructure:"frequency_penalty"`
	PresencePenalty  float64 `mapstructure:"presence_penalty"`
	SkipTTS          bool    `mapstructure:"skip_tts"`
}

// TTSConfig mirrors §6.4's TTS options.
type TTSConfig struct {
	VoiceID    string `mapstructure:"voice_id"`
	ModelID    string `mapstructure:"model_id"`
	Language   string `mapstructure:"language"`
	SampleRate int    `mapstructure:"sample_rate" validate:"required"`
	Channels   int    `mapstructure:"channels" validate:"required"`
}

// STTConfig mirrors §6.4's STT options.
type STTConfig struct {
	UserID     string `mapstructure:"user_id"`
	Language   string `mapstructure:"language"`
	SampleRate int    `mapstructure:"sample_rate" validate:"required"`
}

// PipelineConfig is the complete set of recognized configuration options
// for one pipeline instance.
type PipelineConfig struct {
	Processor ProcessorConfig `mapstructure:"processor" validate:"required"`
	VAD       VADConfig       `mapstructure:"vad" validate:"required"`
	Ingress   AudioConfig     `mapstructure:"ingress" validate:"required"`
	Egress    AudioConfig     `mapstructure:"egress" validate:"required"`
	Batcher   BatcherConfig   `mapstructure:"batcher" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	TTS       TTSConfig       `mapstructure:"tts" validate:"required"`
	STT       STTConfig       `mapstructure:"stt" validate:"required"`
}

// Load builds a viper instance seeded with §6.4's documented defaults,
// reads an optional config file (path taken from the PIPELINE_CONFIG
// environment variable, falling back to "./pipeline.yaml"), allows
// environment-variable overrides, and unmarshals + validates the result.
func Load() (*PipelineConfig, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("."))
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(envReplacer)

	path := os.Getenv("PIPELINE_CONFIG")
	if path == "" {
		path = "./pipeline.yaml"
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Unmarshal only sees keys viper already knows, so every key gets a
	// default (empty where there is no meaningful one) to let AutomaticEnv
	// override it.
	v.SetDefault("processor.id", "")
	v.SetDefault("processor.name", "pipeline")
	v.SetDefault("processor.enable_metrics", true)
	v.SetDefault("processor.enable_logging", true)

	v.SetDefault("vad.enabled", true)
	v.SetDefault("vad.threshold", 0.01)
	v.SetDefault("vad.start_frames", 3)
	v.SetDefault("vad.stop_frames", 10)

	v.SetDefault("ingress.enabled", true)
	v.SetDefault("ingress.sample_rate", 16000)
	v.SetDefault("ingress.channels", 1)
	v.SetDefault("ingress.chunk_size_ms", 20)

	v.SetDefault("egress.enabled", true)
	v.SetDefault("egress.sample_rate", 24000)
	v.SetDefault("egress.channels", 1)
	v.SetDefault("egress.chunk_size_ms", 20)

	v.SetDefault("batcher.sample_rate", 16000)
	v.SetDefault("batcher.channels", 1)
	v.SetDefault("batcher.pre_roll_frames", 5)

	v.SetDefault("llm.model_id", "")
	v.SetDefault("llm.system_prompt", "")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.top_p", 1.0)
	v.SetDefault("llm.frequency_penalty", 0.0)
	v.SetDefault("llm.presence_penalty", 0.0)
	v.SetDefault("llm.skip_tts", false)

	v.SetDefault("tts.voice_id", "")
	v.SetDefault("tts.model_id", "")
	v.SetDefault("tts.language", "")
	v.SetDefault("tts.sample_rate", 24000)
	v.SetDefault("tts.channels", 1)

	v.SetDefault("stt.user_id", "")
	v.SetDefault("stt.language", "")
	v.SetDefault("stt.sample_rate", 16000)
}
