package entity

import "time"

// Stage names one of the AI calls made while serving a request.
type Stage string

const (
	StageDesign Stage = "design"
	StageCode   Stage = "code"

	StageEmbedding Stage = "embedding"
)

type AIResponse struct {
	Content    string `json:"content"`
	Model      string `json:"model"`
	TokenCount int    `json:"token_count"`
	Latency    int64  `json:"latency_ms"`
}

// StageResult is the tagged outcome of a single stage: Text on success, Err otherwise.
type StageResult struct {
	Stage    Stage
	Text     string
	Err      error
	Duration time.Duration
}

func (r StageResult) OK() bool {
	return r.Err == nil
}
