package entity

import "time"

// Output formats accepted by the generate endpoint.
const (
	FormatHTML  = "html"
	FormatReact = "react"
	FormatVue   = "vue"
)

// Styling frameworks accepted by the generate endpoint.
const (
	FrameworkTailwind  = "tailwind"
	FrameworkBootstrap = "bootstrap"
	FrameworkMaterial  = "material"
	FrameworkChakra    = "chakra"
)

// GenerateRequest is a validated client request. Build it through the validator package.
type GenerateRequest struct {
	Prompt       string `json:"prompt"`
	OutputFormat string `json:"outputFormat"`
	Framework    string `json:"framework"`
}

// Prompts holds the two rendered prompts sent to the AI provider.
type Prompts struct {
	Design string
	Code   string
}

// GenerateUIResult is what the generate endpoint returns. It is not stored as-is.
type GenerateUIResult struct {
	DesignSpec   string `json:"designSpec"`
	Code         string `json:"code"`
	Framework    string `json:"framework"`
	OutputFormat string `json:"outputFormat"`
}

// NewGeneration is the insert shape handed to a GenerationStore.
type NewGeneration struct {
	Prompt       string
	DesignSpec   string
	Code         string
	OutputFormat string
	Framework    string
}

// Generation is one persisted prompt with its design spec and code. Records are append-only.
type Generation struct {
	ID           string    `json:"id" bson:"_id"`
	Prompt       string    `json:"prompt" bson:"prompt"`
	DesignSpec   string    `json:"designSpec" bson:"design_spec"`
	Code         string    `json:"code" bson:"code"`
	OutputFormat string    `json:"outputFormat" bson:"output_format"`
	Framework    string    `json:"framework" bson:"framework"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// SimilarGeneration is a past generation whose prompt is close to a query prompt.
type SimilarGeneration struct {
	ID           string  `json:"id"`
	Prompt       string  `json:"prompt"`
	OutputFormat string  `json:"outputFormat"`
	Framework    string  `json:"framework"`
	Score        float32 `json:"score"`
}
