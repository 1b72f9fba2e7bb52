// Package types defines the core data model shared across the prompt
// generation pipeline: tool profiles, normalized request context, knowledge
// corpus records, retrieval results, and the generated prompt envelope.
package types

import "time"

// =============================================================================
// TOOL PROFILES
// =============================================================================

// ToolCategory classifies a target AI development tool.
type ToolCategory string

const (
	ToolCategoryEditor      ToolCategory = "editor"
	ToolCategoryUIGenerator ToolCategory = "ui_generator"
	ToolCategoryAssistant   ToolCategory = "assistant"
	ToolCategoryIDE         ToolCategory = "ide"
)

// ComplexityTier describes the expected sophistication of the prompt consumer.
type ComplexityTier string

const (
	ComplexityBeginner     ComplexityTier = "beginner"
	ComplexityIntermediate ComplexityTier = "intermediate"
	ComplexityAdvanced     ComplexityTier = "advanced"
)

// Stage identifies a step in the staged prompt generation flow.
type Stage string

const (
	StageSkeleton     Stage = "skeleton"
	StageFeature      Stage = "feature"
	StageOptimization Stage = "optimization"
	StageDebugging    Stage = "debugging"
)

// StrategyKind names a prompting strategy family.
type StrategyKind string

const (
	StrategyStructured     StrategyKind = "structured"
	StrategyConversational StrategyKind = "conversational"
	StrategyIterative      StrategyKind = "iterative"
	StrategyComponent      StrategyKind = "component"
)

// PromptingStrategy is one entry in a tool profile's ordered strategy table.
// Strategies are data, not code: the composer selects one by lookup and fills
// its skeleton, it never dispatches on a strategy subtype.
type PromptingStrategy struct {
	Kind          StrategyKind `yaml:"kind" json:"kind"`
	Template      string       `yaml:"template" json:"template"`
	UseCases      []string     `yaml:"use_cases" json:"use_cases"`
	Effectiveness float64      `yaml:"effectiveness" json:"effectiveness"` // [0,1]
	Stages        []Stage      `yaml:"stages,omitempty" json:"stages,omitempty"`
}

// ToolProfile describes one target tool's conventions. Profiles are loaded at
// process start and never mutated afterwards; all pipeline stages treat them
// as read-only.
type ToolProfile struct {
	ID             string              `yaml:"id" json:"id"`
	DisplayName    string              `yaml:"display_name" json:"display_name"`
	Category       ToolCategory        `yaml:"category" json:"category"`
	Complexity     ComplexityTier      `yaml:"complexity" json:"complexity"`
	OutputFormat   string              `yaml:"output_format" json:"output_format"`
	Tone           string              `yaml:"tone" json:"tone"`
	Strategies     []PromptingStrategy `yaml:"strategies" json:"strategies"`
	Constraints    []string            `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Optimizations  []string            `yaml:"optimizations,omitempty" json:"optimizations,omitempty"`
	CommonPitfalls []string            `yaml:"common_pitfalls,omitempty" json:"common_pitfalls,omitempty"`
	StageTemplates map[Stage]string    `yaml:"stage_templates,omitempty" json:"stage_templates,omitempty"`
	DefaultStack   []string            `yaml:"default_stack,omitempty" json:"default_stack,omitempty"`
}

// =============================================================================
// NORMALIZED REQUEST CONTEXT
// =============================================================================

// AppIdea is the loosely-typed upstream input describing the application to
// generate prompts for. Only Name and Description are mandatory; everything
// else has a derivation default.
type AppIdea struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Platforms   []string `json:"platforms,omitempty" yaml:"platforms,omitempty"`
	DesignStyle string   `json:"design_style,omitempty" yaml:"design_style,omitempty"`
	Audience    string   `json:"audience,omitempty" yaml:"audience,omitempty"`
}

// ValidationAnswers carries the upstream wizard's clarification answers.
type ValidationAnswers struct {
	Complexity   string   `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	Experience   string   `json:"experience,omitempty" yaml:"experience,omitempty"`
	Requirements []string `json:"requirements,omitempty" yaml:"requirements,omitempty"`
}

// TaskContext is the normalized, derived task description consumed by the
// composer. All list fields are derived from lookup tables, not authoritative
// user input.
type TaskContext struct {
	TaskType              string
	ProjectName           string
	Description           string
	TechnicalRequirements []string
	UIRequirements        []string
	Constraints           []string
}

// ProjectInfo is the normalized project summary consumed by the composer.
type ProjectInfo struct {
	Name           string
	Description    string
	TechStack      []string
	TargetAudience string
	Requirements   []string
}

// =============================================================================
// KNOWLEDGE CORPORA
// =============================================================================

// DocumentType classifies a knowledge document.
type DocumentType string

const (
	DocumentBestPractice DocumentType = "best_practice"
	DocumentExample      DocumentType = "example"
	DocumentTemplate     DocumentType = "template"
	DocumentGuide        DocumentType = "guide"
	DocumentReference    DocumentType = "reference"
)

// KnowledgeDocument is one reference document in the retrieval corpus.
// ContentHash is the uniqueness key: ingesting the same content twice is a
// no-op.
type KnowledgeDocument struct {
	ID             string
	Title          string
	Content        string
	DocumentType   DocumentType
	TargetTools    []string
	Categories     []string
	Complexity     ComplexityTier
	Embedding      []float32
	ContentHash    string
	QualityScore   float64 // [0,1]
	RetrievalCount int64
	IsActive       bool
	CreatedAt      time.Time
}

// TemplateType classifies a prompt template.
type TemplateType string

const (
	TemplateSkeleton     TemplateType = "skeleton"
	TemplateFeature      TemplateType = "feature"
	TemplateOptimization TemplateType = "optimization"
	TemplateDebugging    TemplateType = "debugging"
)

// PromptTemplate is one reusable prompt skeleton in the template corpus.
type PromptTemplate struct {
	ID           string
	Name         string
	Content      string
	TemplateType TemplateType
	TargetTool   string
	UseCase      string
	Complexity   ComplexityTier
	Embedding    []float32
	ContentHash  string
	RequiredVars []string
	OptionalVars []string
	UsageCount   int64
	SuccessRate  float64 // [0,1]
	IsActive     bool
	CreatedAt    time.Time
}

// =============================================================================
// RETRIEVAL
// =============================================================================

// CorpusKind selects which corpus a retrieval call runs against.
type CorpusKind string

const (
	CorpusDocuments CorpusKind = "documents"
	CorpusTemplates CorpusKind = "templates"
)

// RetrievedDocument pairs a knowledge document with its similarity score.
type RetrievedDocument struct {
	Document   KnowledgeDocument
	Similarity float64 // [0,1]
}

// RetrievedTemplate pairs a prompt template with its similarity score.
type RetrievedTemplate struct {
	Template   PromptTemplate
	Similarity float64 // [0,1]
}

// RetrievalStats summarizes a retrieval phase for confidence scoring.
type RetrievalStats struct {
	DocumentCount  int
	TemplateCount  int
	AvgSimilarity  float64
	Degraded       bool // store failure, timeout, or no-query fallback
}

// =============================================================================
// OUTPUT
// =============================================================================

// EnhancementOutcome records whether the optional enhancement stage ran and
// what it contributed. A single value attached to the generated prompt; no
// per-record enhancement flags anywhere else.
type EnhancementOutcome struct {
	Applied    bool     `json:"applied"`
	Confidence float64  `json:"confidence"` // [0,1]
	Sources    []string `json:"sources,omitempty"`
}

// GeneratedPrompt is the engine's result envelope. Content is never empty:
// if every enhancement stage fails the deterministic composed draft is
// returned unchanged.
type GeneratedPrompt struct {
	Content            string             `json:"content"`
	ToolID             string             `json:"tool_id"`
	Stage              Stage              `json:"stage"`
	ConfidenceScore    float64            `json:"confidence_score"` // [0,1]
	Suggestions        []string           `json:"suggestions,omitempty"`
	ToolOptimizations  []string           `json:"tool_optimizations,omitempty"`
	KnowledgeSources   []string           `json:"knowledge_sources,omitempty"`
	Enhancement        EnhancementOutcome `json:"enhancement"`
	NextSuggestedStage Stage              `json:"next_suggested_stage,omitempty"`
}

// ValidationIssue is a blocking structural finding.
type ValidationIssue struct {
	Check   string `json:"check"`
	Message string `json:"message"`
}

// ValidationResult is the structural validation report for a prompt text.
// Score is rule-based in [0,100], independent of the confidence score.
type ValidationResult struct {
	IsValid     bool              `json:"is_valid"`
	Score       int               `json:"score"`
	Issues      []ValidationIssue `json:"issues,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

// AnalyticsEvent is emitted once per completed generation request.
type AnalyticsEvent struct {
	EventID      string        `json:"event_id"`
	ToolID       string        `json:"tool_id"`
	Stage        Stage         `json:"stage"`
	Confidence   float64       `json:"confidence"`
	PromptLength int           `json:"prompt_length"`
	Success      bool          `json:"success"`
	Latency      time.Duration `json:"latency_ns"`
	Timestamp    time.Time     `json:"timestamp"`
}

// =============================================================================
// CLAMP HELPERS
// =============================================================================

// ClampUnit clamps v into [0,1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampScore clamps v into [0,100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// NextStage returns the next stage in the fixed skeleton → feature →
// optimization → debugging sequence, or "" for the final stage.
func NextStage(s Stage) Stage {
	switch s {
	case StageSkeleton:
		return StageFeature
	case StageFeature:
		return StageOptimization
	case StageOptimization:
		return StageDebugging
	default:
		return ""
	}
}
