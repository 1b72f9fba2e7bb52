// Package enhance runs the optional LLM refinement pass over a composed
// draft. The pass is strictly best-effort: any failure (disabled, timeout,
// HTTP error, empty or suspect completion) returns the draft unchanged with
// an outcome recording that nothing was applied. Enhancement never makes a
// prompt worse than the deterministic draft.
package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"promptforge/internal/config"
	"promptforge/internal/logging"
	"promptforge/internal/types"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
const defaultModel = "gemini-2.0-flash"

// maxRetries bounds the rate-limit retry loop.
const maxRetries = 2

// Enhancer calls the Gemini generateContent API to refine a composed draft.
type Enhancer struct {
	enabled   bool
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	timeout   time.Duration

	httpClient *http.Client
}

// NewEnhancer builds an enhancer from config. A disabled or keyless config
// yields an enhancer whose Enhance is a pass-through.
func NewEnhancer(cfg config.EnhancementConfig, timeout time.Duration) *Enhancer {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &Enhancer{
		enabled:    cfg.Enabled && cfg.APIKey != "",
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		maxTokens:  maxTokens,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the refinement pass will attempt API calls.
func (e *Enhancer) Enabled() bool { return e.enabled }

// Enhance refines the draft for the given tool profile. The returned text is
// never empty: on any failure the draft comes back unchanged and the outcome
// has Applied=false.
func (e *Enhancer) Enhance(ctx context.Context, draft string, profile *types.ToolProfile) (string, types.EnhancementOutcome) {
	outcome := types.EnhancementOutcome{}
	if !e.enabled || strings.TrimSpace(draft) == "" {
		return draft, outcome
	}

	timer := logging.StartTimer(logging.CategoryEnhance, "Enhance")
	defer timer.Stop()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	refined, sources, err := e.complete(ctx, systemInstruction(profile), draft)
	if err != nil {
		logging.Enhance("Enhancement skipped: %v", err)
		return draft, outcome
	}

	if !acceptable(draft, refined) {
		logging.Enhance("Enhancement rejected: completion failed sanity checks (draft=%d refined=%d chars)",
			len(draft), len(refined))
		return draft, outcome
	}

	outcome.Applied = true
	outcome.Confidence = 1.0
	outcome.Sources = sources
	logging.EnhanceDebug("Enhancement applied: %d -> %d chars, sources=%d", len(draft), len(refined), len(sources))
	return refined, outcome
}

// systemInstruction frames the refinement so the model polishes without
// restructuring. Profile pitfalls become explicit avoidance rules.
func systemInstruction(profile *types.ToolProfile) string {
	var b strings.Builder
	b.WriteString("You refine prompts written for AI coding tools. Improve clarity, specificity, ")
	b.WriteString("and actionability of the prompt you are given. Keep its structure, headings, ")
	b.WriteString("and every stated requirement. Return only the refined prompt text.")
	if profile == nil {
		return b.String()
	}
	if profile.Tone != "" {
		fmt.Fprintf(&b, " Match a %s tone.", profile.Tone)
	}
	if profile.OutputFormat != "" {
		fmt.Fprintf(&b, " Keep %s formatting.", profile.OutputFormat)
	}
	for _, pitfall := range profile.CommonPitfalls {
		fmt.Fprintf(&b, " Avoid: %s.", pitfall)
	}
	return b.String()
}

// acceptable rejects completions that would degrade the draft: empty text,
// or text that lost more than half the draft's content.
func acceptable(draft, refined string) bool {
	refined = strings.TrimSpace(refined)
	if refined == "" {
		return false
	}
	return len(refined)*2 >= len(draft)
}

// =============================================================================
// GEMINI WIRE TYPES
// =============================================================================

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content           geminiContent      `json:"content"`
		GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type groundingMetadata struct {
	GroundingChunks []struct {
		Web *struct {
			URI string `json:"uri"`
		} `json:"web,omitempty"`
	} `json:"groundingChunks,omitempty"`
}

// complete calls generateContent and returns the concatenated text parts plus
// any grounding source URIs.
func (e *Enhancer) complete(ctx context.Context, system, prompt string) (string, []string, error) {
	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.3,
			MaxOutputTokens: e.maxTokens,
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", e.baseURL, e.model, e.apiKey)

	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", nil, ctx.Err()
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return "", nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var parsed geminiResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if parsed.Error != nil {
			return "", nil, fmt.Errorf("API error: %s", parsed.Error.Message)
		}
		if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
			return "", nil, fmt.Errorf("no completion returned")
		}

		var result strings.Builder
		for _, part := range parsed.Candidates[0].Content.Parts {
			result.WriteString(part.Text)
		}

		var sources []string
		if gm := parsed.Candidates[0].GroundingMetadata; gm != nil {
			for _, chunk := range gm.GroundingChunks {
				if chunk.Web != nil && chunk.Web.URI != "" {
					sources = append(sources, chunk.Web.URI)
				}
			}
		}

		return strings.TrimSpace(result.String()), sources, nil
	}

	return "", nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
