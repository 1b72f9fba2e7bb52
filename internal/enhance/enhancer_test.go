package enhance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"promptforge/internal/config"
	"promptforge/internal/types"
)

const testDraft = "# TaskTracker for Cursor\n\nBuild a task tracker with Next.js.\n"

func testEnhancer(t *testing.T, handler http.HandlerFunc) (*Enhancer, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	e := NewEnhancer(config.EnhancementConfig{
		Enabled: true,
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gemini-test",
	}, 5*time.Second)
	return e, server
}

func candidateResponse(text string, sources ...string) []byte {
	resp := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content": map[string]interface{}{
					"role":  "model",
					"parts": []map[string]string{{"text": text}},
				},
			},
		},
	}
	if len(sources) > 0 {
		chunks := make([]map[string]interface{}, 0, len(sources))
		for _, s := range sources {
			chunks = append(chunks, map[string]interface{}{"web": map[string]string{"uri": s}})
		}
		resp["candidates"].([]map[string]interface{})[0]["groundingMetadata"] = map[string]interface{}{
			"groundingChunks": chunks,
		}
	}
	data, _ := json.Marshal(resp)
	return data
}

func TestEnhanceDisabledIsPassThrough(t *testing.T) {
	e := NewEnhancer(config.EnhancementConfig{Enabled: false}, time.Second)
	if e.Enabled() {
		t.Fatal("enhancer should be disabled")
	}

	text, outcome := e.Enhance(context.Background(), testDraft, nil)
	if text != testDraft {
		t.Errorf("disabled enhancer changed the draft")
	}
	if outcome.Applied {
		t.Errorf("disabled enhancer reported Applied=true")
	}

	// Enabled flag without a key is still disabled.
	e = NewEnhancer(config.EnhancementConfig{Enabled: true}, time.Second)
	if e.Enabled() {
		t.Fatal("keyless enhancer should be disabled")
	}
}

func TestEnhanceAppliesRefinement(t *testing.T) {
	refined := testDraft + "\n## Acceptance Criteria\n- Tasks persist across reloads\n"

	var gotSystem string
	e, _ := testEnhancer(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.SystemInstruction != nil && len(req.SystemInstruction.Parts) > 0 {
			gotSystem = req.SystemInstruction.Parts[0].Text
		}
		w.Write(candidateResponse(refined, "https://example.com/docs"))
	})

	profile := &types.ToolProfile{
		ID:             "cursor",
		DisplayName:    "Cursor",
		Tone:           "direct",
		CommonPitfalls: []string{"vague feature lists"},
	}
	text, outcome := e.Enhance(context.Background(), testDraft, profile)
	if !outcome.Applied {
		t.Fatal("expected Applied=true")
	}
	if text != strings.TrimSpace(refined) {
		t.Errorf("refined text mismatch:\n%s", text)
	}
	if outcome.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", outcome.Confidence)
	}
	if len(outcome.Sources) != 1 || outcome.Sources[0] != "https://example.com/docs" {
		t.Errorf("Sources = %v", outcome.Sources)
	}
	if !strings.Contains(gotSystem, "direct") || !strings.Contains(gotSystem, "vague feature lists") {
		t.Errorf("system instruction missing profile details: %q", gotSystem)
	}
}

func TestEnhanceServerErrorReturnsDraft(t *testing.T) {
	e, _ := testEnhancer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	text, outcome := e.Enhance(context.Background(), testDraft, nil)
	if text != testDraft {
		t.Errorf("failed enhancement must return the draft unchanged")
	}
	if outcome.Applied {
		t.Errorf("failed enhancement reported Applied=true")
	}
}

func TestEnhanceRejectsSuspectCompletions(t *testing.T) {
	cases := map[string]string{
		"empty":     "",
		"truncated": "ok",
	}
	for name, completion := range cases {
		t.Run(name, func(t *testing.T) {
			e, _ := testEnhancer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write(candidateResponse(completion))
			})
			text, outcome := e.Enhance(context.Background(), testDraft, nil)
			if text != testDraft || outcome.Applied {
				t.Errorf("suspect completion %q should be rejected", completion)
			}
		})
	}
}

func TestEnhanceEmptyDraftIsPassThrough(t *testing.T) {
	e, _ := testEnhancer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent for an empty draft")
	})
	text, outcome := e.Enhance(context.Background(), "  ", nil)
	if text != "  " || outcome.Applied {
		t.Errorf("empty draft should pass through untouched")
	}
}

func TestEnhanceContextCancellation(t *testing.T) {
	e, _ := testEnhancer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write(candidateResponse(testDraft + " refined with more detail for good measure"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	text, outcome := e.Enhance(ctx, testDraft, nil)
	if text != testDraft || outcome.Applied {
		t.Errorf("cancelled enhancement must return the draft unchanged")
	}
}

func TestAcceptable(t *testing.T) {
	if acceptable("a long enough draft text", "") {
		t.Error("empty refinement accepted")
	}
	if acceptable(strings.Repeat("x", 100), strings.Repeat("y", 40)) {
		t.Error("refinement that lost over half the draft accepted")
	}
	if !acceptable("draft", "a refined draft") {
		t.Error("reasonable refinement rejected")
	}
}
