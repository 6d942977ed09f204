package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/JustinDumasCarr/yt-factory/internal/pipe"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const planSystemPrompt = `You are a music director planning a long-form instrumental compilation.
Respond with ONLY valid JSON, no markdown fences, no commentary.

The JSON must have exactly these fields:
- "jobs": array of objects with "style" (genre string), "title" (base track title),
  "prompt" (musical description: mood, instrumentation, tempo) and optional "lyrics"
- "title": string, YouTube video title
- "description": string, YouTube video description
- "tags": array of strings`

// GeminiClient implements Planner against the Gemini generateContent API.
type GeminiClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGeminiClient builds a client from GEMINI_API_KEY (required) and GEMINI_MODEL.
func NewGeminiClient() (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: GEMINI_API_KEY environment variable is not set")
	}
	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiClient{
		baseURL:    geminiBaseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type planJSON struct {
	Jobs []struct {
		Style  string `json:"style"`
		Title  string `json:"title"`
		Prompt string `json:"prompt"`
		Lyrics string `json:"lyrics"`
	} `json:"jobs"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// GeneratePlan asks Gemini for track prompts and video metadata.
func (c *GeminiClient) GeneratePlan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	userPrompt := buildPlanPrompt(req)

	payload := map[string]any{
		"system_instruction": map[string]any{
			"parts": []map[string]string{{"text": planSystemPrompt}},
		},
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]string{{"text": userPrompt}}},
		},
		"generationConfig": map[string]any{
			"temperature":      0.8,
			"responseMimeType": "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini generateContent: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini generateContent: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &pipe.HTTPError{
			Provider:   pipe.ProviderGemini,
			Operation:  "generateContent",
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	var genResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("gemini generateContent: invalid response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini generateContent: empty candidates in response")
	}

	text := stripJSONFences(genResp.Candidates[0].Content.Parts[0].Text)
	var plan planJSON
	if err := json.Unmarshal([]byte(text), &plan); err != nil {
		return nil, fmt.Errorf("gemini plan: response is not valid JSON: %w", err)
	}
	if len(plan.Jobs) == 0 {
		return nil, fmt.Errorf("gemini plan: no jobs in response")
	}

	result := &PlanResult{
		Title:       plan.Title,
		Description: plan.Description,
		Tags:        plan.Tags,
	}
	for _, j := range plan.Jobs {
		result.Jobs = append(result.Jobs, PlannedJob{
			Style:  j.Style,
			Title:  j.Title,
			Prompt: j.Prompt,
			Lyrics: j.Lyrics,
		})
	}
	return result, nil
}

func buildPlanPrompt(req PlanRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Theme: %s\n", req.Theme)
	fmt.Fprintf(&b, "Plan exactly %d generation jobs (each job yields two track variants).\n", req.JobCount)
	fmt.Fprintf(&b, "Target compilation length: %d minutes.\n", req.TargetMinutes)
	if req.Vocals {
		b.WriteString("Tracks have vocals.")
		if req.Lyrics {
			b.WriteString(" Include a \"lyrics\" field with full lyrics for every job.")
		}
		b.WriteString("\n")
	} else {
		b.WriteString("All tracks are instrumental.\n")
	}
	if req.EnergyLevel != "" {
		fmt.Fprintf(&b, "Energy level: %s.\n", req.EnergyLevel)
	}
	if req.StyleGuidance != "" {
		fmt.Fprintf(&b, "Style guidance: %s\n", req.StyleGuidance)
	}
	if len(req.BannedTerms) > 0 {
		fmt.Fprintf(&b, "Never use these terms: %s.\n", strings.Join(req.BannedTerms, ", "))
	}
	return b.String()
}

// stripJSONFences removes markdown code fences the model sometimes adds
// despite instructions.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
