package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/JustinDumasCarr/yt-factory/internal/pipe"
)

const sunoBaseURL = "https://api.sunoapi.org"

// SunoClient implements Music against the Suno API. Poll-only strategy; the
// callback URL is required by the API but never served.
type SunoClient struct {
	baseURL     string
	apiKey      string
	model       string
	callbackURL string
	httpClient  *http.Client
}

// NewSunoClient builds a client from SUNO_API_KEY (required), SUNO_MODEL,
// and SUNO_CALLBACK_URL.
func NewSunoClient() (*SunoClient, error) {
	apiKey := os.Getenv("SUNO_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("suno: SUNO_API_KEY environment variable is not set")
	}
	model := os.Getenv("SUNO_MODEL")
	if model == "" {
		model = "V4_5ALL"
	}
	callback := os.Getenv("SUNO_CALLBACK_URL")
	if callback == "" {
		callback = "http://localhost/ytf-suno-callback-disabled"
	}
	return &SunoClient{
		baseURL:     sunoBaseURL,
		apiKey:      apiKey,
		model:       model,
		callbackURL: callback,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type sunoEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// SubmitJob submits a generation request and returns the task ID.
func (c *SunoClient) SubmitJob(ctx context.Context, req JobRequest) (string, error) {
	payload := map[string]any{
		"customMode":   true,
		"instrumental": req.Instrumental,
		"model":        c.model,
		"callBackUrl":  c.callbackURL,
		"style":        req.Style,
		"title":        req.Title,
	}
	if !req.Instrumental {
		if req.Lyrics == "" {
			return "", fmt.Errorf("suno: lyrics are required when instrumental is false")
		}
		payload["prompt"] = req.Lyrics
	}

	env, err := c.post(ctx, "/api/v1/generate", payload)
	if err != nil {
		return "", err
	}
	if env.Code != 200 {
		return "", fmt.Errorf("suno generate: code=%d msg=%q", env.Code, env.Msg)
	}

	var data struct {
		TaskID string `json:"taskId"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.TaskID == "" {
		return "", fmt.Errorf("suno generate: response missing taskId: %s", env.Data)
	}
	return data.TaskID, nil
}

type sunoTrack struct {
	AudioURL       string  `json:"audioUrl"`
	StreamAudioURL string  `json:"streamAudioUrl"`
	Duration       float64 `json:"duration"`
}

// PollJob fetches the record info for a task and maps it to a JobStatus.
// The task counts as complete once at least one variant has an audio URL.
func (c *SunoClient) PollJob(ctx context.Context, taskID string) (*JobStatus, error) {
	q := url.Values{"taskId": {taskID}}
	body, err := c.get(ctx, "/api/v1/generate/record-info?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var env sunoEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("suno record-info: invalid response: %w", err)
	}
	if env.Code != 200 {
		return &JobStatus{
			State:        JobFailed,
			ErrorMessage: env.Msg,
			Raw:          string(body),
		}, nil
	}

	var data struct {
		Response struct {
			SunoData []sunoTrack `json:"sunoData"`
		} `json:"response"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("suno record-info: invalid data payload: %w", err)
	}

	hasAudio := false
	variants := make([]Variant, 0, len(data.Response.SunoData))
	for _, t := range data.Response.SunoData {
		if t.AudioURL != "" {
			hasAudio = true
		}
		variants = append(variants, Variant{
			AudioURL:        t.AudioURL,
			StreamAudioURL:  t.StreamAudioURL,
			DurationSeconds: t.Duration,
		})
	}

	if hasAudio {
		return &JobStatus{State: JobComplete, Variants: variants, Raw: string(body)}, nil
	}
	return &JobStatus{State: JobPending, Raw: string(body)}, nil
}

// DownloadAudio fetches an audio artifact to destPath.
func (c *SunoClient) DownloadAudio(ctx context.Context, audioURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return fmt.Errorf("suno download: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("suno download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &pipe.HTTPError{
			Provider:   pipe.ProviderSuno,
			Operation:  "download",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("suno download: %w", err)
	}
	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("suno download: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("suno download: write %s: %w", destPath, err)
	}
	return nil
}

func (c *SunoClient) post(ctx context.Context, path string, payload any) (*sunoEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("suno: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("suno: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req, path)
	if err != nil {
		return nil, err
	}
	var env sunoEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("suno %s: invalid response: %w", path, err)
	}
	return &env, nil
}

func (c *SunoClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("suno: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(req, path)
}

func (c *SunoClient) do(req *http.Request, path string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("suno %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("suno %s: read response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &pipe.HTTPError{
			Provider:   pipe.ProviderSuno,
			Operation:  path,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	return body, nil
}
