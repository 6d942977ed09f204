// Package logsummary parses step log files into structured summaries so a
// batch run can be triaged without opening every project's logs.
package logsummary

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Entry is one parsed log line.
type Entry struct {
	Timestamp string `json:"timestamp"`
	Step      string `json:"step"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// ErrorStats aggregates error counts for a step.
type ErrorStats struct {
	Total      int            `json:"total"`
	ByKind     map[string]int `json:"by_kind"`
	ByProvider map[string]int `json:"by_provider"`
}

// RetryStats counts retry-related log lines.
type RetryStats struct {
	Total int `json:"total"`
}

// StepSummary is the structured result of analyzing one step's log.
type StepSummary struct {
	ProjectID    string     `json:"project_id"`
	Step         string     `json:"step"`
	Status       string     `json:"status"` // success | failed | no_logs | empty
	TotalEntries int        `json:"total_entries"`
	Errors       ErrorStats `json:"errors"`
	Retries      RetryStats `json:"retries"`
}

// lineRe matches the StepLogger line format:
// [2006-01-02 15:04:05] [STEP] [LEVEL] message
var lineRe = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\] \[(\w+)\] \[(\w+)\] (.+)$`)

// ParseLog reads and parses a step log file. A missing file yields nil, nil.
func ParseLog(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	defer f.Close()

	// Non-nil from here on: an empty file parses to zero entries, which is
	// distinct from the file not existing at all.
	entries := []Entry{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := lineRe.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		entries = append(entries, Entry{
			Timestamp: m[1],
			Step:      strings.ToLower(m[2]),
			Level:     m[3],
			Message:   m[4],
		})
	}
	return entries, scanner.Err()
}

// Generate builds the summary for one step of a project.
func Generate(projectDir, projectID, step string) (*StepSummary, error) {
	summary := &StepSummary{
		ProjectID: projectID,
		Step:      step,
		Errors:    ErrorStats{ByKind: map[string]int{}, ByProvider: map[string]int{}},
	}

	entries, err := ParseLog(filepath.Join(projectDir, "logs", step+".log"))
	if err != nil {
		return nil, err
	}
	if entries == nil {
		summary.Status = "no_logs"
		return summary, nil
	}
	if len(entries) == 0 {
		summary.Status = "empty"
		return summary, nil
	}

	summary.TotalEntries = len(entries)
	for _, e := range entries {
		lower := strings.ToLower(e.Message)
		if e.Level == "ERROR" {
			summary.Errors.Total++
			summary.Errors.ByKind[classifyMessage(lower)]++
			if provider := detectProvider(lower); provider != "" {
				summary.Errors.ByProvider[provider]++
			}
		}
		if strings.Contains(lower, "retry") {
			summary.Retries.Total++
		}
	}

	if summary.Errors.Total == 0 {
		summary.Status = "success"
	} else {
		summary.Status = "failed"
	}
	return summary, nil
}

// Save writes the summary next to the log it describes.
func Save(projectDir, step string, summary *StepSummary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	path := filepath.Join(projectDir, "logs", step+"_summary.json")
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

// classifyMessage mirrors the error taxonomy on plain log text. Coarser than
// the structured classifier, but log lines only carry the message.
func classifyMessage(lower string) string {
	switch {
	case strings.Contains(lower, "auth") || strings.Contains(lower, "401") || strings.Contains(lower, "403"):
		return "auth"
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "rate_limit") ||
		strings.Contains(lower, "429") || strings.Contains(lower, "quota"):
		return "rate_limit"
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return "timeout"
	case strings.Contains(lower, "ffmpeg") || strings.Contains(lower, "ffprobe"):
		return "ffmpeg"
	case strings.Contains(lower, "validation") || strings.Contains(lower, "invalid"):
		return "validation"
	default:
		return "unknown"
	}
}

func detectProvider(lower string) string {
	switch {
	case strings.Contains(lower, "suno"):
		return "suno"
	case strings.Contains(lower, "gemini"):
		return "gemini"
	case strings.Contains(lower, "youtube"):
		return "youtube"
	default:
		return ""
	}
}
