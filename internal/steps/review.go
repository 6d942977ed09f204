package steps

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JustinDumasCarr/yt-factory/internal/logging"
	"github.com/JustinDumasCarr/yt-factory/internal/project"
)

const maxLeadingSilenceSeconds = 3.0

// Review runs quality control on every generated track and honors the
// manual approval gates (approved.txt / rejected.txt in the project dir).
func (e *Env) Review(ctx context.Context, projectID string) error {
	return e.runStep(ctx, projectID, project.StepReview, e.reviewBody)
}

func (e *Env) reviewBody(ctx context.Context, p *project.Project, log *logging.StepLogger) error {
	if p.ChannelID == "" {
		return fmt.Errorf("validation: project missing channel_id")
	}
	profile, err := e.Channels.Get(p.ChannelID)
	if err != nil {
		return err
	}
	minTrackSeconds := float64(profile.DurationRules.MinTrackSeconds)

	projectDir := e.Store.Dir(p.ProjectID)
	manualApproved, err := readIndexFile(filepath.Join(projectDir, "approved.txt"), log)
	if err != nil {
		return err
	}
	manualRejected, err := readIndexFile(filepath.Join(projectDir, "rejected.txt"), log)
	if err != nil {
		return err
	}

	review := &project.Review{
		ApprovedTrackIndices: []int{},
		RejectedTrackIndices: []int{},
		QCSummary:            map[string]int{},
	}

	for i := range p.Tracks {
		t := &p.Tracks[i]
		if t.Status != project.TrackOK || t.AudioPath == "" {
			continue
		}

		qc := e.checkTrack(ctx, projectDir, t, minTrackSeconds, manualApproved, manualRejected, log)
		t.QC = qc

		if qc.Passed {
			review.ApprovedTrackIndices = append(review.ApprovedTrackIndices, t.TrackIndex)
		} else {
			review.RejectedTrackIndices = append(review.RejectedTrackIndices, t.TrackIndex)
		}
		for _, issue := range qc.Issues {
			review.QCSummary[issue.Code]++
		}

		// Persist per-track so a crash mid-review keeps completed checks.
		if err := e.Store.Save(p); err != nil {
			return err
		}
	}

	review.QCSummary["passed_count"] = len(review.ApprovedTrackIndices)
	review.QCSummary["failed_count"] = len(review.RejectedTrackIndices)

	jsonPath, txtPath, err := e.writeReports(p, review)
	if err != nil {
		return err
	}
	review.QCReportJSONPath = jsonPath
	review.QCReportTextPath = txtPath
	p.Review = review

	log.Info("Review complete: %d approved, %d rejected",
		len(review.ApprovedTrackIndices), len(review.RejectedTrackIndices))
	return nil
}

func (e *Env) checkTrack(ctx context.Context, projectDir string, t *project.Track, minTrackSeconds float64, approved, rejected map[int]bool, log *logging.StepLogger) *project.TrackQC {
	qc := &project.TrackQC{Passed: true, Measured: map[string]float64{}}

	if rejected[t.TrackIndex] {
		qc.Passed = false
		qc.Issues = append(qc.Issues, project.QCIssue{
			Code:    "manually_rejected",
			Message: "track rejected via rejected.txt",
		})
		log.Info("Track %d: manually rejected", t.TrackIndex)
		return qc
	}
	if approved[t.TrackIndex] {
		qc.Issues = append(qc.Issues, project.QCIssue{
			Code:    "manually_approved",
			Message: "track approved via approved.txt",
		})
		log.Info("Track %d: manually approved", t.TrackIndex)
		return qc
	}

	audioPath := filepath.Join(projectDir, t.AudioPath)
	if _, err := os.Stat(audioPath); err != nil {
		qc.Passed = false
		qc.Issues = append(qc.Issues, project.QCIssue{
			Code:    "missing_file",
			Message: fmt.Sprintf("audio file not found: %s", t.AudioPath),
		})
		log.Warn("Track %d: missing audio file", t.TrackIndex)
		return qc
	}

	duration, err := e.Media.DurationSeconds(ctx, audioPath)
	if err != nil {
		qc.Passed = false
		qc.Issues = append(qc.Issues, project.QCIssue{
			Code:    "probe_failed",
			Message: err.Error(),
		})
		log.Warn("Track %d: duration probe failed: %v", t.TrackIndex, err)
		return qc
	}
	qc.Measured["duration_seconds"] = duration
	if duration < minTrackSeconds {
		qc.Passed = false
		v := duration
		qc.Issues = append(qc.Issues, project.QCIssue{
			Code:    "too_short",
			Message: fmt.Sprintf("duration %.1fs below channel minimum %.0fs", duration, minTrackSeconds),
			Value:   &v,
		})
	}

	silence, err := e.Media.LeadingSilenceSeconds(ctx, audioPath)
	if err != nil {
		log.Warn("Track %d: silence detection failed: %v", t.TrackIndex, err)
	} else {
		qc.Measured["leading_silence_seconds"] = silence
		if silence > maxLeadingSilenceSeconds {
			qc.Passed = false
			v := silence
			qc.Issues = append(qc.Issues, project.QCIssue{
				Code:    "leading_silence",
				Message: fmt.Sprintf("%.1fs of leading silence exceeds %.1fs", silence, maxLeadingSilenceSeconds),
				Value:   &v,
			})
		}
	}

	return qc
}

// readIndexFile parses a manual gate file: one track index per line, # for
// comments. A missing file yields an empty set.
func readIndexFile(path string, log *logging.StepLogger) (map[int]bool, error) {
	indices := make(map[int]bool)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return indices, nil
		}
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx, err := strconv.Atoi(line)
		if err != nil {
			log.Warn("Invalid track index in %s: %q", filepath.Base(path), line)
			continue
		}
		indices[idx] = true
	}
	return indices, scanner.Err()
}

func (e *Env) writeReports(p *project.Project, review *project.Review) (string, string, error) {
	outDir := filepath.Join(e.Store.Dir(p.ProjectID), "output")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", err
	}

	type reportTrack struct {
		TrackIndex int              `json:"track_index"`
		Title      string           `json:"title"`
		QC         *project.TrackQC `json:"qc"`
	}
	var tracks []reportTrack
	for _, t := range p.Tracks {
		if t.QC != nil {
			tracks = append(tracks, reportTrack{t.TrackIndex, t.Title, t.QC})
		}
	}

	jsonRel := filepath.Join("output", "qc_report.json")
	data, err := json.MarshalIndent(map[string]any{
		"project_id": p.ProjectID,
		"summary":    review.QCSummary,
		"tracks":     tracks,
	}, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshal qc report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "qc_report.json"), append(data, '\n'), 0o644); err != nil {
		return "", "", fmt.Errorf("write qc report: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "QC report for %s\n\n", p.ProjectID)
	for _, rt := range tracks {
		state := "PASS"
		if !rt.QC.Passed {
			state = "FAIL"
		}
		fmt.Fprintf(&b, "track %02d [%s] %s\n", rt.TrackIndex, state, rt.Title)
		for _, issue := range rt.QC.Issues {
			fmt.Fprintf(&b, "  - %s: %s\n", issue.Code, issue.Message)
		}
	}
	txtRel := filepath.Join("output", "qc_report.txt")
	if err := os.WriteFile(filepath.Join(outDir, "qc_report.txt"), []byte(b.String()), 0o644); err != nil {
		return "", "", fmt.Errorf("write qc report: %w", err)
	}

	return jsonRel, txtRel, nil
}
