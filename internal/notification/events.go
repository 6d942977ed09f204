package notification

import "fmt"

// Event types for pipeline notifications.
const (
	EventUploaded     = "uploaded"
	EventStepFailed   = "step_failed"
	EventBatchDone    = "batch_done"
	EventQueueRunDone = "queue_run_done"
)

// FormatEvent creates a notification message for the given event.
func FormatEvent(event, subject, detail string) string {
	switch event {
	case EventUploaded:
		return fmt.Sprintf("✅ %s uploaded: %s", subject, detail)
	case EventStepFailed:
		return fmt.Sprintf("❌ %s failed: %s", subject, detail)
	case EventBatchDone:
		return fmt.Sprintf("📦 batch %s finished: %s", subject, detail)
	case EventQueueRunDone:
		return fmt.Sprintf("📋 queue run %s finished: %s", subject, detail)
	default:
		return fmt.Sprintf("ℹ️ %s: %s", subject, detail)
	}
}
