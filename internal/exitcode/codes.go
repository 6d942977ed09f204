// Package exitcode defines named exit codes for the ytf CLI.
//
// Each code maps a specific termination condition to a numeric value
// recognized by shell scripts and CI pipelines.
package exitcode

// Exit code constants.
const (
	Success       = 0   // Requested work completed
	Error         = 1   // Invalid args, file not found, misconfiguration
	StepFailed    = 2   // A pipeline step failed; state persisted for resume
	QueueFailures = 3   // Queue run finished but some items failed
	ChecksFailed  = 4   // Doctor found unmet prerequisites
	Interrupted   = 130 // SIGINT/SIGTERM received
)

// Name returns the human-readable name for the given exit code.
// Unknown codes return "unknown".
func Name(code int) string {
	switch code {
	case Success:
		return "Success"
	case Error:
		return "Error"
	case StepFailed:
		return "StepFailed"
	case QueueFailures:
		return "QueueFailures"
	case ChecksFailed:
		return "ChecksFailed"
	case Interrupted:
		return "Interrupted"
	default:
		return "unknown"
	}
}
