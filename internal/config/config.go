// Package config defines the ytf configuration model and default values.
//
// Configuration is assembled from multiple sources with a strict precedence
// chain: built-in defaults < global config file < workspace config file <
// explicit config file < environment overrides. The resulting Config is
// passed explicitly to every component; nothing reads these values from
// globals after startup.
package config

// WhitelistedVars lists every configuration variable name that may appear in
// config files or the environment. Variables not in this list are silently
// ignored during loading.
var WhitelistedVars = [8]string{
	"YTF_PROJECTS_DIR",
	"YTF_QUEUE_DIR",
	"YTF_CHANNELS_DIR",
	"YTF_MAX_TRACK_ATTEMPTS",
	"YTF_MAX_STEP_ATTEMPTS",
	"YTF_POLL_TIMEOUT_MINUTES",
	"YTF_ENCODE_TIMEOUT_MINUTES",
	"VERBOSE",
}

// Config holds every configuration field for the ytf CLI.
type Config struct {
	// Filesystem roots.
	ProjectsDir string
	QueueDir    string
	ChannelsDir string

	// Attempt caps.
	MaxTrackAttempts int // per-track cap in the generate step
	MaxStepAttempts  int // per-step cap in batch/queue retry wrapping

	// Timeouts, minutes.
	PollTimeoutMinutes   int
	EncodeTimeoutMinutes int

	// Runtime flags.
	Verbose bool

	// CLI-only, never loaded from files.
	ConfigFile string
}

// NewDefaultConfig returns a Config populated with all built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		ProjectsDir:          "projects",
		QueueDir:             "queue",
		ChannelsDir:          "channels",
		MaxTrackAttempts:     2,
		MaxStepAttempts:      3,
		PollTimeoutMinutes:   20,
		EncodeTimeoutMinutes: 45,
	}
}
