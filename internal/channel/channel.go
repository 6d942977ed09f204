// Package channel loads per-channel profile YAML files. A profile defines
// the channel's duration rules, prompt constraints, metadata templates, and
// upload defaults consumed by the pipeline steps.
package channel

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DurationRules bounds video length and track counts for a channel.
type DurationRules struct {
	TargetMinutes   int `yaml:"target_minutes"`
	MinMinutes      int `yaml:"min_minutes"`
	MaxMinutes      int `yaml:"max_minutes"`
	TrackCount      int `yaml:"track_count"`
	MinTrackSeconds int `yaml:"min_track_seconds"`
}

// PromptConstraints guide plan generation.
type PromptConstraints struct {
	DefaultInstrumental bool     `yaml:"default_instrumental"`
	DefaultVocals       bool     `yaml:"default_vocals"`
	EnergyLevel         string   `yaml:"energy_level"`
	BannedTerms         []string `yaml:"banned_terms"`
	StyleGuidance       string   `yaml:"style_guidance"`
}

// TitleTemplate is one title variant with {theme} style placeholders.
type TitleTemplate struct {
	Template string `yaml:"template"`
	Example  string `yaml:"example"`
}

// DescriptionTemplate holds the video description skeleton.
type DescriptionTemplate struct {
	Template string `yaml:"template"`
	CTABlock string `yaml:"cta_block"`
}

// TagRules restricts the planned tag set.
type TagRules struct {
	Whitelist   []string `yaml:"whitelist"`
	BannedTerms []string `yaml:"banned_terms"`
}

// UploadDefaults seeds the project upload settings.
type UploadDefaults struct {
	Privacy         string `yaml:"privacy"`
	CategoryID      string `yaml:"category_id"`
	DefaultLanguage string `yaml:"default_language"`
	MadeForKids     bool   `yaml:"made_for_kids"`
}

// Profile is a complete channel configuration.
type Profile struct {
	ChannelID           string              `yaml:"channel_id"`
	Name                string              `yaml:"name"`
	Intent              string              `yaml:"intent"`
	DurationRules       DurationRules       `yaml:"duration_rules"`
	PromptConstraints   PromptConstraints   `yaml:"prompt_constraints"`
	TitleTemplates      []TitleTemplate     `yaml:"title_templates"`
	DescriptionTemplate DescriptionTemplate `yaml:"description_template"`
	TagRules            TagRules            `yaml:"tag_rules"`
	UploadDefaults      UploadDefaults      `yaml:"upload_defaults"`
}

// Registry resolves channel profiles from a directory of <id>.yaml files.
type Registry struct {
	Dir string
}

// NewRegistry returns a registry rooted at dir.
func NewRegistry(dir string) *Registry {
	return &Registry{Dir: dir}
}

// Get loads and validates a channel profile by ID.
func (r *Registry) Get(channelID string) (*Profile, error) {
	path := filepath.Join(r.Dir, channelID+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("channel profile not found: %s (expected %s)", channelID, path)
		}
		return nil, fmt.Errorf("read channel profile: %w", err)
	}

	p := &Profile{
		DurationRules: DurationRules{
			TargetMinutes:   60,
			MinMinutes:      30,
			MaxMinutes:      480,
			TrackCount:      25,
			MinTrackSeconds: 60,
		},
		PromptConstraints: PromptConstraints{
			DefaultInstrumental: true,
			EnergyLevel:         "medium",
		},
		UploadDefaults: UploadDefaults{
			Privacy:         "unlisted",
			CategoryID:      "10",
			DefaultLanguage: "en",
		},
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("invalid channel profile %s: %w", channelID, err)
	}
	if p.ChannelID == "" {
		p.ChannelID = channelID
	}
	if p.ChannelID != channelID {
		return nil, fmt.Errorf("channel profile %s declares mismatched channel_id %q", channelID, p.ChannelID)
	}
	return p, nil
}
