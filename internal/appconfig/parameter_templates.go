// internal/appconfig/parameter_templates.go
package appconfig

import "strings"

// ProfileName identifies a sampling preset for the generator.
type ProfileName string

const (
	ProfileAnswer   ProfileName = "answer"
	ProfileGeneric  ProfileName = "generic"
	ProfileCreative ProfileName = "creative"
)

// Parameters defines the sampling parameters forwarded to the generation host.
// Nil fields are left to the host's own defaults.
type Parameters struct {
	Temperature   *float64 `json:"temperature,omitempty" mapstructure:"temperature" yaml:"temperature,omitempty"`
	TopK          *int     `json:"top_k,omitempty" mapstructure:"top_k" yaml:"top_k,omitempty"`
	TopP          *float64 `json:"top_p,omitempty" mapstructure:"top_p" yaml:"top_p,omitempty"`
	MinP          *float64 `json:"min_p,omitempty" mapstructure:"min_p" yaml:"min_p,omitempty"`
	RepeatPenalty *float64 `json:"repeat_penalty,omitempty" mapstructure:"repeat_penalty" yaml:"repeat_penalty,omitempty"`
	Seed          *int64   `json:"seed,omitempty" mapstructure:"seed" yaml:"seed,omitempty"`
	Stop          []string `json:"stop,omitempty" mapstructure:"stop" yaml:"stop,omitempty"`
}

// ParamsForProfile selects a parameter profile by name.
// Behavior:
//   - empty string => Answer (default)
//   - unknown string => Answer (default)
func ParamsForProfile(name string) Parameters {
	switch ProfileName(normalizeProfileName(name)) {
	case ProfileGeneric:
		return DefaultGenericParams()
	case ProfileCreative:
		return DefaultCreativeParams()
	default:
		return DefaultAnswerParams()
	}
}

// DefaultAnswerParams keeps answers short and grounded in the supplied context.
func DefaultAnswerParams() Parameters {
	return Parameters{
		Temperature:   ptrFloat(0.2),
		TopP:          ptrFloat(0.9),
		TopK:          ptrInt(40),
		MinP:          ptrFloat(0.1),
		RepeatPenalty: ptrFloat(1.1),
		Seed:          ptrInt64(42),
	}
}

// DefaultGenericParams is a general chat preset.
func DefaultGenericParams() Parameters {
	return Parameters{
		Temperature:   ptrFloat(0.7),
		TopP:          ptrFloat(1.0),
		MinP:          ptrFloat(0.08),
		RepeatPenalty: ptrFloat(1.1),
		Seed:          ptrInt64(-1),
	}
}

// DefaultCreativeParams trades determinism for variety.
func DefaultCreativeParams() Parameters {
	return Parameters{
		Temperature:   ptrFloat(1.2),
		TopP:          ptrFloat(1.0),
		MinP:          ptrFloat(0.15),
		RepeatPenalty: ptrFloat(1.05),
		Seed:          ptrInt64(-1),
	}
}

func mergeParams(base Parameters, override Parameters) Parameters {
	if override.Temperature != nil {
		base.Temperature = override.Temperature
	}
	if override.TopK != nil {
		base.TopK = override.TopK
	}
	if override.TopP != nil {
		base.TopP = override.TopP
	}
	if override.MinP != nil {
		base.MinP = override.MinP
	}
	if override.RepeatPenalty != nil {
		base.RepeatPenalty = override.RepeatPenalty
	}
	if override.Seed != nil {
		base.Seed = override.Seed
	}
	if override.Stop != nil {
		base.Stop = override.Stop
	}
	return base
}

func normalizeProfileName(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "default", "short", "qa", "fact", "factchecker":
		return string(ProfileAnswer)
	case "chat", "generic_chat", "generic-chat":
		return string(ProfileGeneric)
	case "creative_writing", "creative-writing", "writer":
		return string(ProfileCreative)
	default:
		return s
	}
}

// Pointer helpers (keeps structs clean + preserves unset vs explicitly set).
func ptrInt(v int) *int           { return &v }
func ptrInt64(v int64) *int64     { return &v }
func ptrFloat(v float64) *float64 { return &v }
