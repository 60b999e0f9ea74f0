package config

// NamespaceDefaults are the parameters applied to a namespace at creation
// time when the request body leaves them unset. Width/height/visibility
// are then immutable for the namespace's lifetime (§3, §9).
type NamespaceDefaults struct {
	Width             int    `yaml:"width"`
	Height            int    `yaml:"height"`
	ScoringInterval   int64  `yaml:"scoring_interval"`
	Epoch             int64  `yaml:"epoch"`
	VisibilityRadius  *int   `yaml:"visibility_radius"`
	PointsEnabled     bool   `yaml:"points_enabled"`
	DefaultGoal       string `yaml:"default_goal"`
	ChatHistoryLength int    `yaml:"chat_history_length"`
}

// DefaultNamespaceDefaults returns Monument's built-in defaults, used when
// no YAML overrides file is present and as the base that YAML overrides
// are merged onto.
func DefaultNamespaceDefaults() NamespaceDefaults {
	return NamespaceDefaults{
		Width:             32,
		Height:            32,
		ScoringInterval:   10,
		Epoch:             1000,
		VisibilityRadius:  nil,
		PointsEnabled:     false,
		DefaultGoal:       "",
		ChatHistoryLength: 20,
	}
}
