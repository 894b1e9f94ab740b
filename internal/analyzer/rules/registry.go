package rules

import "github.com/aqasim81/table-tracking/internal/analyzer"

// NewDefaultRegistry returns a Registry with the built-in replay safety
// rules, minus the rule IDs listed in disabled.
func NewDefaultRegistry(disabled ...string) *analyzer.Registry {
	r := analyzer.NewRegistry()
	r.Register(NewDropTableRule())
	r.Register(NewUnfilteredDMLRule())
	r.Register(NewAlterColumnTypeRule())
	r.Register(NewCreateIndexRule())
	r.Register(NewRenameRule())

	if len(disabled) == 0 {
		return r
	}

	return r.Without(disabled...)
}
