package search

import "fmt"

// Mode selects the retrieval strategy for a query.
type Mode string

const (
	// ModeNaive retrieves by vector similarity only.
	ModeNaive Mode = "naive"
	// ModeLocal anchors retrieval on the entities named in the query.
	ModeLocal Mode = "local"
	// ModeGlobal expands through entities similar to the query vector.
	ModeGlobal Mode = "global"
	// ModeHybrid fuses vector similarity with both entity strategies.
	ModeHybrid Mode = "hybrid"
	// ModeBypass skips retrieval entirely; answers come straight from
	// the model.
	ModeBypass Mode = "bypass"
)

// ParseMode maps a mode name to a Mode.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case ModeNaive, ModeLocal, ModeGlobal, ModeHybrid, ModeBypass:
		return Mode(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// usesSemantic reports whether the mode includes vector retrieval.
func (m Mode) usesSemantic() bool {
	return m == ModeNaive || m == ModeHybrid
}

// usesLocalEntities reports whether the mode matches query entities exactly.
func (m Mode) usesLocalEntities() bool {
	return m == ModeLocal || m == ModeHybrid
}

// usesGlobalEntities reports whether the mode expands via entity similarity.
func (m Mode) usesGlobalEntities() bool {
	return m == ModeGlobal || m == ModeHybrid
}
