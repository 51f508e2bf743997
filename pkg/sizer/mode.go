package sizer

import (
	"fmt"

	herrors "github.com/matzehuels/heapmeter/pkg/errors"
)

// Mode selects the sizing strategy and its fallback ordering. The zero value
// is [ModeNever], which refuses to guess: measurement fails unless a host
// probe is attached.
type Mode int

const (
	// ModeNever uses the host probe, failing if none is attached.
	ModeNever Mode = iota

	// ModeFallbackToLowLevelAccessor uses the host probe if attached,
	// otherwise the low-level accessor, failing if that is unavailable too.
	ModeFallbackToLowLevelAccessor

	// ModeFallbackBest uses the host probe if attached, otherwise the
	// low-level accessor, otherwise the layout spec. Never fails.
	ModeFallbackBest

	// ModeFallbackToLayoutSpec uses the host probe if attached, otherwise
	// the layout spec. Never fails.
	ModeFallbackToLayoutSpec

	// ModeAlwaysLayoutSpec always uses the layout spec, even when a probe
	// is attached.
	ModeAlwaysLayoutSpec

	// ModeAlwaysLowLevelAccessor always uses the low-level accessor,
	// failing if it is unavailable, even when a probe is attached.
	ModeAlwaysLowLevelAccessor
)

var modeNames = map[Mode]string{
	ModeNever:                      "never",
	ModeFallbackToLowLevelAccessor: "fallback-low-level",
	ModeFallbackBest:               "fallback-best",
	ModeFallbackToLayoutSpec:       "fallback-spec",
	ModeAlwaysLayoutSpec:           "always-spec",
	ModeAlwaysLowLevelAccessor:     "always-low-level",
}

// String returns the canonical name of the mode.
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode converts a mode name (as used in config files and CLI flags)
// into a Mode. Returns an INVALID_MODE error for unknown names.
func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return ModeNever, herrors.New(herrors.ErrCodeInvalidMode, "unknown sizing mode %q", name)
}

// ModeNames returns the canonical names of all modes, for help output.
func ModeNames() []string {
	return []string{
		modeNames[ModeNever],
		modeNames[ModeFallbackToLowLevelAccessor],
		modeNames[ModeFallbackBest],
		modeNames[ModeFallbackToLayoutSpec],
		modeNames[ModeAlwaysLayoutSpec],
		modeNames[ModeAlwaysLowLevelAccessor],
	}
}

// Resolve evaluates the mode's decision table against the currently attached
// capabilities and returns the Sizer to use for one measurement call.
// Returns an UNAVAILABLE_CAPABILITY error when the mode requires a
// capability that is not present.
func Resolve(mode Mode) (Sizer, error) {
	switch mode {
	case ModeAlwaysLayoutSpec:
		return NewSpecSizer(DefaultLayoutSpec()), nil
	case ModeAlwaysLowLevelAccessor:
		if !HasLowLevelAccess() {
			return nil, herrors.New(herrors.ErrCodeUnavailableCapability,
				"sizing mode %s requires low-level access, which is unavailable", mode)
		}
		return NewLowLevelSizer(), nil
	}

	if p := attachedProbe(); p != nil {
		return probeSizer{probe: p}, nil
	}

	switch mode {
	case ModeNever:
		return nil, herrors.New(herrors.ErrCodeUnavailableCapability,
			"no sizing probe is attached; attach one with sizer.AttachProbe or pick a fallback mode")
	case ModeFallbackToLowLevelAccessor:
		if !HasLowLevelAccess() {
			return nil, herrors.New(herrors.ErrCodeUnavailableCapability,
				"no sizing probe is attached and low-level access is unavailable")
		}
		return NewLowLevelSizer(), nil
	case ModeFallbackBest:
		if HasLowLevelAccess() {
			return NewLowLevelSizer(), nil
		}
		return NewSpecSizer(DefaultLayoutSpec()), nil
	case ModeFallbackToLayoutSpec:
		return NewSpecSizer(DefaultLayoutSpec()), nil
	}

	return nil, herrors.New(herrors.ErrCodeInvalidMode, "unknown sizing mode %d", int(mode))
}
