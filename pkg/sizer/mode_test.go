package sizer

import (
	"reflect"
	"testing"

	herrors "github.com/matzehuels/heapmeter/pkg/errors"
)

// stubProbe reports a fixed size for every block.
type stubProbe struct {
	size uint64
}

func (p stubProbe) ShallowSizeOf(t reflect.Type, v reflect.Value) uint64 {
	return p.size
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Mode
		wantErr bool
	}{
		{name: "never", input: "never", want: ModeNever},
		{name: "fallback-low-level", input: "fallback-low-level", want: ModeFallbackToLowLevelAccessor},
		{name: "fallback-best", input: "fallback-best", want: ModeFallbackBest},
		{name: "fallback-spec", input: "fallback-spec", want: ModeFallbackToLayoutSpec},
		{name: "always-spec", input: "always-spec", want: ModeAlwaysLayoutSpec},
		{name: "always-low-level", input: "always-low-level", want: ModeAlwaysLowLevelAccessor},
		{name: "unknown", input: "guess-harder", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				if !herrors.Is(err, herrors.ErrCodeInvalidMode) {
					t.Errorf("error code = %v, want INVALID_MODE", herrors.GetCode(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestModeRoundTrip(t *testing.T) {
	for _, name := range ModeNames() {
		m, err := ParseMode(name)
		if err != nil {
			t.Fatalf("ParseMode(%q) error = %v", name, err)
		}
		if m.String() != name {
			t.Errorf("String() = %q, want %q", m.String(), name)
		}
	}
}

func TestResolveDecisionTable(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		probe    bool
		lowLevel bool
		want     string // "probe", "low-level", "spec", or "" for error
	}{
		{name: "never without probe", mode: ModeNever, probe: false, lowLevel: true, want: ""},
		{name: "never with probe", mode: ModeNever, probe: true, lowLevel: true, want: "probe"},

		{name: "fallback-low-level without probe", mode: ModeFallbackToLowLevelAccessor, probe: false, lowLevel: true, want: "low-level"},
		{name: "fallback-low-level without probe or access", mode: ModeFallbackToLowLevelAccessor, probe: false, lowLevel: false, want: ""},
		{name: "fallback-low-level with probe", mode: ModeFallbackToLowLevelAccessor, probe: true, lowLevel: true, want: "probe"},

		{name: "fallback-best prefers low-level", mode: ModeFallbackBest, probe: false, lowLevel: true, want: "low-level"},
		{name: "fallback-best degrades to spec", mode: ModeFallbackBest, probe: false, lowLevel: false, want: "spec"},
		{name: "fallback-best with probe", mode: ModeFallbackBest, probe: true, lowLevel: true, want: "probe"},

		{name: "fallback-spec without probe", mode: ModeFallbackToLayoutSpec, probe: false, lowLevel: true, want: "spec"},
		{name: "fallback-spec with probe", mode: ModeFallbackToLayoutSpec, probe: true, lowLevel: true, want: "probe"},

		{name: "always-spec ignores probe", mode: ModeAlwaysLayoutSpec, probe: true, lowLevel: true, want: "spec"},
		{name: "always-spec without probe", mode: ModeAlwaysLayoutSpec, probe: false, lowLevel: false, want: "spec"},

		{name: "always-low-level ignores probe", mode: ModeAlwaysLowLevelAccessor, probe: true, lowLevel: true, want: "low-level"},
		{name: "always-low-level without access", mode: ModeAlwaysLowLevelAccessor, probe: false, lowLevel: false, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			DetachProbe()
			if tt.probe {
				AttachProbe(stubProbe{size: 1})
			}
			prev := lowLevelAccess
			lowLevelAccess = tt.lowLevel
			defer func() {
				lowLevelAccess = prev
				DetachProbe()
			}()

			s, err := Resolve(tt.mode)
			if tt.want == "" {
				if err == nil {
					t.Fatalf("Resolve(%v) error = nil, want UNAVAILABLE_CAPABILITY", tt.mode)
				}
				if !herrors.Is(err, herrors.ErrCodeUnavailableCapability) {
					t.Fatalf("error code = %v, want UNAVAILABLE_CAPABILITY", herrors.GetCode(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%v) error = %v", tt.mode, err)
			}

			var got string
			switch s.(type) {
			case probeSizer:
				got = "probe"
			case lowLevelSizer:
				got = "low-level"
			case *specSizer:
				got = "spec"
			default:
				got = "unknown"
			}
			if got != tt.want {
				t.Errorf("Resolve(%v) strategy = %s, want %s", tt.mode, got, tt.want)
			}
		})
	}
}

func TestProbeRegistry(t *testing.T) {
	DetachProbe()
	defer DetachProbe()

	if HasProbe() {
		t.Fatal("HasProbe() = true before attach")
	}

	AttachProbe(stubProbe{size: 64})
	if !HasProbe() {
		t.Fatal("HasProbe() = false after attach")
	}

	s, err := Resolve(ModeNever)
	if err != nil {
		t.Fatalf("Resolve(ModeNever) error = %v", err)
	}
	if got := s.ShallowSize(reflect.ValueOf(struct{ a, b int }{})); got != 64 {
		t.Errorf("ShallowSize = %d, want probe-reported 64", got)
	}
}
