package syncer

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"docsync-ai/internal/apperr"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeIncremental},
		{in: "incremental", want: ModeIncremental},
		{in: "full", want: ModeFull},
		{in: "FULL", wantErr: true},
		{in: "partial", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, apperr.ErrInvalidInput) {
				t.Errorf("ParseMode(%q) error = %v, want ErrInvalidInput", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestState_JSON(t *testing.T) {
	data, err := json.Marshal(Status{State: StateDegraded, Health: health(StateDegraded)})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["state"] != "degraded" || got["health"] != "degraded" {
		t.Errorf("state = %v, health = %v", got["state"], got["health"])
	}
	var back Status
	if err := json.Unmarshal(data, &back); err != nil || back.State != StateDegraded {
		t.Errorf("round trip state = %v, err = %v", back.State, err)
	}
	if health(StateApplying) != "syncing" || health(StateIdle) != "healthy" {
		t.Error("health() buckets are wrong")
	}
}

func TestRequest_Merge(t *testing.T) {
	tests := []struct {
		name      string
		merges    []request
		wantFull  bool
		wantPaths []string
	}{
		{
			name:      "paths are unioned",
			merges:    []request{{paths: set("a.txt")}, {paths: set("b.txt", "a.txt")}},
			wantPaths: []string{"a.txt", "b.txt"},
		},
		{
			name:     "full absorbs paths",
			merges:   []request{{paths: set("a.txt")}, {full: true}, {paths: set("b.txt")}},
			wantFull: true,
		},
		{
			name:     "root path means full",
			merges:   []request{{paths: set("a.txt", ".")}},
			wantFull: true,
		},
		{
			name:     "no paths means full",
			merges:   []request{{}},
			wantFull: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r request
			for _, m := range tt.merges {
				paths := make([]string, 0, len(m.paths))
				for p := range m.paths {
					paths = append(paths, p)
				}
				sort.Strings(paths)
				r.merge(m.full, paths)
			}
			if r.full != tt.wantFull {
				t.Fatalf("full = %v, want %v", r.full, tt.wantFull)
			}
			if tt.wantFull {
				if r.mode() != ModeFull {
					t.Errorf("mode() = %v, want full", r.mode())
				}
				return
			}
			got := r.list()
			sort.Strings(got)
			if len(got) != len(tt.wantPaths) {
				t.Fatalf("list() = %v, want %v", got, tt.wantPaths)
			}
			for i := range got {
				if got[i] != tt.wantPaths[i] {
					t.Errorf("list() = %v, want %v", got, tt.wantPaths)
				}
			}
		})
	}
}

func set(paths ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		m[p] = struct{}{}
	}
	return m
}

func TestBindingSignature(t *testing.T) {
	a := BindingSignature("local-model|m|4", "recursive-1000-200")
	if len(a) != 16 {
		t.Errorf("BindingSignature() length = %d, want 16", len(a))
	}
	if a != BindingSignature("local-model|m|4", "recursive-1000-200") {
		t.Error("BindingSignature() is not deterministic")
	}
	if a == BindingSignature("local-model|m|8", "recursive-1000-200") {
		t.Error("BindingSignature() ignores the provider")
	}
	if a == BindingSignature("local-model|m|4", "recursive-500-100") {
		t.Error("BindingSignature() ignores the chunker")
	}
}

func TestComputeTokenStats(t *testing.T) {
	got := computeTokenStats([]int{1, 2, 3, 4, 10})
	if got.Min != 1 || got.Max != 10 {
		t.Errorf("computeTokenStats() min/max = %d/%d, want 1/10", got.Min, got.Max)
	}
	if got.Mean != 4 {
		t.Errorf("computeTokenStats() mean = %v, want 4", got.Mean)
	}
	if empty := computeTokenStats(nil); empty != (ChunkTokenStats{}) {
		t.Errorf("computeTokenStats(nil) = %+v, want zero", empty)
	}
}
