// Package syncer keeps each watched folder's index converged with its
// files. Every folder has one worker goroutine that runs sync cycles
// (scan, diff, apply, commit) in response to watcher events, rescan
// timers and explicit requests.
package syncer

import (
	"fmt"
	"time"

	"docsync-ai/internal/apperr"
)

// State is the lifecycle state of a folder.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateDiffing
	StateApplying
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateDiffing:
		return "diffing"
	case StateApplying:
		return "applying"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for st := StateIdle; st <= StateDegraded; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// Mode selects how much of the tree a sync cycle looks at.
type Mode string

const (
	// ModeIncremental rescans only paths reported by the watcher, or the
	// whole tree when none are known.
	ModeIncremental Mode = "incremental"
	// ModeFull rescans the whole tree.
	ModeFull Mode = "full"
)

// ParseMode parses a mode name. The empty string selects ModeIncremental.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeIncremental:
		return ModeIncremental, nil
	case ModeFull:
		return ModeFull, nil
	default:
		return "", &apperr.ValidationError{Field: "mode", Message: fmt.Sprintf("unknown sync mode %q", s)}
	}
}

// Report summarizes one sync cycle.
type Report struct {
	Mode      Mode              `json:"mode"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
	Hashed    int               `json:"hashed"`
	Added     int               `json:"added"`
	Modified  int               `json:"modified"`
	Removed   int               `json:"removed"`
	Renamed   int               `json:"renamed"`
	Skipped   int               `json:"skipped"`
	Failed    map[string]string `json:"failed,omitempty"`
	Embedded  int               `json:"embedded"`
	Reused    int               `json:"reused"`
	Calls     int               `json:"provider_calls"`
}

func (r *Report) fail(path string, err error) {
	if r.Failed == nil {
		r.Failed = make(map[string]string)
	}
	r.Failed[path] = err.Error()
}

// Status is a point-in-time view of a folder.
type Status struct {
	FolderID     int64      `json:"folder_id"`
	Name         string     `json:"name"`
	RootPath     string     `json:"root_path"`
	ProviderID   string     `json:"provider_id"`
	State        State      `json:"state"`
	Health       string     `json:"health"`
	Ready        bool       `json:"ready"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	ErrorCode    string     `json:"error_code,omitempty"`
	Files        int        `json:"files"`
	Chunks       int        `json:"chunks"`
	Pending      bool       `json:"pending"`
	Watching     bool       `json:"watching"`
	Fingerprint  string     `json:"fingerprint"`
	LastReport   *Report    `json:"last_report,omitempty"`
}

// health buckets a state for display: healthy, syncing or degraded.
func health(s State) string {
	switch s {
	case StateIdle:
		return "healthy"
	case StateDegraded:
		return "degraded"
	default:
		return "syncing"
	}
}
