package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdamBeresnev/tourney/internal/bracket"
)

// HistoryLimit is how many dated copies are kept per scope.
const HistoryLimit = 5

var (
	ErrSnapshotNotFound = errors.New("no snapshot for scope")
	ErrInvalidScope     = errors.New("invalid scope")
)

// SnapshotStore keeps the latest full state of each scope's tournament plus a
// short rolling history for manual rollback.
type SnapshotStore interface {
	Save(ctx context.Context, scope string, t *bracket.Tournament) error
	Load(ctx context.Context, scope string) (*bracket.Tournament, error)
	History(ctx context.Context, scope string) ([]Revision, error)
}

type Revision struct {
	Name    string    `json:"name" db:"name"`
	SavedAt time.Time `json:"saved_at" db:"created_at"`
}

func encode(t *bracket.Tournament) ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tournament: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*bracket.Tournament, error) {
	var t bracket.Tournament
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode tournament: %w", err)
	}
	if t.Participants == nil {
		t.Participants = make(map[string]*bracket.Participant)
	}
	if t.Matches == nil {
		t.Matches = make(map[int]*bracket.Match)
	}
	return &t, nil
}

// ValidateScope trims a scope id and checks it is made of letters, digits, '-'
// and '_' only, so it is usable as a path segment and a NATS subject token.
func ValidateScope(scope string) (string, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return "", fmt.Errorf("%w: empty scope", ErrInvalidScope)
	}
	for _, r := range scope {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidScope, scope, r)
		}
	}
	return scope, nil
}
