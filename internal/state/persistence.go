package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ducminhle1904/regime-trading-bot/internal/position"
)

// Snapshot is everything the live bot needs to resume a managed
// position after a restart. The protective stop keeps living on the
// exchange; the snapshot restores the trailing discipline around it.
type Snapshot struct {
	Position   position.Position `json:"position"`
	FundingDue time.Time         `json:"funding_due"`
	SavedAt    time.Time         `json:"saved_at"`
}

// Store persists one position snapshot per symbol as a JSON file.
type Store struct {
	mu       sync.Mutex
	stateDir string
	symbol   string
}

// NewStore creates a store writing under stateDir, creating the
// directory if needed.
func NewStore(stateDir, symbol string) (*Store, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if stateDir == "" {
		stateDir = "state"
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{stateDir: stateDir, symbol: symbol}, nil
}

func (s *Store) path() string {
	return filepath.Join(s.stateDir, fmt.Sprintf("%s_position.json", s.symbol))
}

// Save writes the snapshot atomically: temp file then rename.
func (s *Store) Save(snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tempFile := s.path() + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp snapshot: %w", err)
	}
	if err := os.Rename(tempFile, s.path()); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// Load reads the saved snapshot. A missing file returns (nil, nil);
// a corrupt file returns an error so the caller can decide.
func (s *Store) Load() (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snapshot.Position.Symbol != s.symbol {
		return nil, fmt.Errorf("snapshot is for %s, expected %s", snapshot.Position.Symbol, s.symbol)
	}
	return &snapshot, nil
}

// Clear removes the saved snapshot, used once the position closes.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}
