package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"biotech-event-study/internal/model"
)

// TrialSnapshot is a saved ClinicalTrials.gov pull, for offline reruns.
type TrialSnapshot struct {
	FetchedAt time.Time     `json:"fetched_at"`
	Query     SearchParams  `json:"query"`
	Trials    []model.Trial `json:"trials"`
}

func LoadTrialSnapshot(path string) (*TrialSnapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trial snapshot: %w", err)
	}
	var snap TrialSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse trial snapshot: %w", err)
	}
	return &snap, nil
}

func SaveTrialSnapshot(snap *TrialSnapshot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trial snapshot: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write trial snapshot: %w", err)
	}
	return nil
}

// SearchStudies replays the snapshot as a trial source. Phase and statuses
// filter the saved trials; the condition is ignored since the snapshot was
// already pulled for one.
func (s *TrialSnapshot) SearchStudies(ctx context.Context, params SearchParams) ([]model.Trial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	statuses := map[string]bool{}
	for _, st := range params.Statuses {
		statuses[strings.ToUpper(st)] = true
	}

	var out []model.Trial
	for _, t := range s.Trials {
		if params.Phase != "" && !t.HasPhase(params.Phase) {
			continue
		}
		if len(statuses) > 0 && !statuses[strings.ToUpper(t.Status)] {
			continue
		}
		out = append(out, t)
		if params.MaxResults > 0 && len(out) >= params.MaxResults {
			break
		}
	}
	return out, nil
}
