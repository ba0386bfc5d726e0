// Package memory provides in-process adapter implementations used when
// no database is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"panelscore/models"
	"panelscore/ports"
)

// ResultStore keeps call records in memory, keyed the same way the
// PostgreSQL store is: one record per (panel, rater, trial).
type ResultStore struct {
	mu      sync.RWMutex
	byRun   map[string]*models.CallRecord
	byTrial map[string]*models.CallRecord
}

// NewResultStore creates an empty in-memory call record store
func NewResultStore() *ResultStore {
	return &ResultStore{
		byRun:   make(map[string]*models.CallRecord),
		byTrial: make(map[string]*models.CallRecord),
	}
}

var _ ports.ResultStore = (*ResultStore)(nil)

func trialKey(record *models.CallRecord) string {
	return fmt.Sprintf("%s|%s|%d", record.PanelID, record.RaterID, record.Trial)
}

// Save stores a call record, replacing any prior attempt for the same
// panel, rater, and trial
func (s *ResultStore) Save(ctx context.Context, record *models.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	if prev, ok := s.byTrial[trialKey(record)]; ok {
		delete(s.byRun, prev.RunID)
	}
	s.byRun[copied.RunID] = &copied
	s.byTrial[trialKey(&copied)] = &copied
	return nil
}

// Get retrieves a single call record by run id, nil when absent
func (s *ResultStore) Get(ctx context.Context, runID string) (*models.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byRun[runID]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

// List retrieves all call records ordered by panel, rater, and trial
func (s *ResultStore) List(ctx context.Context) ([]*models.CallRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*models.CallRecord, 0, len(s.byRun))
	for _, record := range s.byRun {
		copied := *record
		records = append(records, &copied)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].PanelID != records[j].PanelID {
			return records[i].PanelID < records[j].PanelID
		}
		if records[i].RaterID != records[j].RaterID {
			return records[i].RaterID < records[j].RaterID
		}
		return records[i].Trial < records[j].Trial
	})
	return records, nil
}
