package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/vininsight/internal/fleet"
)

// Snapshot represents the latest vehicle list available to the UI.
type Snapshot struct {
	Vehicles            []fleet.FlatVehicle
	HasVehicles         bool
	Source              string
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive load failures
	Loads               int // Number of successful loads
}

// IsOffline returns true when the feed has failed to load multiple times in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Find returns the vehicle with the given id from the snapshot.
func (s Snapshot) Find(vehicleID string) (fleet.FlatVehicle, bool) {
	for _, v := range s.Vehicles {
		if v.VehicleID == vehicleID {
			return v, true
		}
	}
	return fleet.FlatVehicle{}, false
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored vehicle list. When err is non-nil the previous
// list is kept but the error is recorded for visibility.
func (s *Store) Update(source string, vehicles []fleet.FlatVehicle, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Source = source
	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Vehicles = cloneVehicles(vehicles)
	s.snapshot.HasVehicles = true
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
	s.snapshot.Loads++
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Vehicles = cloneVehicles(s.snapshot.Vehicles)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneVehicles(items []fleet.FlatVehicle) []fleet.FlatVehicle {
	if len(items) == 0 {
		return nil
	}
	dup := make([]fleet.FlatVehicle, len(items))
	copy(dup, items)
	return dup
}
