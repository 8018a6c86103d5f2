package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/vininsight/internal/fleet"
)

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	vehicles := []fleet.FlatVehicle{{VehicleID: "1", Name: "One"}, {VehicleID: "2", Name: "Two"}}

	before := time.Now()
	s.Update("fleet.json", vehicles, nil)

	snap := s.Snapshot()
	if !snap.HasVehicles || len(snap.Vehicles) != 2 || snap.Vehicles[0].VehicleID != "1" {
		t.Fatalf("snapshot vehicles = %#v, want 2 items", snap.Vehicles)
	}
	if snap.Source != "fleet.json" || snap.Loads != 1 {
		t.Fatalf("source=%q loads=%d", snap.Source, snap.Loads)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Vehicles[0].VehicleID = "999"
	vehicles[1].Name = "mutated"
	snap2 := s.Snapshot()
	if snap2.Vehicles[0].VehicleID != "1" || snap2.Vehicles[1].Name != "Two" {
		t.Fatalf("Snapshot should clone vehicles; got %#v", snap2.Vehicles)
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.Update("feed", []fleet.FlatVehicle{{VehicleID: "1"}}, nil)

	origErr := errors.New("boom")
	s.Update("feed", nil, origErr)

	snap := s.Snapshot()
	if len(snap.Vehicles) != 1 || snap.Vehicles[0].VehicleID != "1" {
		t.Fatalf("vehicles changed on error: got %#v", snap.Vehicles)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("cloned error should wrap the original")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}

	s.Update("feed", nil, errors.New("fail 1"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after 1 failure: %d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Update("feed", nil, errors.New("fail 2"))
	if snap := s.Snapshot(); !snap.IsOffline() {
		t.Fatal("IsOffline() = false, want true with 2 failures")
	}

	s.Update("feed", []fleet.FlatVehicle{}, nil)
	snap := s.Snapshot()
	if snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("success should reset failures, got %d", snap.ConsecutiveFailures)
	}
	if !snap.HasVehicles || snap.Vehicles != nil {
		t.Fatalf("empty load should be recorded: %#v", snap)
	}
}

func TestSnapshot_Find(t *testing.T) {
	snap := Snapshot{Vehicles: []fleet.FlatVehicle{{VehicleID: "a", Name: "A"}, {VehicleID: "b", Name: "B"}}}
	if v, ok := snap.Find("b"); !ok || v.Name != "B" {
		t.Fatalf("Find(b) = %#v, %v", v, ok)
	}
	if _, ok := snap.Find("zzz"); ok {
		t.Fatal("Find(zzz) should miss")
	}
}
