package state

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/consilium-health/consilium/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSession(id string) *models.Session {
	start := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	return &models.Session{
		ID:           id,
		Status:       models.SessionCompleted,
		Case:         models.ParseCase(models.Case{PatientID: "P-042", Symptoms: "progressive dyspnea"}),
		Participants: models.Specialists(),
		StartTime:    start,
		EndTime:      start.Add(3 * time.Minute),
		Conflict:     &models.ConflictReport{Detected: true, ConsensusScore: 0.4},
		Rounds: []models.Round{
			{Number: 1, ConsensusScore: 0.6},
			{Number: 2, ConsensusScore: 0.8},
		},
		Consensus: &models.ConsensusReport{Score: 0.82, Reached: true, Threshold: 0.75},
		FinalResult: &models.Opinion{
			Agent:      "MDT Coordinator",
			Specialty:  models.SpecialtyCoordinator,
			Response:   "Diagnosis: IPF. Recommend antifibrotic therapy.",
			Confidence: 0.8,
		},
		MaxRounds:          3,
		ConsensusThreshold: 0.75,
	}
}

func TestSaveAndGetSession(t *testing.T) {
	db := openTestDB(t)
	want := sampleSession("mdt_20260314_103000")

	if err := db.SaveSession(want); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	got, err := db.GetSession(want.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ID != want.ID || got.Status != want.Status {
		t.Errorf("got %s/%s, want %s/%s", got.ID, got.Status, want.ID, want.Status)
	}
	if got.Case.PatientID != "P-042" {
		t.Errorf("patient id = %q", got.Case.PatientID)
	}
	if len(got.Rounds) != 2 {
		t.Errorf("rounds = %d, want 2", len(got.Rounds))
	}
	if got.Consensus == nil || got.Consensus.Score != 0.82 {
		t.Errorf("consensus = %+v", got.Consensus)
	}
	if got.FinalResult == nil || got.FinalResult.Confidence != 0.8 {
		t.Errorf("final result = %+v", got.FinalResult)
	}
	if !got.StartTime.Equal(want.StartTime) {
		t.Errorf("start time = %v, want %v", got.StartTime, want.StartTime)
	}
}

func TestSaveSessionUpserts(t *testing.T) {
	db := openTestDB(t)
	s := sampleSession("mdt_20260314_103000")
	s.Status = models.SessionActive
	s.EndTime = time.Time{}

	if err := db.SaveSession(s); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}

	s.Status = models.SessionCompleted
	s.EndTime = s.StartTime.Add(2 * time.Minute)
	if err := db.SaveSession(s); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	got, err := db.GetSession(s.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Status != models.SessionCompleted {
		t.Errorf("status = %q after upsert", got.Status)
	}

	list, err := db.ListSessions(0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("sessions = %d after upsert, want 1", len(list))
	}
}

func TestGetSessionNotFound(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetSession("mdt_missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	db := openTestDB(t)

	older := sampleSession("mdt_20260313_090000")
	older.StartTime = time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	newer := sampleSession("mdt_20260314_103000")

	if err := db.SaveSession(older); err != nil {
		t.Fatalf("save older: %v", err)
	}
	if err := db.SaveSession(newer); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	list, err := db.ListSessions(0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("sessions = %d, want 2", len(list))
	}
	if list[0].ID != newer.ID {
		t.Errorf("first = %s, want %s", list[0].ID, newer.ID)
	}
	if list[0].PatientID != "P-042" {
		t.Errorf("patient id = %q", list[0].PatientID)
	}
	if !list[0].ConsensusReached || list[0].ConsensusScore != 0.82 {
		t.Errorf("summary consensus = %+v", list[0])
	}
	if !list[0].ConflictDetected || list[0].Rounds != 2 {
		t.Errorf("summary conflict/rounds = %+v", list[0])
	}
	if len(list[0].Participants) != 5 {
		t.Errorf("participants = %v", list[0].Participants)
	}

	limited, err := db.ListSessions(1)
	if err != nil {
		t.Fatalf("ListSessions(1) failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited = %d, want 1", len(limited))
	}
}

func TestDeleteSession(t *testing.T) {
	db := openTestDB(t)
	s := sampleSession("mdt_20260314_103000")
	if err := db.SaveSession(s); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	if err := db.DeleteSession(s.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := db.GetSession(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v after delete", err)
	}
	if err := db.DeleteSession(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second delete err = %v, want ErrSessionNotFound", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestActiveSessionWithoutEndTime(t *testing.T) {
	db := openTestDB(t)
	s := sampleSession("mdt_20260314_103000")
	s.Status = models.SessionActive
	s.EndTime = time.Time{}
	s.Consensus = nil
	s.Conflict = nil

	if err := db.SaveSession(s); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	list, err := db.ListSessions(0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if !list[0].EndTime.IsZero() {
		t.Errorf("end time = %v, want zero", list[0].EndTime)
	}
	if list[0].ConsensusScore != 0 || list[0].ConflictDetected {
		t.Errorf("summary = %+v, want zero consensus fields", list[0])
	}
}
