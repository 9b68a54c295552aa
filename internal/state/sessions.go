package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/consilium-health/consilium/pkg/models"
)

// ErrSessionNotFound is returned when a session id has no stored record.
var ErrSessionNotFound = errors.New("session not found")

// SessionSummary is the listing view of a stored session, without the full
// discussion record.
type SessionSummary struct {
	ID               string               `json:"session_id"`
	Status           models.SessionStatus `json:"status"`
	PatientID        string               `json:"patient_id"`
	Participants     []models.Specialty   `json:"participants"`
	ConsensusScore   float64              `json:"consensus_score"`
	ConsensusReached bool                 `json:"consensus_reached"`
	ConflictDetected bool                 `json:"conflict_detected"`
	Rounds           int                  `json:"rounds"`
	StartTime        time.Time            `json:"start_time"`
	EndTime          time.Time            `json:"end_time,omitempty"`
}

// SaveSession inserts or replaces the stored record for a session. The full
// session is serialized as JSON; summary columns are denormalized for listing
// without deserializing every record.
func (db *DB) SaveSession(s *models.Session) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	record, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	var consensusScore float64
	var consensusReached bool
	if s.Consensus != nil {
		consensusScore = s.Consensus.Score
		consensusReached = s.Consensus.Reached
	}
	conflictDetected := s.Conflict != nil && s.Conflict.Detected

	var endedAt interface{}
	if !s.EndTime.IsZero() {
		endedAt = formatTime(s.EndTime)
	}

	_, err = db.conn.Exec(`
		INSERT INTO sessions (id, status, patient_id, participants, consensus_score,
			consensus_reached, conflict_detected, rounds, started_at, ended_at, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			patient_id = excluded.patient_id,
			participants = excluded.participants,
			consensus_score = excluded.consensus_score,
			consensus_reached = excluded.consensus_reached,
			conflict_detected = excluded.conflict_detected,
			rounds = excluded.rounds,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			record = excluded.record
	`, s.ID, string(s.Status), s.Case.PatientID, joinParticipants(s.Participants),
		consensusScore, consensusReached, conflictDetected, len(s.Rounds),
		formatTime(s.StartTime), endedAt, string(record))
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

// GetSession loads a full session record by id.
func (db *DB) GetSession(id string) (*models.Session, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var record string
	row := db.conn.QueryRow("SELECT record FROM sessions WHERE id = ?", id)
	if err := row.Scan(&record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var s models.Session
	if err := json.Unmarshal([]byte(record), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &s, nil
}

// ListSessions returns session summaries, newest first. A zero limit returns
// all sessions.
func (db *DB) ListSessions(limit int) ([]SessionSummary, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := `
		SELECT id, status, patient_id, participants, consensus_score,
			consensus_reached, conflict_detected, rounds, started_at, ended_at
		FROM sessions
		ORDER BY started_at DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		var participants, startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.Status, &s.PatientID, &participants,
			&s.ConsensusScore, &s.ConsensusReached, &s.ConflictDetected,
			&s.Rounds, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		s.Participants = splitParticipants(participants)
		if s.StartTime, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("parse start time: %w", err)
		}
		if endedAt.Valid {
			if s.EndTime, err = parseTime(endedAt.String); err != nil {
				return nil, fmt.Errorf("parse end time: %w", err)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteSession removes a stored session by id.
func (db *DB) DeleteSession(id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	res, err := db.conn.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func joinParticipants(participants []models.Specialty) string {
	parts := make([]string, len(participants))
	for i, p := range participants {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

func splitParticipants(s string) []models.Specialty {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]models.Specialty, len(parts))
	for i, p := range parts {
		out[i] = models.Specialty(p)
	}
	return out
}
