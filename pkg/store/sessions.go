package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	inkyprovd "github.com/inkylabs/inkyprovd/pkg"
)

// currentProgressKey is the fixed key for the live snapshot; history rows
// are keyed by session and timestamp.
const currentProgressKey = "current"

// ProgressRecord is the persisted form of a wizard snapshot plus the time
// it was journaled.
type ProgressRecord struct {
	SessionID  string               `json:"session_id"`
	Step       inkyprovd.WizardStep `json:"step"`
	State      inkyprovd.WireState  `json:"state"`
	Message    string               `json:"message,omitempty"`
	Busy       bool                 `json:"busy"`
	Warning    string               `json:"warning,omitempty"`
	RecordedAt time.Time            `json:"recorded_at"`
}

// SessionJournal persists wizard progress so a restarted daemon can report
// where setup got to, and keeps a per-session history for support export.
type SessionJournal struct {
	current *TypeStore[ProgressRecord]
	history *TypeStore[SessionEvent]
}

// SessionEvent is one journaled transition within a pairing session.
type SessionEvent struct {
	SessionID  string               `json:"session_id"`
	Step       inkyprovd.WizardStep `json:"step"`
	State      inkyprovd.WireState  `json:"state"`
	Message    string               `json:"message,omitempty"`
	RecordedAt time.Time            `json:"recorded_at"`
}

func NewSessionJournal(sm *StoreManager) *SessionJournal {
	return &SessionJournal{
		current: GetTypeStore[ProgressRecord](sm),
		history: GetTypeStore[SessionEvent](sm),
	}
}

// SaveProgress records the snapshot as both the live record and a history
// event.
func (t *SessionJournal) SaveProgress(snapshot inkyprovd.WizardSnapshot) error {
	record := ProgressRecord{
		SessionID:  snapshot.SessionID,
		Step:       snapshot.Step,
		State:      snapshot.State,
		Message:    snapshot.Message,
		Busy:       snapshot.Busy,
		Warning:    snapshot.Warning,
		RecordedAt: snapshot.UpdatedAt,
	}
	if err := t.current.Set(currentProgressKey, record); err != nil {
		return err
	}
	if snapshot.SessionID == "" {
		return nil
	}
	event := SessionEvent{
		SessionID:  snapshot.SessionID,
		Step:       snapshot.Step,
		State:      snapshot.State,
		Message:    snapshot.Message,
		RecordedAt: snapshot.UpdatedAt,
	}
	key := fmt.Sprintf("%s/%d", snapshot.SessionID, snapshot.UpdatedAt.UnixNano())
	return t.history.Set(key, event)
}

// LatestProgress returns the last journaled snapshot, or ok=false if no
// wizard has ever run on this device.
func (t *SessionJournal) LatestProgress() (ProgressRecord, bool, error) {
	record, err := t.current.Get(currentProgressKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProgressRecord{}, false, nil
		}
		return ProgressRecord{}, false, err
	}
	return record, true, nil
}

// SessionHistory returns every journaled event for one session in order.
func (t *SessionJournal) SessionHistory(sessionID string) ([]SessionEvent, error) {
	query := fmt.Sprintf("SELECT value FROM %s WHERE json_extract(value, '$.session_id') = ? ORDER BY json_extract(value, '$.recorded_at') ASC", t.history.Table)
	return t.history.Exec(query, sessionID)
}

// PruneHistory drops events older than the cutoff, returning how many went.
func (t *SessionJournal) PruneHistory(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).Format(time.RFC3339Nano)
	query := fmt.Sprintf("DELETE FROM %s WHERE json_extract(value, '$.recorded_at') < ?", t.history.Table)
	count, err := t.history.ExecWrite(query, cutoff)
	return int(count), err
}
