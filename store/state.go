package store

import (
	"database/sql"
	"time"

	"github.com/openroad/roadcall/errors"
	"github.com/openroad/roadcall/jobs"
)

// Stat event names backing the rolling dashboard counters.
const (
	StatJobsMonitored = "jobs_monitored"
	StatAlertsSent    = "alerts_sent"
	StatAutoAssigned  = "auto_assigned"
)

// JobState is the engine-local monitoring state for one job.
type JobState struct {
	JobID         string
	Stage         jobs.EscalationStage
	OfferAttempts int
	JobVersion    int64
	UpdatedAt     time.Time
}

// AlertState tracks the cooldown and attempt budget for one (job, channel).
type AlertState struct {
	JobID       string
	Channel     string
	Stage       jobs.EscalationStage
	Attempts    int
	LastAlertAt time.Time
}

// StateStore persists engine-local derived state (escalation stages, alert
// cooldowns, rejections, offers, stat events) so a restart never erases
// active cooldowns and duplicates alerts.
type StateStore struct {
	db *sql.DB
}

// NewStateStore creates a state store over an opened database.
func NewStateStore(db *sql.DB) *StateStore {
	return &StateStore{db: db}
}

// GetJobState returns the persisted state for a job, or nil if the job has
// never been evaluated.
func (s *StateStore) GetJobState(jobID string) (*JobState, error) {
	query := `
		SELECT job_id, stage, offer_attempts, job_version, updated_at
		FROM job_monitor_state
		WHERE job_id = ?
	`

	var st JobState
	var stage, updatedAt string
	err := s.db.QueryRow(query, jobID).Scan(&st.JobID, &stage, &st.OfferAttempts, &st.JobVersion, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get job state for %s", jobID)
	}

	parsed, ok := jobs.StageFromString(stage)
	if !ok {
		return nil, errors.Newf("unknown stage %q for job %s", stage, jobID)
	}
	st.Stage = parsed

	st.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse updated_at for job %s", jobID)
	}

	return &st, nil
}

// SetStage records a stage transition. Stage regressions are rejected; the
// escalation stage is monotone non-decreasing until the job leaves monitoring.
func (s *StateStore) SetStage(jobID string, stage jobs.EscalationStage, jobVersion int64, now time.Time) error {
	current, err := s.GetJobState(jobID)
	if err != nil {
		return err
	}
	if current != nil && !current.Stage.CanAdvanceTo(stage) {
		return errors.Newf("stage regression for job %s: %s -> %s", jobID, current.Stage, stage)
	}

	query := `
		INSERT INTO job_monitor_state (job_id, stage, offer_attempts, job_version, updated_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET
			stage = excluded.stage,
			job_version = excluded.job_version,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, jobID, stage.String(), jobVersion, now.UTC().Format(time.RFC3339)); err != nil {
		return errors.Wrapf(err, "failed to set stage for job %s", jobID)
	}
	return nil
}

// IncrementOfferAttempts bumps the offer attempt counter and returns the new
// value.
func (s *StateStore) IncrementOfferAttempts(jobID string, now time.Time) (int, error) {
	query := `
		UPDATE job_monitor_state
		SET offer_attempts = offer_attempts + 1,
		    updated_at = ?
		WHERE job_id = ?
	`
	result, err := s.db.Exec(query, now.UTC().Format(time.RFC3339), jobID)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to increment offer attempts for job %s", jobID)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return 0, errors.Wrapf(errors.ErrNotFound, "job state %s", jobID)
	}

	var attempts int
	if err := s.db.QueryRow("SELECT offer_attempts FROM job_monitor_state WHERE job_id = ?", jobID).Scan(&attempts); err != nil {
		return 0, errors.Wrapf(err, "failed to read offer attempts for job %s", jobID)
	}
	return attempts, nil
}

// DeleteJobState discards all engine-local rows for a job. Called once the
// job reaches a terminal status in the external store.
func (s *StateStore) DeleteJobState(jobID string) error {
	statements := []string{
		"DELETE FROM job_monitor_state WHERE job_id = ?",
		"DELETE FROM job_alert_state WHERE job_id = ?",
		"DELETE FROM job_rejections WHERE job_id = ?",
		"DELETE FROM offers WHERE job_id = ?",
	}

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin delete job state")
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt, jobID); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "failed to delete state for job %s", jobID)
		}
	}
	return errors.Wrap(tx.Commit(), "commit delete job state")
}

// ListTrackedJobIDs returns every job the engine currently holds state for.
// Used to sweep state left behind by jobs that went terminal upstream.
func (s *StateStore) ListTrackedJobIDs() ([]string, error) {
	rows, err := s.db.Query("SELECT job_id FROM job_monitor_state ORDER BY job_id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tracked jobs")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan tracked job id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAlertState returns the alert cooldown state for a (job, channel), or
// nil when no alert was ever recorded for the pair.
func (s *StateStore) GetAlertState(jobID, channel string) (*AlertState, error) {
	query := `
		SELECT job_id, channel, stage, attempts, last_alert_at
		FROM job_alert_state
		WHERE job_id = ? AND channel = ?
	`

	var st AlertState
	var stage, lastAlertAt string
	err := s.db.QueryRow(query, jobID, channel).Scan(&st.JobID, &st.Channel, &stage, &st.Attempts, &lastAlertAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get alert state for job %s channel %s", jobID, channel)
	}

	parsed, ok := jobs.StageFromString(stage)
	if !ok {
		return nil, errors.Newf("unknown stage %q in alert state for job %s", stage, jobID)
	}
	st.Stage = parsed

	st.LastAlertAt, err = time.Parse(time.RFC3339, lastAlertAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse last_alert_at for job %s", jobID)
	}

	return &st, nil
}

// RecordAlert consumes one notification attempt for a (job, channel) and
// restamps the cooldown clock. A stage change resets the attempt budget to 1;
// the cooldown clock advances either way.
func (s *StateStore) RecordAlert(jobID, channel string, stage jobs.EscalationStage, now time.Time) error {
	query := `
		INSERT INTO job_alert_state (job_id, channel, stage, attempts, last_alert_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(job_id, channel) DO UPDATE SET
			attempts = CASE WHEN job_alert_state.stage = excluded.stage
				THEN job_alert_state.attempts + 1 ELSE 1 END,
			stage = excluded.stage,
			last_alert_at = excluded.last_alert_at
	`
	if _, err := s.db.Exec(query, jobID, channel, stage.String(), now.UTC().Format(time.RFC3339)); err != nil {
		return errors.Wrapf(err, "failed to record alert for job %s channel %s", jobID, channel)
	}
	return nil
}

// RecordRejection stamps a contractor's rejection of a job, starting (or
// restarting) the rejection cooldown.
func (s *StateStore) RecordRejection(jobID, contractorID string, now time.Time) error {
	query := `
		INSERT INTO job_rejections (job_id, contractor_id, rejected_at)
		VALUES (?, ?, ?)
		ON CONFLICT(job_id, contractor_id) DO UPDATE SET
			rejected_at = excluded.rejected_at
	`
	if _, err := s.db.Exec(query, jobID, contractorID, now.UTC().Format(time.RFC3339)); err != nil {
		return errors.Wrapf(err, "failed to record rejection of job %s by %s", jobID, contractorID)
	}
	return nil
}

// ActiveRejections returns the contractors whose last rejection of the job
// is still inside the cooldown window starting at since.
func (s *StateStore) ActiveRejections(jobID string, since time.Time) (map[string]time.Time, error) {
	query := `
		SELECT contractor_id, rejected_at
		FROM job_rejections
		WHERE job_id = ? AND rejected_at > ?
	`

	rows, err := s.db.Query(query, jobID, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list rejections for job %s", jobID)
	}
	defer rows.Close()

	active := make(map[string]time.Time)
	for rows.Next() {
		var contractorID, rejectedAt string
		if err := rows.Scan(&contractorID, &rejectedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan rejection")
		}
		t, err := time.Parse(time.RFC3339, rejectedAt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse rejected_at for job %s", jobID)
		}
		active[contractorID] = t
	}

	return active, rows.Err()
}

// CreateOffer persists a new offer record.
func (s *StateStore) CreateOffer(offer *jobs.Offer) error {
	query := `
		INSERT INTO offers (id, job_id, contractor_id, status, offered_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		offer.ID,
		offer.JobID,
		offer.ContractorID,
		string(offer.Status),
		offer.OfferedAt.UTC().Format(time.RFC3339),
		offer.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create offer %s", offer.ID)
	}
	return nil
}

// ResolveOffer records the final status of an offer.
func (s *StateStore) ResolveOffer(offerID string, status jobs.OfferStatus) error {
	result, err := s.db.Exec("UPDATE offers SET status = ? WHERE id = ?", string(status), offerID)
	if err != nil {
		return errors.Wrapf(err, "failed to resolve offer %s", offerID)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.Wrapf(errors.ErrNotFound, "offer %s", offerID)
	}
	return nil
}

// ListOffersForJob returns every offer recorded for a job, oldest first.
func (s *StateStore) ListOffersForJob(jobID string) ([]*jobs.Offer, error) {
	query := `
		SELECT id, job_id, contractor_id, status, offered_at, expires_at
		FROM offers
		WHERE job_id = ?
		ORDER BY offered_at ASC, id ASC
	`

	rows, err := s.db.Query(query, jobID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list offers for job %s", jobID)
	}
	defer rows.Close()

	var offers []*jobs.Offer
	for rows.Next() {
		var o jobs.Offer
		var status, offeredAt, expiresAt string
		if err := rows.Scan(&o.ID, &o.JobID, &o.ContractorID, &status, &offeredAt, &expiresAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan offer")
		}
		o.Status = jobs.OfferStatus(status)
		if o.OfferedAt, err = time.Parse(time.RFC3339, offeredAt); err != nil {
			return nil, errors.Wrapf(err, "failed to parse offered_at for offer %s", o.ID)
		}
		if o.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
			return nil, errors.Wrapf(err, "failed to parse expires_at for offer %s", o.ID)
		}
		offers = append(offers, &o)
	}

	return offers, rows.Err()
}

// RecordStatEvent appends one event for a rolling counter.
func (s *StateStore) RecordStatEvent(name string, now time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO stat_events (name, occurred_at) VALUES (?, ?)",
		name, now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record stat event %s", name)
	}
	return nil
}

// CountStatEventsSince returns the number of events for a counter since the
// given instant.
func (s *StateStore) CountStatEventsSince(name string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM stat_events WHERE name = ? AND occurred_at > ?",
		name, since.UTC().Format(time.RFC3339),
	).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count stat events for %s", name)
	}
	return count, nil
}

// PruneStatEvents deletes events older than the cutoff and returns how many
// were removed.
func (s *StateStore) PruneStatEvents(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(
		"DELETE FROM stat_events WHERE occurred_at <= ?",
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune stat events")
	}
	return result.RowsAffected()
}
