package calculator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/campusdesk/portal/core"
	"github.com/campusdesk/portal/core/grade"
)

var (
	// errors
	ErrSessionNotFound = core.NewNotFoundError("calculator session")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateSession(sess Session) (Session, error)
		// GetSession returns a deep copy of the stored session.
		GetSession(id string) (Session, error)
		QuerySessionsByOwner(ownerID string) ([]Session, error)
		// UpdateSession runs fn on the stored session while holding that session's lock;
		// the session is left untouched if fn returns an error.
		UpdateSession(id string, fn func(sess *Session) error) (Session, error)
		DeleteSessions(ids ...string) error
		// DeleteIdleSessions drops every session not updated since `before` and returns how many were dropped.
		DeleteIdleSessions(before time.Time) (int, error)
	}

	Service struct {
		repo       Repository
		sessionTTL time.Duration
		maxEntries int
	}
)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{
		repo:       repo,
		sessionTTL: conf.Calculator.SessionTTL,
		maxEntries: conf.Calculator.MaxEntries,
	}
}

// GradeScale is the fixed grade point table, in display order.
func (svc *Service) GradeScale() []grade.Point {
	return grade.Scale()
}

// Start opens a new session holding a single blank entry.
func (svc *Service) Start(ownerID string) (Session, error) {
	now := NowFunc().UTC()
	sess := Session{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Table:     grade.NewTable(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	sess, err := svc.repo.CreateSession(sess)
	return sess, errors.Wrap(err, "creating session")
}

func (svc *Service) Get(ownerID, id string) (Session, error) {
	sess, err := svc.repo.GetSession(id)
	if err != nil {
		return Session{}, err
	}
	if sess.OwnerID != ownerID {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// List returns the caller's sessions, oldest first.
func (svc *Service) List(ownerID string) ([]Session, error) {
	return svc.repo.QuerySessionsByOwner(ownerID)
}

// update runs fn on the caller's session and touches it.
func (svc *Service) update(ownerID, id string, fn func(sess *Session) error) (Session, error) {
	return svc.repo.UpdateSession(id, func(sess *Session) error {
		if sess.OwnerID != ownerID {
			return ErrSessionNotFound
		}
		if err := fn(sess); err != nil {
			return err
		}
		sess.UpdatedAt = NowFunc().UTC()
		return nil
	})
}

// AddEntry appends a blank entry to the table, then applies ue to it.
func (svc *Service) AddEntry(ownerID, id string, ue UpdateEntry) (grade.SubjectEntry, error) {
	var entry grade.SubjectEntry
	_, err := svc.update(ownerID, id, func(sess *Session) error {
		if svc.maxEntries > 0 && sess.Table.Len() >= svc.maxEntries {
			return core.NewValidationError(nil, core.FieldError{
				Field: "entries",
				Error: fmt.Sprintf("a calculator cannot hold more than %d subjects", svc.maxEntries),
			})
		}
		entry = sess.Table.AddEntry()
		var err error
		entry, err = sess.Table.UpdateEntry(entry.ID, ue.Mutations()...)
		return err
	})
	return entry, err
}

// RemoveEntry removes an entry from the table. Removing the only entry is a no-op and returns removed == false.
func (svc *Service) RemoveEntry(ownerID, id, entryID string) (removed bool, err error) {
	_, err = svc.update(ownerID, id, func(sess *Session) error {
		var rErr error
		removed, rErr = sess.Table.RemoveEntry(entryID)
		return rErr
	})
	return removed, err
}

func (svc *Service) UpdateEntry(ownerID, id, entryID string, ue UpdateEntry) (grade.SubjectEntry, error) {
	var entry grade.SubjectEntry
	_, err := svc.update(ownerID, id, func(sess *Session) error {
		var uErr error
		entry, uErr = sess.Table.UpdateEntry(entryID, ue.Mutations()...)
		return uErr
	})
	return entry, err
}

// Calculate computes the average of the session's table and keeps it as the session's last result.
func (svc *Service) Calculate(ownerID, id string) (grade.Result, error) {
	var res grade.Result
	_, err := svc.update(ownerID, id, func(sess *Session) error {
		res = sess.Table.ComputeAverage()
		r := res
		sess.LastResult = &r
		return nil
	})
	return res, err
}

// Reset brings the table back to a single blank entry and forgets the last result.
func (svc *Service) Reset(ownerID, id string) (Session, error) {
	return svc.update(ownerID, id, func(sess *Session) error {
		sess.Table.Reset()
		sess.LastResult = nil
		return nil
	})
}

// End discards the session and everything in it.
func (svc *Service) End(ownerID, id string) error {
	if _, err := svc.Get(ownerID, id); err != nil {
		return err
	}
	return svc.repo.DeleteSessions(id)
}

// Sweep ends every session idle for longer than the configured TTL.
func (svc *Service) Sweep(now time.Time) (int, error) {
	if svc.sessionTTL <= 0 {
		return 0, nil
	}
	return svc.repo.DeleteIdleSessions(now.Add(-svc.sessionTTL).UTC())
}

// RunSweeper calls Sweep every interval until ctx is done.
func (svc *Service) RunSweeper(ctx context.Context, interval time.Duration, logger core.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.Sweep(NowFunc())
			if err != nil {
				logger.Error(fmt.Sprintf("sweeping calculator sessions: %v", err), err)
				continue
			}
			if n > 0 {
				logger.Debug(fmt.Sprintf("swept %d idle calculator sessions", n))
			}
		}
	}
}
