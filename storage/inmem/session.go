package inmemdb

import (
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/campusdesk/portal/core/calculator"
)

type sessionRepository struct {
	db *sessionTable
}

func NewSessionRepository(db *DB) calculator.Repository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) row(id string) (*sessionRow, bool) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	row, ok := repo.db.table[id]
	return row, ok
}

func (repo *sessionRepository) CreateSession(sess calculator.Session) (calculator.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[sess.ID]; ok {
		return calculator.Session{}, errors.Errorf("session %s already exists", sess.ID)
	}
	repo.db.table[sess.ID] = &sessionRow{sess: sess.Clone()}
	return sess, nil
}

func (repo *sessionRepository) GetSession(id string) (calculator.Session, error) {
	row, ok := repo.row(id)
	if !ok {
		return calculator.Session{}, calculator.ErrSessionNotFound
	}
	row.mutex.Lock()
	defer row.mutex.Unlock()
	if row.deleted {
		return calculator.Session{}, calculator.ErrSessionNotFound
	}
	return row.sess.Clone(), nil
}

func (repo *sessionRepository) QuerySessionsByOwner(ownerID string) ([]calculator.Session, error) {
	repo.db.mutex.RLock()
	rows := make([]*sessionRow, 0, len(repo.db.table))
	for _, row := range repo.db.table {
		rows = append(rows, row)
	}
	repo.db.mutex.RUnlock()

	sessions := make([]calculator.Session, 0)
	for _, row := range rows {
		row.mutex.Lock()
		if !row.deleted && row.sess.OwnerID == ownerID {
			sessions = append(sessions, row.sess.Clone())
		}
		row.mutex.Unlock()
	}
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (repo *sessionRepository) UpdateSession(id string, fn func(sess *calculator.Session) error) (calculator.Session, error) {
	row, ok := repo.row(id)
	if !ok {
		return calculator.Session{}, calculator.ErrSessionNotFound
	}
	row.mutex.Lock()
	defer row.mutex.Unlock()
	if row.deleted {
		return calculator.Session{}, calculator.ErrSessionNotFound
	}

	// work on a copy so a failing fn leaves the stored session as it was
	sess := row.sess.Clone()
	if err := fn(&sess); err != nil {
		return calculator.Session{}, err
	}
	row.sess = sess
	return sess.Clone(), nil
}

func (repo *sessionRepository) DeleteSessions(ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		if row, ok := repo.db.table[id]; ok {
			row.mutex.Lock()
			row.deleted = true
			row.mutex.Unlock()
			delete(repo.db.table, id)
		}
	}
	return nil
}

func (repo *sessionRepository) DeleteIdleSessions(before time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for id, row := range repo.db.table {
		row.mutex.Lock()
		if row.sess.UpdatedAt.Before(before) {
			row.deleted = true
			delete(repo.db.table, id)
			n++
		}
		row.mutex.Unlock()
	}
	return n, nil
}
