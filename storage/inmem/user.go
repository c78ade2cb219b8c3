package inmemdb

import (
	"time"

	"github.com/pkg/errors"

	"github.com/campusdesk/portal/core/user"
)

type userRepository struct {
	db *userTable
}

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[usr.ID]; ok || usr.ID == "" {
		return user.User{}, errors.Errorf("invalid user ID %q", usr.ID)
	}
	if _, ok := repo.db.emails[usr.Email]; ok {
		return user.User{}, user.ErrEmailExists
	}
	stored := usr
	repo.db.table[usr.ID] = &stored
	repo.db.emails[usr.Email] = usr.ID
	return usr, nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if id, ok := repo.db.emails[email]; ok {
		return *repo.db.table[id], nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	old, ok := repo.db.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if id, ok := repo.db.emails[usr.Email]; ok && id != usr.ID {
		return user.User{}, user.ErrEmailExists
	}
	delete(repo.db.emails, old.Email)
	stored := usr
	repo.db.table[usr.ID] = &stored
	repo.db.emails[usr.Email] = usr.ID
	return usr, nil
}

func (repo *userRepository) SaveChallenge(ch user.Challenge) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored := copyChallenge(ch)
	repo.db.challenges[ch.Email] = &stored
	return nil
}

func (repo *userRepository) GetChallenge(email string) (user.Challenge, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ch, ok := repo.db.challenges[email]; ok {
		return copyChallenge(*ch), nil
	}
	return user.Challenge{}, user.ErrChallengeNotFound
}

func (repo *userRepository) UseChallenge(email string, fn func(ch *user.Challenge) bool) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.challenges[email]
	if !ok {
		return user.ErrChallengeNotFound
	}
	ch := copyChallenge(*stored)
	if fn(&ch) {
		ch.Email = email
		repo.db.challenges[email] = &ch
	} else {
		delete(repo.db.challenges, email)
	}
	return nil
}

func (repo *userRepository) DeleteExpiredChallenges(now time.Time) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := 0
	for email, ch := range repo.db.challenges {
		if ch.Expired(now) {
			delete(repo.db.challenges, email)
			n++
		}
	}
	return n, nil
}

func copyChallenge(ch user.Challenge) user.Challenge {
	ch.CodeHash = append([]byte(nil), ch.CodeHash...)
	return ch
}
