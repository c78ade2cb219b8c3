package inmemdb

import (
	"sync"

	"github.com/campusdesk/portal/core/calculator"
	"github.com/campusdesk/portal/core/user"
)

type (
	DB struct {
		user    *userTable
		session *sessionTable
	}

	// userTable indexes users by ID and by email; pending sign-in challenges share its lock.
	userTable struct {
		table      map[string]*user.User
		emails     map[string]string // email: ID
		challenges map[string]*user.Challenge
		mutex      sync.RWMutex
	}

	// sessionTable guards the map with its own lock; each row carries a lock serializing
	// operations on that session, so two sessions never wait on each other.
	sessionTable struct {
		table map[string]*sessionRow
		mutex sync.RWMutex
	}

	sessionRow struct {
		mutex   sync.Mutex
		sess    calculator.Session
		deleted bool // set under mutex once the row has left the table
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{
			table:      make(map[string]*user.User),
			emails:     make(map[string]string),
			challenges: make(map[string]*user.Challenge),
		},
		session: &sessionTable{table: make(map[string]*sessionRow)},
	}
}
