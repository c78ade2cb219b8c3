package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campusdesk/portal/core/user"
)

// CreateUser stores a user straight through repo, as a first sign-in would.
func CreateUser(t *testing.T, repo user.Repository, name, email string, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr, err := repo.CreateUser(user.User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
		LastLogin: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// NopLogger satisfies core.Logger and drops everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
