package calculator

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campusdesk/portal/core"
	"github.com/campusdesk/portal/core/grade"
)

// Session is one user's calculator: a grade table and the last average computed over it.
type Session struct {
	ID         string
	OwnerID    string
	Table      *grade.Table
	LastResult *grade.Result // nil until the first Calculate, and again after Reset
	CreatedAt  time.Time     // UTC
	UpdatedAt  time.Time     // UTC
}

// Clone returns a deep copy of the session, sharing nothing with s.
func (s Session) Clone() Session {
	c := s
	if s.Table != nil {
		c.Table = s.Table.Clone()
	}
	if s.LastResult != nil {
		res := *s.LastResult
		c.LastResult = &res
	}
	return c
}

func (s Session) MarshalJSON() ([]byte, error) {
	var entries []grade.SubjectEntry
	if s.Table != nil {
		entries = s.Table.Entries()
	}
	return json.Marshal(struct {
		ID         string               `json:"id"`
		Entries    []grade.SubjectEntry `json:"entries"`
		LastResult *grade.Result        `json:"last_result"`
		CreatedAt  time.Time            `json:"created_at"`
		UpdatedAt  time.Time            `json:"updated_at"`
	}{
		ID:         s.ID,
		Entries:    entries,
		LastResult: s.LastResult,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	})
}

// UpdateEntry defines what may be changed on a subject entry. Nil fields are left untouched.
type UpdateEntry struct {
	Name    *string `json:"name" validate:"omitempty,max=100"`
	Credits *int    `json:"credits" validate:"omitempty,min=0,max=6"` // 0 clears
	Grade   *string `json:"grade" validate:"omitempty,gradesymbol"`   // "" clears
}

func (ue *UpdateEntry) Validate(validate *validator.Validate) error {
	if ue.Name != nil {
		name := core.CleanString(*ue.Name)
		ue.Name = &name
	}
	if ue.Grade != nil {
		g := string(grade.NormalizeSymbol(*ue.Grade))
		ue.Grade = &g
	}
	return validate.Struct(ue)
}

func (ue UpdateEntry) IsEmpty() bool {
	return ue.Name == nil && ue.Credits == nil && ue.Grade == nil
}

// Mutations converts the request into the engine's field mutations, in name, credits, grade order.
func (ue UpdateEntry) Mutations() []grade.Mutation {
	muts := make([]grade.Mutation, 0, 3)
	if ue.Name != nil {
		muts = append(muts, grade.SetName{Name: *ue.Name})
	}
	if ue.Credits != nil {
		muts = append(muts, grade.SetCredits{Credits: *ue.Credits})
	}
	if ue.Grade != nil {
		muts = append(muts, grade.SetGrade{Grade: grade.Symbol(*ue.Grade)})
	}
	return muts
}
