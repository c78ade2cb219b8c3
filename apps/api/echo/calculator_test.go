package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campusdesk/portal/apps/api/echo"
	"github.com/campusdesk/portal/core/grade"
	"github.com/campusdesk/portal/tests"
)

type sessionResp struct {
	ID         string               `json:"id"`
	Entries    []grade.SubjectEntry `json:"entries"`
	LastResult *json.RawMessage     `json:"last_result"`
}

type entryBody map[string]interface{}

// startSession starts a session for the owner of token and returns it.
func startSession(t *testing.T, app *echoapi.Server, token string) sessionResp {
	req, rec := newAuthRequest(http.MethodPost, "/v1/calculator/sessions", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("startSession() code = %d; body %s", rec.Code, rec.Body.String())
	}
	var sess sessionResp
	unmarshal(t, rec, &sess)
	return sess
}

func getSession(t *testing.T, app *echoapi.Server, token, id string) sessionResp {
	req, rec := newAuthRequest(http.MethodGet, "/v1/calculator/sessions/"+id, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("getSession() code = %d; body %s", rec.Code, rec.Body.String())
	}
	var sess sessionResp
	unmarshal(t, rec, &sess)
	return sess
}

func Test_calculatorApi_grades(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/v1/calculator/grades")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, []grade.Point{
		{Grade: "A+", Points: 10},
		{Grade: "A", Points: 9},
		{Grade: "B+", Points: 8},
		{Grade: "B", Points: 7},
		{Grade: "C+", Points: 6},
		{Grade: "C", Points: 5},
		{Grade: "D", Points: 4},
		{Grade: "F", Points: 0},
	})}, rec)
}

func Test_calculatorApi_authRequired(t *testing.T) {
	app := setup(t)

	tests := []httpTest{
		{name: "start", method: http.MethodPost, path: "/v1/calculator/sessions"},
		{name: "list", method: http.MethodGet, path: "/v1/calculator/sessions"},
		{name: "retrieve", method: http.MethodGet, path: "/v1/calculator/sessions/s1"},
		{name: "end", method: http.MethodDelete, path: "/v1/calculator/sessions/s1"},
		{name: "add entry", method: http.MethodPost, path: "/v1/calculator/sessions/s1/entries"},
		{name: "update entry", method: http.MethodPatch, path: "/v1/calculator/sessions/s1/entries/e1"},
		{name: "remove entry", method: http.MethodDelete, path: "/v1/calculator/sessions/s1/entries/e1"},
		{name: "calculate", method: http.MethodPost, path: "/v1/calculator/sessions/s1/calculate"},
		{name: "reset", method: http.MethodPost, path: "/v1/calculator/sessions/s1/reset"},
		{
			name: "bad token", method: http.MethodGet, path: "/v1/calculator/sessions", token: "lol",
			wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"}),
		},
	}
	for _, tt := range tests {
		tt.wantCode = http.StatusUnauthorized
		if tt.wantData == nil {
			tt.wantData = marchallObj(t, errMissingToken)
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_calculatorApi_sgpa(t *testing.T) {
	app := setup(t)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd")
	token := getToken(t, student)

	sess := startSession(t, app, token)
	if !assert.Len(t, sess.Entries, 1) {
		return
	}
	assert.Equal(t, grade.SubjectEntry{ID: sess.Entries[0].ID}, sess.Entries[0], "a new session holds one blank entry")
	assert.Nil(t, sess.LastResult)

	base := "/v1/calculator/sessions/" + sess.ID
	first := sess.Entries[0].ID
	var physicsID string

	tests := []httpTest{
		{
			name: "update first entry", method: http.MethodPatch, path: base + "/entries/" + first,
			body:     marchallObj(t, entryBody{"name": "Maths", "credits": 4, "grade": "A"}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, grade.SubjectEntry{ID: first, Name: "Maths", Credits: 4, Grade: grade.A}),
		},
		{
			name: "lower case grade", method: http.MethodPatch, path: base + "/entries/" + first,
			body:     marchallObj(t, entryBody{"grade": " a "}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, grade.SubjectEntry{ID: first, Name: "Maths", Credits: 4, Grade: grade.A}),
		},
		{
			name: "add entry", method: http.MethodPost, path: base + "/entries",
			body: marchallObj(t, entryBody{"name": "Physics", "credits": 3, "grade": "b+"}), wantCode: http.StatusCreated,
			extra: &physicsID,
		},
		{
			name: "add incomplete entry", method: http.MethodPost, path: base + "/entries",
			body: marchallObj(t, entryBody{"name": "Lab", "grade": "F"}), wantCode: http.StatusCreated,
		},
		{
			name: "calculate", method: http.MethodPost, path: base + "/calculate", wantCode: http.StatusOK,
			wantData: []byte(`{"available": true, "average": 8.57, "band": "Very Good", "color": "blue", "total_credits": 7, "counted_entries": 2}`),
		},
		{
			name: "credits out of range", method: http.MethodPatch, path: base + "/entries/" + first,
			body: marchallObj(t, entryBody{"credits": 7}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"credits": "credits must be 6 or less"}),
		},
		{
			name: "unknown grade", method: http.MethodPatch, path: base + "/entries/" + first,
			body: marchallObj(t, entryBody{"grade": "E"}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"grade": "unknown grade; expected one of A+, A, B+, B, C+, C, D, F"}),
		},
		{
			name: "credits not a number", method: http.MethodPatch, path: base + "/entries/" + first,
			body: []byte(`{"credits": "four"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "nothing to update", method: http.MethodPatch, path: base + "/entries/" + first,
			body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "nothing to update"}),
		},
		{
			name: "unknown entry", method: http.MethodPatch, path: base + "/entries/lol",
			body: marchallObj(t, entryBody{"name": "x"}), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "subject entry not found"}),
		},
		{
			name: "remove unknown entry", method: http.MethodDelete, path: base + "/entries/lol",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "subject entry not found"}),
		},
		{
			name: "unknown session", method: http.MethodPost, path: "/v1/calculator/sessions/lol/calculate",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "calculator session not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if id, ok := tt.extra.(*string); ok {
				var entry grade.SubjectEntry
				unmarshal(t, rec, &entry)
				*id = entry.ID
			}
		})
	}

	got := getSession(t, app, token, sess.ID)
	assert.Len(t, got.Entries, 3)
	assert.NotNil(t, got.LastResult, "the last result is kept")

	// removing an entry keeps the last result until the next calculation
	req, rec := newAuthRequest(http.MethodDelete, base+"/entries/"+physicsID, token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.RemoveEntryResponse{Removed: true})}, rec)

	req, rec = newAuthRequest(http.MethodPost, base+"/calculate", token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(
		`{"available": true, "average": 9, "band": "Excellent", "color": "green", "total_credits": 4, "counted_entries": 1}`,
	)}, rec)
}

func Test_calculatorApi_reset(t *testing.T) {
	app := setup(t)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd")
	token := getToken(t, student)

	sess := startSession(t, app, token)
	base := "/v1/calculator/sessions/" + sess.ID
	for i := 0; i < 3; i++ {
		req, rec := newAuthRequest(http.MethodPost, base+"/entries", token, marchallObj(t, entryBody{"credits": 6, "grade": "A+"}))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	req, rec := newAuthRequest(http.MethodPost, base+"/calculate", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	got := getSession(t, app, token, sess.ID)
	ids := make(map[string]bool)
	for _, e := range got.Entries {
		ids[e.ID] = true
	}
	assert.Len(t, ids, 4, "three adds give four distinct ids")

	req, rec = newAuthRequest(http.MethodPost, base+"/reset", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var reset sessionResp
	unmarshal(t, rec, &reset)
	if assert.Len(t, reset.Entries, 1) {
		assert.False(t, ids[reset.Entries[0].ID], "reset hands out a fresh id")
		assert.Empty(t, reset.Entries[0].Name)
	}
	assert.Nil(t, reset.LastResult)

	// the sole entry cannot be removed
	req, rec = newAuthRequest(http.MethodDelete, base+"/entries/"+reset.Entries[0].ID, token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, echoapi.RemoveEntryResponse{Removed: false})}, rec)

	req, rec = newAuthRequest(http.MethodPost, base+"/calculate", token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(
		`{"available": false, "average": null, "total_credits": 0, "counted_entries": 0}`,
	)}, rec)
}

func Test_calculatorApi_sessions(t *testing.T) {
	app := setup(t)
	hero := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd")
	villain := testutil.CreateUser(t, usrRepo, "Villain", "villain@test.cd")
	heroToken, villainToken := getToken(t, hero), getToken(t, villain)

	s1 := startSession(t, app, heroToken)
	s2 := startSession(t, app, heroToken)
	vs := startSession(t, app, villainToken)

	// listing only shows the caller's sessions
	req, rec := newAuthRequest(http.MethodGet, "/v1/calculator/sessions", heroToken)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var list []sessionResp
	unmarshal(t, rec, &list)
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []string{s1.ID, s2.ID}, ids)

	notFound := marchallObj(t, httpErr{Error: "calculator session not found"})
	tests := []httpTest{
		{name: "other user's session", method: http.MethodGet, path: "/v1/calculator/sessions/" + vs.ID, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "other user's entries", method: http.MethodPost, path: "/v1/calculator/sessions/" + vs.ID + "/entries",
			wantCode: http.StatusNotFound, wantData: notFound,
		},
		{name: "end other user's session", method: http.MethodDelete, path: "/v1/calculator/sessions/" + vs.ID, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "end session", method: http.MethodDelete, path: "/v1/calculator/sessions/" + s1.ID, wantCode: http.StatusNoContent},
		{name: "ended session is gone", method: http.MethodGet, path: "/v1/calculator/sessions/" + s1.ID, wantCode: http.StatusNotFound, wantData: notFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, heroToken, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the villain's session is untouched
	got := getSession(t, app, villainToken, vs.ID)
	assert.Len(t, got.Entries, 1)
}

func Test_calculatorApi_maxEntries(t *testing.T) {
	app := setup(t)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd")
	token := getToken(t, student)
	sess := startSession(t, app, token)

	for i := 1; i < conf.Calculator.MaxEntries; i++ {
		req, rec := newAuthRequest(http.MethodPost, "/v1/calculator/sessions/"+sess.ID+"/entries", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("adding entry %d: code = %d", i, rec.Code)
		}
	}

	req, rec := newAuthRequest(http.MethodPost, "/v1/calculator/sessions/"+sess.ID+"/entries", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var fields map[string]string
	unmarshal(t, rec, &fields)
	assert.Contains(t, fields, "entries")
}
