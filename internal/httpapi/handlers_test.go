package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"checkin-calls/internal/auth"
	"checkin-calls/internal/calls"
	"checkin-calls/internal/config"
)

type stubOriginator struct {
	err error
	got calls.OriginateRequest
}

func (s *stubOriginator) Originate(ctx context.Context, req calls.OriginateRequest) (calls.OriginateResult, error) {
	s.got = req
	if s.err != nil {
		return calls.OriginateResult{}, s.err
	}
	return calls.OriginateResult{CallSID: "CA9", Status: "queued"}, nil
}

type apiFixture struct {
	router *gin.Engine
	token  string
	pair   auth.TokenPair
	orig   *stubOriginator
	repo   *calls.MemoryRepo
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	pair, err := m.IssuePair(time.Now(), "family-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	repo := calls.NewMemoryRepo()
	repo.AddPatient(calls.Patient{ID: "p1", FirstName: "Ada", LastName: "Lovelace", PhoneNumber: "5551234567", FamilyMemberID: "family-1"})
	repo.AddPatient(calls.Patient{ID: "p2", FirstName: "Bob", PhoneNumber: "5559876543", FamilyMemberID: "family-2"})
	orig := &stubOriginator{}

	h := Handlers{Auth: m, Calls: calls.NewService(repo, orig, "https://example.test")}
	r := gin.New()
	r.POST("/auth/refresh", h.Refresh)
	r.POST("/v1/calls/trigger", auth.RequireAccessToken(m), h.TriggerCall)

	return &apiFixture{router: r, token: pair.AccessToken, pair: pair, orig: orig, repo: repo}
}

func (f *apiFixture) do(path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestTriggerCall_Success(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do("/v1/calls/trigger", f.token, `{"patient_id":"p1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res calls.TriggerResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.CallSID != "CA9" || res.Message != "Call initiated to Ada Lovelace" {
		t.Fatalf("unexpected result %+v", res)
	}
	if f.orig.got.To != "+15551234567" || f.orig.got.VoiceURL != "https://example.test/voice/initial" {
		t.Fatalf("unexpected originate request %+v", f.orig.got)
	}
	if _, err := f.repo.GetByCallSID(context.Background(), "CA9"); err != nil {
		t.Fatalf("expected call record, got %v", err)
	}
}

func TestTriggerCall_Errors(t *testing.T) {
	cases := []struct {
		name    string
		token   bool
		body    string
		origErr error
		want    int
	}{
		{"no token", false, `{"patient_id":"p1"}`, nil, http.StatusUnauthorized},
		{"bad json", true, `{`, nil, http.StatusBadRequest},
		{"missing patient id", true, `{}`, nil, http.StatusBadRequest},
		{"unknown patient", true, `{"patient_id":"nope"}`, nil, http.StatusNotFound},
		{"someone else's patient", true, `{"patient_id":"p2"}`, nil, http.StatusNotFound},
		{"invalid phone", true, `{"patient_id":"p1"}`, calls.ErrInvalidPhone, http.StatusBadRequest},
		{"provider down", true, `{"patient_id":"p1"}`, errors.New("503"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		f := newAPIFixture(t)
		f.orig.err = tc.origErr
		token := ""
		if tc.token {
			token = f.token
		}
		if w := f.do("/v1/calls/trigger", token, tc.body); w.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d: %s", tc.name, tc.want, w.Code, w.Body.String())
		}
	}
}

func TestRefresh(t *testing.T) {
	f := newAPIFixture(t)

	if w := f.do("/auth/refresh", "", `{"refresh_token":"`+f.pair.AccessToken+`"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("access token must not refresh, got %d", w.Code)
	}

	w := f.do("/auth/refresh", "", `{"refresh_token":"`+f.pair.RefreshToken+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out["access_token"] == "" {
		t.Fatalf("expected new access token, got %s", w.Body.String())
	}
	if w := f.do("/v1/calls/trigger", out["access_token"], `{"patient_id":"p1"}`); w.Code != http.StatusOK {
		t.Fatalf("refreshed token should work, got %d", w.Code)
	}
}
