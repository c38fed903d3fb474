package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impactfamilies/internal/database"
	"impactfamilies/internal/repository"
	"impactfamilies/internal/security"
	"impactfamilies/internal/service"
)

const testPassword = "s3cret"

type testServer struct {
	router http.Handler
	cookie *http.Cookie
	csrf   string
}

type apiResponse struct {
	Data    json.RawMessage   `json:"data"`
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors"`
}

func newTestServer(t *testing.T, loginRate int) *testServer {
	t.Helper()
	return newTestServerWith(t, MiddlewareConfig{LoginAttempts: loginRate, LoginWindow: time.Minute})
}

func newTestServerWith(t *testing.T, cfg MiddlewareConfig) *testServer {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(""))

	log := zerolog.Nop()
	leaderRepo := repository.NewLeaderRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	memberRepo := repository.NewMemberRepository(db)

	auth, err := service.NewAuthService(testPassword, "", "test-secret", time.Hour, log)
	require.NoError(t, err)

	links := service.NewLinkBuilder(service.NotificationConfig{BaseURL: "https://integration.example.org"})
	services := Services{
		Members:    service.NewMemberService(memberRepo, log),
		Families:   service.NewFamilyService(familyRepo, leaderRepo, memberRepo, log),
		Leaders:    service.NewLeaderService(leaderRepo, log),
		Assignment: service.NewAssignmentService(memberRepo, familyRepo, links, nil, log),
		FollowUp:   service.NewFollowUpService(memberRepo, log),
		Statistics: service.NewStatisticsService(memberRepo, log),
		Auth:       auth,
	}

	validate, trans, err := NewValidator()
	require.NoError(t, err)

	h := NewHandlers(services, "test", validate, trans, log)
	m := NewMiddleware(auth, cfg, log)
	return &testServer{router: NewRouter(h, m)}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	if s.csrf != "" {
		req.Header.Set(security.CSRFHeader, s.csrf)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func (s *testServer) login(t *testing.T) {
	t.Helper()

	rec, resp := s.do(t, http.MethodPost, "/login", map[string]string{"password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	var session struct {
		CSRFToken string `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &session))

	for _, c := range rec.Result().Cookies() {
		if c.Name == security.SiteAccessCookie {
			s.cookie = c
		}
	}
	require.NotNil(t, s.cookie)
	s.csrf = session.CSRFToken
}

func decodeData[T any](t *testing.T, resp apiResponse) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Data, &v))
	return v
}

type idOnly struct {
	ID int64 `json:"id"`
}

func TestHealthCheckIsPublic(t *testing.T) {
	srv := newTestServer(t, 5)

	rec, resp := srv.do(t, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Contains(t, string(resp.Data), "available")
}

func TestAPIRequiresSiteAccess(t *testing.T) {
	srv := newTestServer(t, 5)

	rec, resp := srv.do(t, http.MethodGet, "/api/members", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	srv.cookie = &http.Cookie{Name: security.SiteAccessCookie, Value: "forged"}
	rec, _ = srv.do(t, http.MethodGet, "/api/members", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t, 5)

	rec, resp := srv.do(t, http.MethodPost, "/login", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid password", resp.Message)

	rec, resp = srv.do(t, http.MethodPost, "/login", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "password", resp.Errors[0].Field)

	srv.login(t)
	assert.True(t, srv.cookie.HttpOnly)
	assert.NotEmpty(t, srv.csrf)

	rec, _ = srv.do(t, http.MethodGet, "/api/members", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = srv.do(t, http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == security.SiteAccessCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestLoginIsRateLimited(t *testing.T) {
	srv := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		rec, _ := srv.do(t, http.MethodPost, "/login", map[string]string{"password": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec, resp := srv.do(t, http.MethodPost, "/login", map[string]string{"password": testPassword})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
}

func (s *testServer) loginFrom(t *testing.T, remoteAddr string, headers map[string]string) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte(`{"password":"wrong"}`)))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec.Code
}

func TestLoginRateLimitIgnoresForwardingHeaders(t *testing.T) {
	srv := newTestServer(t, 2)

	var codes []int
	for i := 0; i < 6; i++ {
		codes = append(codes, srv.loginFrom(t, "198.51.100.20:4000", map[string]string{
			"X-Forwarded-For": fmt.Sprintf("203.0.113.%d", i+1),
			"X-Real-IP":       fmt.Sprintf("192.0.2.%d", i+1),
		}))
	}

	assert.Equal(t, []int{
		http.StatusUnauthorized,
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)

	// another client is not affected
	assert.Equal(t, http.StatusUnauthorized, srv.loginFrom(t, "198.51.100.21:4000", nil))
}

func TestLoginRateLimitBehindTrustedProxy(t *testing.T) {
	srv := newTestServerWith(t, MiddlewareConfig{LoginAttempts: 2, LoginWindow: time.Minute, TrustProxy: true})
	proxy := "10.0.0.2:8443"

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, srv.loginFrom(t, proxy, map[string]string{"X-Forwarded-For": "203.0.113.7"}))
	}
	assert.Equal(t, http.StatusTooManyRequests, srv.loginFrom(t, proxy, map[string]string{"X-Forwarded-For": "203.0.113.7"}))

	// clients behind the same proxy have their own budget
	assert.Equal(t, http.StatusUnauthorized, srv.loginFrom(t, proxy, map[string]string{"X-Forwarded-For": "203.0.113.8"}))
}

func TestMutationsRequireCSRFToken(t *testing.T) {
	srv := newTestServer(t, 5)
	srv.login(t)
	token := srv.csrf
	leader := map[string]string{"first_name": "Anne", "last_name": "Durand"}

	srv.csrf = ""
	rec, resp := srv.do(t, http.MethodPost, "/api/leaders", leader)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Invalid CSRF token", resp.Message)

	srv.csrf = "forged"
	rec, _ = srv.do(t, http.MethodPost, "/api/leaders", leader)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	srv.csrf = token
	rec, _ = srv.do(t, http.MethodPost, "/api/leaders", leader)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestMemberValidation(t *testing.T) {
	srv := newTestServer(t, 5)
	srv.login(t)

	rec, resp := srv.do(t, http.MethodPost, "/api/members", map[string]any{
		"first_name": "Lea",
		"last_name":  "Petit",
		"email":      "not-an-email",
		"latitude":   123.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Input validation failed", resp.Message)

	fields := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		fields = append(fields, e.Field)
		assert.NotEmpty(t, e.Message)
	}
	assert.ElementsMatch(t, []string{"email", "date_of_birth", "latitude"}, fields)

	rec, resp = srv.do(t, http.MethodPost, "/api/members", map[string]any{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Message, "invalid request body")

	rec, resp = srv.do(t, http.MethodPost, "/api/members", map[string]any{
		"first_name":    "Lea",
		"last_name":     "Petit",
		"date_of_birth": "2010-04-01",
		"latitude":      43.6,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.ErrInvalidCoordinates.Error(), resp.Message)
}

func TestAssignmentFlow(t *testing.T) {
	srv := newTestServer(t, 5)
	srv.login(t)

	rec, resp := srv.do(t, http.MethodPost, "/api/leaders", map[string]string{
		"first_name": "Anne", "last_name": "Durand", "phone": "06 11 22 33 44",
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	pilote := decodeData[idOnly](t, resp)

	near := map[string]any{"name": "Capitole", "latitude": 43.6045, "longitude": 1.4440, "pilote_id": pilote.ID}
	rec, resp = srv.do(t, http.MethodPost, "/api/families", near)
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	nearFamily := decodeData[idOnly](t, resp)

	far := map[string]any{"name": "Paris", "latitude": 48.8566, "longitude": 2.3522}
	rec, resp = srv.do(t, http.MethodPost, "/api/families", far)
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	farFamily := decodeData[idOnly](t, resp)

	rec, resp = srv.do(t, http.MethodPost, "/api/members", map[string]any{
		"first_name":    "Lea",
		"last_name":     "Petit",
		"phone":         "0699999999",
		"date_of_birth": "2010-04-01",
		"latitude":      43.6047,
		"longitude":     1.4442,
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	member := decodeData[idOnly](t, resp)

	t.Run("closest families", func(t *testing.T) {
		rec, resp := srv.do(t, http.MethodGet, fmt.Sprintf("/api/members/%d/closest-families?limit=1", member.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		closest := decodeData[service.ClosestFamilies](t, resp)
		require.Len(t, closest.Candidates, 1)
		assert.Equal(t, nearFamily.ID, closest.Candidates[0].Family.ID)
		assert.Less(t, closest.Candidates[0].DistanceKm, 1.0)

		rec, _ = srv.do(t, http.MethodGet, fmt.Sprintf("/api/members/%d/closest-families?limit=-1", member.ID), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec, _ = srv.do(t, http.MethodGet, "/api/members/999/closest-families", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("assign returns leader links", func(t *testing.T) {
		rec, resp := srv.do(t, http.MethodPost, fmt.Sprintf("/api/families/%d/members", nearFamily.ID), map[string]int64{"member_id": member.ID})
		require.Equal(t, http.StatusOK, rec.Code)

		result := decodeData[service.AssignmentResult](t, resp)
		assert.True(t, result.Success)
		require.NotNil(t, result.Pilote)
		assert.Equal(t, "33611223344", result.Pilote.PhoneFormatted)
		assert.Contains(t, result.Pilote.LinkURL, "https://wa.me/33611223344?text=")
		assert.Nil(t, result.Copilote)
	})

	t.Run("reassignment overwrites", func(t *testing.T) {
		rec, _ := srv.do(t, http.MethodPost, fmt.Sprintf("/api/families/%d/members", farFamily.ID), map[string]int64{"member_id": member.ID})
		require.Equal(t, http.StatusOK, rec.Code)

		rec, resp := srv.do(t, http.MethodGet, fmt.Sprintf("/api/members/%d", member.ID), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got struct {
			FamilyID   *int64  `json:"family_id"`
			FamilyName *string `json:"family_name"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		require.NotNil(t, got.FamilyID)
		assert.Equal(t, farFamily.ID, *got.FamilyID)
		require.NotNil(t, got.FamilyName)
		assert.Equal(t, "Paris", *got.FamilyName)
	})

	t.Run("assignment failures", func(t *testing.T) {
		rec, resp := srv.do(t, http.MethodPost, "/api/families/999/members", map[string]int64{"member_id": member.ID})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		result := decodeData[service.AssignmentResult](t, resp)
		assert.False(t, result.Success)
		assert.Equal(t, service.MsgFamilyNotFound, result.Error)

		rec, resp = srv.do(t, http.MethodPost, fmt.Sprintf("/api/families/%d/members", nearFamily.ID), map[string]int64{"member_id": 999})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, service.MsgMemberNotFound, decodeData[service.AssignmentResult](t, resp).Error)
	})

	t.Run("remove from family", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rec, resp := srv.do(t, http.MethodDelete, fmt.Sprintf("/api/members/%d/family", member.ID), nil)
			require.Equal(t, http.StatusOK, rec.Code)
			result := decodeData[service.AssignmentResult](t, resp)
			assert.True(t, result.Success)
			assert.Nil(t, result.Member.FamilyID)
		}

		rec, resp := srv.do(t, http.MethodGet, "/api/members/available", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeData[[]idOnly](t, resp), 1)
	})
}

func TestListMembersQueryParameters(t *testing.T) {
	srv := newTestServer(t, 5)
	srv.login(t)

	for _, name := range []string{"Alice", "Bruno", "Chloe"} {
		rec, resp := srv.do(t, http.MethodPost, "/api/members", map[string]any{
			"first_name": name, "last_name": "Martin", "date_of_birth": "2009-09-09", "gender": "female",
		})
		require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	}

	rec, resp := srv.do(t, http.MethodGet, "/api/members?page=2&page_size=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeData[service.MemberPage](t, resp)
	assert.Len(t, page.Members, 1)
	assert.Equal(t, 3, page.Metadata.Total)
	assert.Equal(t, 2, page.Metadata.TotalPages)
	assert.True(t, page.Metadata.HasPrevPage)
	assert.False(t, page.Metadata.HasNextPage)

	rec, resp = srv.do(t, http.MethodGet, "/api/members?query=bru&gender=all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decodeData[service.MemberPage](t, resp)
	require.Len(t, page.Members, 1)
	assert.Equal(t, "Bruno", page.Members[0].FirstName)

	rec, _ = srv.do(t, http.MethodGet, "/api/members?page=two", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/members?start_date=01/02/2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFollowUpIsPublic(t *testing.T) {
	srv := newTestServer(t, 5)
	srv.login(t)

	rec, resp := srv.do(t, http.MethodPost, "/api/members", map[string]any{
		"first_name": "Lea", "last_name": "Petit", "date_of_birth": "2010-04-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)
	member := decodeData[idOnly](t, resp)

	public := &testServer{router: srv.router}
	path := fmt.Sprintf("/follow-up/%d/", member.ID)

	rec, resp = public.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	rec, resp = public.do(t, http.MethodPost, path, map[string]any{"is_contacted": true, "leader_notes": "  appel ok  "})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	var got struct {
		IsContacted bool       `json:"is_contacted"`
		ContactDate *time.Time `json:"contact_date"`
		LeaderNotes *string    `json:"leader_notes"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.True(t, got.IsContacted)
	assert.NotNil(t, got.ContactDate)
	require.NotNil(t, got.LeaderNotes)
	assert.Equal(t, "appel ok", *got.LeaderNotes)

	rec, _ = public.do(t, http.MethodGet, "/follow-up/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = public.do(t, http.MethodGet, "/follow-up/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFamilyAndLeaderEndpoints(t *testing.T) {
	srv := newTestServer(t, 5)
	srv.login(t)

	rec, resp := srv.do(t, http.MethodPost, "/api/leaders", map[string]string{"first_name": "Anne", "last_name": "Durand"})
	require.Equal(t, http.StatusCreated, rec.Code)
	leader := decodeData[idOnly](t, resp)

	rec, resp = srv.do(t, http.MethodPost, "/api/families", map[string]any{"name": "Capitole", "pilote_id": leader.ID, "copilote_id": leader.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.ErrSameLeader.Error(), resp.Message)

	rec, resp = srv.do(t, http.MethodPost, "/api/families", map[string]any{"name": "Capitole", "pilote_id": leader.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	family := decodeData[idOnly](t, resp)

	rec, resp = srv.do(t, http.MethodGet, fmt.Sprintf("/api/families/%d", family.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var overview struct {
		Family struct {
			Name   string `json:"name"`
			Pilote *struct {
				FirstName string `json:"first_name"`
			} `json:"pilote"`
		} `json:"family"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &overview))
	assert.Equal(t, "Capitole", overview.Family.Name)
	require.NotNil(t, overview.Family.Pilote)
	assert.Equal(t, "Anne", overview.Family.Pilote.FirstName)

	rec, _ = srv.do(t, http.MethodPut, fmt.Sprintf("/api/families/%d", family.ID), map[string]any{"name": "Capitole Nord"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = srv.do(t, http.MethodPut, fmt.Sprintf("/api/leaders/%d", leader.ID), map[string]string{"first_name": "Anne", "last_name": "Roux"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = srv.do(t, http.MethodDelete, fmt.Sprintf("/api/leaders/%d", leader.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = srv.do(t, http.MethodDelete, fmt.Sprintf("/api/families/%d", family.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = srv.do(t, http.MethodDelete, fmt.Sprintf("/api/families/%d", family.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, resp = srv.do(t, http.MethodGet, "/api/families", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[[]idOnly](t, resp))
}

func TestStatisticsEndpoint(t *testing.T) {
	srv := newTestServer(t, 5)
	srv.login(t)

	rec, resp := srv.do(t, http.MethodGet, "/api/statistics?year=2024&month=3", nil)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	report := decodeData[service.StatisticsReport](t, resp)
	assert.Len(t, report.Monthly, 12)
	assert.NotEmpty(t, report.Weekly)

	rec, _ = srv.do(t, http.MethodGet, "/api/statistics?month=13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = srv.do(t, http.MethodGet, "/api/statistics?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteReturnsJSON(t *testing.T) {
	srv := newTestServer(t, 5)

	rec, resp := srv.do(t, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}
