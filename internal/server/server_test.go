package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"rgbportal/internal/auth"
	"rgbportal/internal/config"
	"rgbportal/internal/db"
	"rgbportal/internal/domain"
	"rgbportal/internal/engine"
	"rgbportal/internal/migrate"
	"rgbportal/internal/notify"
)

const (
	testJWTSecret = "server-test-secret"
	adminPassword = "reviewpass123"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	hub := notify.NewHub()
	e := engine.New(conn, config.Default(), hub)
	seedAdmins(t, e)

	handler, err := New(Config{
		Engine: e,
		Hub:    hub,
		Auth:   AuthConfig{JWTSecret: testJWTSecret, TokenTTLHours: 1},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.close() }
}

func seedAdmins(t *testing.T, e engine.Engine) {
	t.Helper()
	hash, err := auth.HashPassword(adminPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, role := range domain.Roles() {
		a := domain.Admin{
			Email:        fmt.Sprintf("%s@rgb.test", role),
			PasswordHash: hash,
			FirstName:    "Reviewer",
			LastName:     string(role),
			Role:         role,
			Enabled:      true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := e.Repo.InsertAdmin(context.Background(), a); err != nil {
			t.Fatalf("seed admin %s: %v", role, err)
		}
	}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func signupApplicant(t *testing.T, srv *testServer, email string) string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/signup", map[string]any{
		"email":       email,
		"password":    "applicantpass",
		"firstname":   "Jane",
		"lastname":    "Doe",
		"phonenumber": "0788111222",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("signup status %d: %s", res.StatusCode, string(data))
	}
	var tok TokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	return tok.Token
}

func loginAdmin(t *testing.T, srv *testServer, role domain.Role) string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/login", map[string]any{
		"email":    fmt.Sprintf("%s@rgb.test", role),
		"password": adminPassword,
		"kind":     "admin",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login %s status %d: %s", role, res.StatusCode, string(data))
	}
	var tok TokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		t.Fatalf("unmarshal token: %v", err)
	}
	return tok.Token
}

func submitApplication(t *testing.T, srv *testServer, token string) OutcomeResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/applications", map[string]any{
		"organization_name":  "Hope Community",
		"acronym":            "HC",
		"district":           "Gasabo",
		"organization_email": "info@hope.org",
		"organization_phone": "0788123456",
	}, bearer(token))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create application status %d: %s", res.StatusCode, string(data))
	}
	var out OutcomeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal outcome: %v", err)
	}
	return out
}

func transitionStatus(t *testing.T, srv *testServer, token string, appID int64, target domain.Status) (*http.Response, []byte) {
	t.Helper()
	url := fmt.Sprintf("%s/v1/applications/%d/status", srv.URL, appID)
	return doJSON(t, srv.Client(), http.MethodPut, url, map[string]any{"status": string(target)}, bearer(token))
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return env.Error.Code
}

func TestUnauthenticatedRequestRejected(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/applications", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "unauthorized" {
		t.Fatalf("error code %q", code)
	}
}

func TestSignupSubmitAndList(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	token := signupApplicant(t, srv, "jane@example.org")

	out := submitApplication(t, srv, token)
	if out.Application.Status != domain.StatusPending {
		t.Fatalf("status %s", out.Application.Status)
	}
	if !out.Application.Editable {
		t.Fatal("fresh application should be editable by its owner")
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/applications", nil, bearer(token))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var items []ApplicationResponse
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("listed %d applications", len(items))
	}
}

func TestDuplicateSignupConflict(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	signupApplicant(t, srv, "jane@example.org")

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/signup", map[string]any{
		"email":     "jane@example.org",
		"password":  "applicantpass",
		"firstname": "Jane",
		"lastname":  "Doe",
	}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "email_taken" {
		t.Fatalf("error code %q", code)
	}
}

func TestBadLoginUnauthorized(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	signupApplicant(t, srv, "jane@example.org")

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/auth/login", map[string]any{
		"email":    "jane@example.org",
		"password": "not-the-password",
	}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "invalid_credentials" {
		t.Fatalf("error code %q", code)
	}
}

func TestTransitionDenials(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	applicant := signupApplicant(t, srv, "jane@example.org")
	out := submitApplication(t, srv, applicant)
	appID := out.Application.ID

	fbo := loginAdmin(t, srv, domain.RoleFBOOfficer)
	res, data := transitionStatus(t, srv, fbo, appID, domain.StatusApproved)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "illegal_transition" {
		t.Fatalf("error code %q", code)
	}

	dm := loginAdmin(t, srv, domain.RoleDivisionManager)
	res, data = transitionStatus(t, srv, dm, appID, domain.StatusDMReview)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "no_permission_for_state" {
		t.Fatalf("error code %q", code)
	}

	// Applicants never drive the workflow.
	res, data = transitionStatus(t, srv, applicant, appID, domain.StatusFBOReview)
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for applicant, got %d: %s", res.StatusCode, string(data))
	}
}

func TestFullChainAndPublicCertificateLookup(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	applicant := signupApplicant(t, srv, "jane@example.org")
	out := submitApplication(t, srv, applicant)
	appID := out.Application.ID

	steps := []struct {
		role   domain.Role
		target domain.Status
	}{
		{domain.RoleFBOOfficer, domain.StatusFBOReview},
		{domain.RoleFBOOfficer, domain.StatusTransferToDM},
		{domain.RoleDivisionManager, domain.StatusDMReview},
		{domain.RoleDivisionManager, domain.StatusTransferToHOD},
		{domain.RoleHOD, domain.StatusHODReview},
		{domain.RoleHOD, domain.StatusTransferToSG},
		{domain.RoleSecretaryGeneral, domain.StatusSGReview},
		{domain.RoleSecretaryGeneral, domain.StatusTransferToCEO},
		{domain.RoleCEO, domain.StatusCEOReview},
		{domain.RoleCEO, domain.StatusApproved},
	}
	var final OutcomeResponse
	for _, step := range steps {
		token := loginAdmin(t, srv, step.role)
		res, data := transitionStatus(t, srv, token, appID, step.target)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("transition to %s: %d %s", step.target, res.StatusCode, string(data))
		}
		if err := json.Unmarshal(data, &final); err != nil {
			t.Fatalf("unmarshal outcome: %v", err)
		}
	}
	if final.Application.Status != domain.StatusCertificateIssued {
		t.Fatalf("final status %s", final.Application.Status)
	}
	if final.Application.CertificateNumber == nil {
		t.Fatal("certificate number missing")
	}

	// Certificate lookup needs no credentials.
	res, data := doJSON(t, srv.Client(), http.MethodGet,
		srv.URL+"/v1/certificates/"+*final.Application.CertificateNumber, nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("verify status %d: %s", res.StatusCode, string(data))
	}
	var cert CertificateResponse
	if err := json.Unmarshal(data, &cert); err != nil {
		t.Fatalf("unmarshal certificate: %v", err)
	}
	if cert.OrganizationName != "Hope Community" {
		t.Fatalf("organization %q", cert.OrganizationName)
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/certificates/RGB-2024-999999", nil, nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown certificate, got %d: %s", res.StatusCode, string(data))
	}
}

func TestApplicantIsolation(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	owner := signupApplicant(t, srv, "owner@example.org")
	out := submitApplication(t, srv, owner)

	other := signupApplicant(t, srv, "other@example.org")
	url := fmt.Sprintf("%s/v1/applications/%d", srv.URL, out.Application.ID)
	res, data := doJSON(t, srv.Client(), http.MethodGet, url, nil, bearer(other))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
}

func TestApplicantEditAndLock(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	applicant := signupApplicant(t, srv, "jane@example.org")
	out := submitApplication(t, srv, applicant)
	url := fmt.Sprintf("%s/v1/applications/%d", srv.URL, out.Application.ID)

	edit := map[string]any{
		"organization_name":  "Hope Community Renamed",
		"district":           "Kicukiro",
		"organization_email": "info@hope.org",
		"organization_phone": "0788123456",
	}
	res, data := doJSON(t, srv.Client(), http.MethodPut, url, edit, bearer(applicant))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("edit status %d: %s", res.StatusCode, string(data))
	}

	fbo := loginAdmin(t, srv, domain.RoleFBOOfficer)
	if res, body := transitionStatus(t, srv, fbo, out.Application.ID, domain.StatusFBOReview); res.StatusCode != http.StatusOK {
		t.Fatalf("claim for review: %d %s", res.StatusCode, string(body))
	}

	res, data = doJSON(t, srv.Client(), http.MethodPut, url, edit, bearer(applicant))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 after review start, got %d: %s", res.StatusCode, string(data))
	}
}

func TestNotificationsFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	applicant := signupApplicant(t, srv, "jane@example.org")
	out := submitApplication(t, srv, applicant)

	fbo := loginAdmin(t, srv, domain.RoleFBOOfficer)
	if res, body := transitionStatus(t, srv, fbo, out.Application.ID, domain.StatusFBOReview); res.StatusCode != http.StatusOK {
		t.Fatalf("transition: %d %s", res.StatusCode, string(body))
	}

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/notifications", nil, bearer(applicant))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list notifications: %d %s", res.StatusCode, string(data))
	}
	var items []domain.Notification
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatalf("unmarshal notifications: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("no notifications for applicant")
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/notifications/unread", nil, bearer(applicant))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("unread count: %d %s", res.StatusCode, string(data))
	}
	var unread UnreadCountResponse
	if err := json.Unmarshal(data, &unread); err != nil {
		t.Fatalf("unmarshal unread: %v", err)
	}
	if unread.Unread == 0 {
		t.Fatal("expected unread notifications")
	}

	res, data = doJSON(t, srv.Client(), http.MethodPost,
		srv.URL+"/v1/notifications/"+items[0].ID+"/read", nil, bearer(applicant))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("mark read: %d %s", res.StatusCode, string(data))
	}

	// Another account cannot see or mark this notification.
	other := signupApplicant(t, srv, "other@example.org")
	res, data = doJSON(t, srv.Client(), http.MethodPost,
		srv.URL+"/v1/notifications/"+items[0].ID+"/read", nil, bearer(other))
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
}

func TestStreamDeliversNotificationToSubscriber(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	applicant := signupApplicant(t, srv, "jane@example.org")
	out := submitApplication(t, srv, applicant)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+applicant)
	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stream status %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type %q", ct)
	}

	// The subscription is live once headers arrive; now cause an event.
	fbo := loginAdmin(t, srv, domain.RoleFBOOfficer)
	if tres, body := transitionStatus(t, srv, fbo, out.Application.ID, domain.StatusFBOReview); tres.StatusCode != http.StatusOK {
		t.Fatalf("transition: %d %s", tres.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(res.Body)
	var payload string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			payload = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if payload == "" {
		t.Fatalf("no event received: %v", scanner.Err())
	}
	var n domain.Notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		t.Fatalf("unmarshal event: %v (%s)", err, payload)
	}
	if n.ApplicantID == nil {
		t.Fatalf("event not addressed to the subscriber: %+v", n)
	}
	if n.ApplicationID == nil || *n.ApplicationID != out.Application.ID {
		t.Fatalf("event for wrong application: %+v", n)
	}
}

func TestStatsRequiresAdmin(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	applicant := signupApplicant(t, srv, "jane@example.org")
	submitApplication(t, srv, applicant)

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/stats", nil, bearer(applicant))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", res.StatusCode, string(data))
	}

	fbo := loginAdmin(t, srv, domain.RoleFBOOfficer)
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/stats", nil, bearer(fbo))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats: %d %s", res.StatusCode, string(data))
	}
	var stats engine.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("unmarshal stats: %v", err)
	}
	if stats.Total != 1 {
		t.Fatalf("total %d", stats.Total)
	}
}

func TestAdminManagementHierarchy(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	newAdmin := map[string]any{
		"email":     "extra@rgb.test",
		"password":  adminPassword,
		"firstname": "Extra",
		"lastname":  "Officer",
		"role":      string(domain.RoleFBOOfficer),
	}

	fbo := loginAdmin(t, srv, domain.RoleFBOOfficer)
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/admins", newAdmin, bearer(fbo))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for fbo, got %d: %s", res.StatusCode, string(data))
	}

	sg := loginAdmin(t, srv, domain.RoleSecretaryGeneral)
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/admins", newAdmin, bearer(sg))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("sg create: %d %s", res.StatusCode, string(data))
	}

	// SG may not mint accounts at the top of the hierarchy.
	ceoAccount := map[string]any{
		"email":     "second-ceo@rgb.test",
		"password":  adminPassword,
		"firstname": "Second",
		"lastname":  "Chief",
		"role":      string(domain.RoleCEO),
	}
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/admins", ceoAccount, bearer(sg))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for sg minting ceo, got %d: %s", res.StatusCode, string(data))
	}

	ceo := loginAdmin(t, srv, domain.RoleCEO)
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/admins", ceoAccount, bearer(ceo))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("ceo create: %d %s", res.StatusCode, string(data))
	}
}

func TestBroadcastRestricted(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	signupApplicant(t, srv, "jane@example.org")

	body := map[string]any{"title": "Maintenance", "message": "Portal down Saturday"}

	fbo := loginAdmin(t, srv, domain.RoleFBOOfficer)
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/notifications/broadcast", body, bearer(fbo))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", res.StatusCode, string(data))
	}

	ceo := loginAdmin(t, srv, domain.RoleCEO)
	res, data = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/notifications/broadcast", body, bearer(ceo))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("broadcast: %d %s", res.StatusCode, string(data))
	}
	var out BroadcastResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal broadcast: %v", err)
	}
	if out.Sent == 0 {
		t.Fatal("broadcast reached nobody")
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	fbo := loginAdmin(t, srv, domain.RoleFBOOfficer)
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/api-keys",
		map[string]any{"name": "ci"}, bearer(fbo))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create key: %d %s", res.StatusCode, string(data))
	}
	var created APIKeyResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal key: %v", err)
	}
	if created.Key == "" {
		t.Fatal("raw key not returned on create")
	}

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/stats", nil,
		map[string]string{"X-API-Key": created.Key})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("api key auth: %d %s", res.StatusCode, string(data))
	}

	// Using the key records when it was last seen.
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/api-keys", nil, bearer(fbo))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list keys: %d %s", res.StatusCode, string(data))
	}
	var keys []APIKeyResponse
	if err := json.Unmarshal(data, &keys); err != nil {
		t.Fatalf("unmarshal keys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("listed %d keys", len(keys))
	}
	if keys[0].LastUsedAt == nil || *keys[0].LastUsedAt == "" {
		t.Fatal("last_used_at not recorded after key use")
	}
}
