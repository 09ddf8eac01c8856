// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/florafind/internal/auth"
	"github.com/pdiddy/florafind/internal/profile"
	"github.com/pdiddy/florafind/pkg/types"
)

// --- fakes ---

type fakeProfiler struct {
	mu        sync.Mutex
	aggregate []profile.AggregateInput
	scans     []string
	err       error
}

func (f *fakeProfiler) Aggregate(_ context.Context, in profile.AggregateInput) (types.PlantProfile, error) {
	f.mu.Lock()
	f.aggregate = append(f.aggregate, in)
	f.mu.Unlock()
	if f.err != nil {
		return types.PlantProfile{}, f.err
	}
	if strings.TrimSpace(in.PlantName) == "" {
		return types.PlantProfile{}, profile.ErrEmptyPlantName
	}
	return types.PlantProfile{
		Profile:            in.PlantName + " is a flowering plant.",
		ScientificArticles: []string{"https://pubmed.ncbi.nlm.nih.gov/1/"},
		BotanicalResources: []string{"https://www.gbif.org/species/1"},
		GeneticData:        "diploid",
		Family:             "Rosaceae",
	}, nil
}

func (f *fakeProfiler) Scan(_ context.Context, uri string) (types.ScanResult, error) {
	f.mu.Lock()
	f.scans = append(f.scans, uri)
	f.mu.Unlock()
	if f.err != nil {
		return types.ScanResult{}, f.err
	}
	if _, err := profile.ParsePhoto(uri); err != nil {
		return types.ScanResult{}, err
	}
	return types.ScanResult{PlantInfo: "Rosa canina, the dog rose."}, nil
}

func (f *fakeProfiler) GenerateImage(_ context.Context, name string) (types.PlantImage, error) {
	if f.err != nil {
		return types.PlantImage{}, f.err
	}
	return types.PlantImage{ImageURL: profile.Media{MIMEType: "image/png", Data: []byte("PNGDATA")}.DataURI()}, nil
}

type fakeArticles struct {
	mu    sync.Mutex
	urls  []string
	calls []string
	max   []int
}

func (f *fakeArticles) Search(_ context.Context, term string, maxResults int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, term)
	f.max = append(f.max, maxResults)
	return f.urls
}

// --- harness ---

type harness struct {
	t        *testing.T
	server   *Server
	handler  http.Handler
	profiles *fakeProfiler
	articles *fakeArticles
	accounts *auth.Service
}

func newHarness(t *testing.T, cfg types.ServerConfig) *harness {
	t.Helper()
	store, err := auth.NewStore(filepath.Join(t.TempDir(), "florafind.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	accounts := auth.NewService(store, types.AuthConfig{SessionSecret: "web-test"}, auth.LogMailer{}, nil)
	profiles := &fakeProfiler{}
	articles := &fakeArticles{}

	srv, err := NewServer(cfg, Deps{Profiles: profiles, Articles: articles, Accounts: accounts}, nil)
	require.NoError(t, err)

	return &harness{t: t, server: srv, handler: srv.Handler(), profiles: profiles, articles: articles, accounts: accounts}
}

func welcomed() *http.Cookie { return &http.Cookie{Name: welcomeCookie, Value: "1"} }

func (h *harness) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return h.do(httptest.NewRequest(http.MethodGet, target, nil), cookies...)
}

func (h *harness) postForm(target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req, cookies...)
}

func (h *harness) postJSON(target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return h.do(req)
}

// login registers an account and returns its session cookie.
func (h *harness) login(email string) *http.Cookie {
	h.t.Helper()
	_, err := h.accounts.Register(context.Background(), email, "password1")
	require.NoError(h.t, err)
	token, _, err := h.accounts.Login(context.Background(), email, "password1")
	require.NoError(h.t, err)
	return &http.Cookie{Name: sessionCookie, Value: token}
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- tests ---

func TestNewServer_RequiresDeps(t *testing.T) {
	_, err := NewServer(types.ServerConfig{}, Deps{}, nil)
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})
	rec := h.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestWelcomeRedirect(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})

	tests := []struct {
		path     string
		redirect bool
	}{
		{"/", true},
		{"/plant/Rose", true},
		{"/login", true},
		{"/welcome", false},
		{"/healthz", false},
		{"/api/articles?term=rose", false},
		{"/static/style.css", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := h.get(tt.path)
			if tt.redirect {
				assert.Equal(t, http.StatusSeeOther, rec.Code)
				assert.Equal(t, "/welcome", rec.Header().Get("Location"))
			} else {
				assert.NotEqual(t, "/welcome", rec.Header().Get("Location"))
			}
		})
	}
}

func TestWelcomeCompletion(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})

	page := h.get("/welcome")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Search any plant")

	rec := h.postForm("/welcome", url.Values{})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	c := cookieNamed(rec, welcomeCookie)
	require.NotNil(t, c)
	assert.Equal(t, "1", c.Value)

	home := h.get("/", c)
	assert.Equal(t, http.StatusOK, home.Code)
	assert.Contains(t, home.Body.String(), "Discover the plant world")
}

func TestSearchRedirect(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})

	rec := h.get("/search?q=Monstera+deliciosa", welcomed())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/plant/Monstera%20deliciosa", rec.Header().Get("Location"))

	rec = h.get("/search?q=++", welcomed())
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestPlantPage(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})

	rec := h.get("/plant/Dog%20rose", welcomed())
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Dog rose is a flowering plant.")
	assert.Contains(t, body, "Family: Rosaceae")
	assert.Contains(t, body, "https://pubmed.ncbi.nlm.nih.gov/1/")
	require.Len(t, h.profiles.aggregate, 1)
	assert.Equal(t, "Dog rose", h.profiles.aggregate[0].PlantName)
}

func TestPlantPage_ModelFailure(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})
	h.profiles.err = errors.New("quota exceeded")

	rec := h.get("/plant/Rose", welcomed())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "quota exceeded")
}

func TestPlantImage(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})

	rec := h.get("/plant/Rose/image", welcomed())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "PNGDATA", rec.Body.String())

	h.profiles.err = profile.ErrImageGeneration
	rec = h.get("/plant/Rose/image", welcomed())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPlantPage_ImageLinkEscapesName(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantSrc string
	}{
		{"question mark", "/plant/what%3F", `src="/plant/what%3F/image"`},
		{"slash", "/plant/a%2Fb", `src="/plant/a%2Fb/image"`},
		{"hash", "/plant/x%23y", `src="/plant/x%23y/image"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, types.ServerConfig{})

			rec := h.get(tt.path, welcomed())
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantSrc)

			src := strings.TrimSuffix(strings.TrimPrefix(tt.wantSrc, `src="`), `"`)
			rec = h.get(src, welcomed())
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
			assert.Len(t, h.profiles.aggregate, 1)
		})
	}
}

func TestScanRequiresLogin(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})

	rec := h.get("/scan", welcomed())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fscan", rec.Header().Get("Location"))

	rec = h.get("/scan", welcomed(), h.login("scan@example.com"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func multipartPhoto(t *testing.T, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="photo"; filename="leaf.png"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestScanUpload(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})
	session := h.login("upload@example.com")

	body, ct := multipartPhoto(t, "image/png", []byte("\x89PNG\r\n\x1a\nfake"))
	req := httptest.NewRequest(http.MethodPost, "/scan", body)
	req.Header.Set("Content-Type", ct)
	rec := h.do(req, welcomed(), session)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rosa canina, the dog rose.")
	require.Len(t, h.profiles.scans, 1)
	assert.True(t, strings.HasPrefix(h.profiles.scans[0], "data:image/png;base64,"))
}

func TestScanUpload_TooLarge(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})
	session := h.login("big@example.com")

	body, ct := multipartPhoto(t, "image/jpeg", make([]byte, profile.MaxPhotoBytes+1))
	req := httptest.NewRequest(http.MethodPost, "/scan", body)
	req.Header.Set("Content-Type", ct)
	rec := h.do(req, welcomed(), session)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, h.profiles.scans)
}

func TestSignupLoginLogout(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})

	rec := h.postForm("/signup", url.Values{
		"email": {"fern@example.com"}, "password": {"fronds1"}, "confirm": {"fronds1"},
	}, welcomed())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/subscribe", rec.Header().Get("Location"))
	session := cookieNamed(rec, sessionCookie)
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	home := h.get("/", welcomed(), session)
	assert.Contains(t, home.Body.String(), "fern@example.com")

	rec = h.postForm("/login", url.Values{
		"email": {"fern@example.com"}, "password": {"fronds1"}, "next": {"/scan"},
	}, welcomed())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/scan", rec.Header().Get("Location"))

	rec = h.postForm("/logout", url.Values{}, welcomed(), session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cleared := cookieNamed(rec, sessionCookie)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestSignupErrors(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})
	h.login("taken@example.com")

	tests := []struct {
		name    string
		form    url.Values
		wantMsg string
	}{
		{"mismatch", url.Values{"email": {"a@example.com"}, "password": {"secret1"}, "confirm": {"secret2"}}, "Passwords do not match."},
		{"weak", url.Values{"email": {"a@example.com"}, "password": {"abc"}, "confirm": {"abc"}}, "at least 6 characters"},
		{"invalid email", url.Values{"email": {"nope"}, "password": {"secret1"}, "confirm": {"secret1"}}, "invalid email address"},
		{"taken", url.Values{"email": {"taken@example.com"}, "password": {"secret1"}, "confirm": {"secret1"}}, "already exists"},
		{"too long", url.Values{"email": {"a@example.com"}, "password": {strings.Repeat("p", 80)}, "confirm": {strings.Repeat("p", 80)}}, "at most 72 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.postForm("/signup", tt.form, welcomed())
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantMsg)
			assert.Nil(t, cookieNamed(rec, sessionCookie))
		})
	}
}

func TestLoginFailure(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})
	h.login("ivy@example.com")

	rec := h.postForm("/login", url.Values{"email": {"ivy@example.com"}, "password": {"wrong-one"}}, welcomed())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})
	h.login("oak@example.com")

	rec := h.postForm("/login", url.Values{
		"email": {"oak@example.com"}, "password": {"password1"}, "next": {"//evil.example"},
	}, welcomed())
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestBadSessionCookieIsCleared(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})

	rec := h.get("/", welcomed(), &http.Cookie{Name: sessionCookie, Value: "garbage"})
	assert.Equal(t, http.StatusOK, rec.Code)
	c := cookieNamed(rec, sessionCookie)
	require.NotNil(t, c)
	assert.Less(t, c.MaxAge, 0)
	assert.Contains(t, rec.Body.String(), "Sign up")
}

func TestPasswordResetFlow(t *testing.T) {
	store, err := auth.NewStore(filepath.Join(t.TempDir(), "reset.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	mailer := &captureMailer{}
	accounts := auth.NewService(store, types.AuthConfig{SessionSecret: "s"}, mailer, nil)
	srv, err := NewServer(types.ServerConfig{}, Deps{Profiles: &fakeProfiler{}, Articles: &fakeArticles{}, Accounts: accounts}, nil)
	require.NoError(t, err)
	h := &harness{t: t, server: srv, handler: srv.Handler(), accounts: accounts}

	_, err = accounts.Register(context.Background(), "lily@example.com", "original")
	require.NoError(t, err)

	rec := h.postForm("/forgot-password", url.Values{"email": {"lily@example.com"}}, welcomed())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "reset link is on its way")
	require.NotEmpty(t, mailer.link)

	link, err := url.Parse(mailer.link)
	require.NoError(t, err)
	token := link.Query().Get("token")

	page := h.get("/reset-password?token="+url.QueryEscape(token), welcomed())
	assert.Contains(t, page.Body.String(), token)

	rec = h.postForm("/reset-password", url.Values{"token": {token}, "password": {"newpass1"}}, welcomed())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?reset=1", rec.Header().Get("Location"))

	rec = h.postForm("/reset-password", url.Values{"token": {token}, "password": {"newpass2"}}, welcomed())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, _, err = accounts.Login(context.Background(), "lily@example.com", "newpass1")
	assert.NoError(t, err)
}

type captureMailer struct{ link string }

func (m *captureMailer) SendPasswordReset(_ context.Context, _, link string) error {
	m.link = link
	return nil
}

func TestSubscribe(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})

	page := h.get("/subscribe", welcomed())
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "$44.99")
	assert.Contains(t, page.Body.String(), "Best value")
	assert.Contains(t, page.Body.String(), "7-day free trial")

	rec := h.postForm("/subscribe", url.Values{"plan": {"monthly"}}, welcomed())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login?next="))

	session := h.login("cactus@example.com")
	rec = h.postForm("/subscribe", url.Values{"plan": {"annual"}}, welcomed(), session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	u, err := h.accounts.Authenticate(context.Background(), session.Value)
	require.NoError(t, err)
	assert.Equal(t, types.PlanAnnual, u.Plan)

	rec = h.postForm("/subscribe", url.Values{"plan": {"forever"}}, welcomed(), session)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIArticles(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})

	rec := h.get("/api/articles?term=Monstera&max=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"articles": []}`, rec.Body.String())
	assert.Equal(t, []string{"Monstera"}, h.articles.calls)
	assert.Equal(t, []int{3}, h.articles.max)

	h.articles.urls = []string{"https://pubmed.ncbi.nlm.nih.gov/42/"}
	rec = h.get("/api/articles?term=Monstera&max=bogus")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"articles": ["https://pubmed.ncbi.nlm.nih.gov/42/"]}`, rec.Body.String())
	assert.Equal(t, 5, h.articles.max[1])

	h.get("/api/articles?term=Monstera&max=500")
	h.get("/api/articles?term=Monstera&max=0")
	assert.Equal(t, []int{3, 5, maxArticles, 0}, h.articles.max)
}

func TestAPIProfile(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})

	rec := h.postJSON("/api/profile", `{"plantName": "Rose"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var got types.PlantProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Rosaceae", got.Family)

	rec = h.postJSON("/api/profile", `{"plantName": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "plant name is required")

	rec = h.postJSON("/api/profile", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.profiles.err = errors.New("upstream exploded")
	rec = h.postJSON("/api/profile", `{"plantName": "Rose"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded")
}

func TestAPIScan(t *testing.T) {
	h := newHarness(t, types.ServerConfig{})

	rec := h.postJSON("/api/scan", `{"photoDataUri": "data:image/png;base64,iVBORw0KGgo="}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"plantInfo": "Rosa canina, the dog rose."}`, rec.Body.String())

	rec = h.postJSON("/api/scan", `{"photoDataUri": "http://example.com/leaf.png"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, types.ServerConfig{RateLimit: 2})

	for i := 0; i < 2; i++ {
		rec := h.postJSON("/api/profile", `{"plantName": "Rose"}`)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
	rec := h.postJSON("/api/profile", `{"plantName": "Rose"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Other clients keep their own budget.
	req := httptest.NewRequest(http.MethodPost, "/api/profile", strings.NewReader(`{"plantName": "Rose"}`))
	req.RemoteAddr = "203.0.113.9:5555"
	assert.Equal(t, http.StatusOK, h.do(req).Code)

	// Non-model routes are not limited.
	assert.Equal(t, http.StatusOK, h.get("/healthz").Code)
}

func TestClientLimiter(t *testing.T) {
	l := newClientLimiter(1)
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))
}

func TestSafeNext(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/scan", "/scan"},
		{"/plant/Rose?x=1", "/plant/Rose?x=1"},
		{"", "/"},
		{"https://evil.example", "/"},
		{"//evil.example", "/"},
		{`/\evil.example`, "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.in), fmt.Sprintf("safeNext(%q)", tt.in))
	}
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "pubmed.ncbi.nlm.nih.gov", hostOf("https://pubmed.ncbi.nlm.nih.gov/123/"))
	assert.Equal(t, "example.org", hostOf("http://example.org"))
	assert.Equal(t, "", hostOf(""))
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	h := newHarness(t, types.ServerConfig{Addr: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.server.Run(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
