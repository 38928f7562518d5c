package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Zachkp/folio/internal/analytics"
	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/contact"
	"github.com/Zachkp/folio/internal/draft"
	"github.com/Zachkp/folio/internal/gate"
	"github.com/Zachkp/folio/internal/kv"
	"github.com/Zachkp/folio/internal/portfolio"
	"github.com/Zachkp/folio/internal/prompts"
	"github.com/Zachkp/folio/internal/viewport"
	"github.com/Zachkp/folio/web"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testPassphrase = "23513900"

type fakeCompleter struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.text, f.err
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []contact.Message
	err  error
}

func (m *fakeMailer) Send(msg contact.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type testEnv struct {
	s         *server
	r         *gin.Engine
	mem       *kv.Memory
	completer *fakeCompleter
	mailer    *fakeMailer
	logs      *observer.ObservedLogs
}

func newTestEnv(t *testing.T, load bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	cfg := &config.Config{
		Port:      "0",
		GinMode:   "test",
		Viewport:  config.ViewportConfig{Mode: "scroll", Throttle: 10 * time.Millisecond, LeadIn: 200},
		Analytics: config.AnalyticsConfig{XCloudURL: "https://xcloud.example.com/"},
	}

	tmpl, err := web.Templates()
	require.NoError(t, err)
	library, err := prompts.Parse([]byte("# Library\n\n```prompt\nShip it <carefully>.\n```\n"))
	require.NoError(t, err)

	hub := viewport.NewHub(Sections, viewport.Options{
		Mode:     viewport.ModeScroll,
		LeadIn:   viewport.DefaultLeadIn,
		Interval: 10 * time.Millisecond,
	}, logger)
	t.Cleanup(hub.Close)

	env := &testEnv{
		mem:       kv.NewMemory(),
		completer: &fakeCompleter{text: "Neon-lit dashboards for the grid."},
		mailer:    &fakeMailer{},
		logs:      logs,
	}
	env.s = &server{
		cfg:       cfg,
		logger:    logger,
		projects:  portfolio.NewStore(env.mem, logger),
		gate:      gate.New(testPassphrase, "test-secret", false, logger),
		drafts:    draft.NewAssistant(env.completer, "test-model", time.Second, logger),
		views:     hub,
		mailer:    env.mailer,
		limiter:   contact.NewLimiter(60, 2),
		templates: tmpl,
		terminal:  contact.NewLimiter(60, 2),
		library:   library,
	}
	if load {
		require.NoError(t, env.s.projects.Load(context.Background()))
	}
	env.r = env.s.routes()
	return env
}

type reqOpts struct {
	form    url.Values
	json    any
	htmx    bool
	cookies []*http.Cookie
	accept  string
}

func (e *testEnv) do(t *testing.T, method, path string, o reqOpts) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	switch {
	case o.form != nil:
		req = httptest.NewRequest(method, path, strings.NewReader(o.form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	case o.json != nil:
		b, err := json.Marshal(o.json)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	default:
		req = httptest.NewRequest(method, path, nil)
	}
	if o.htmx {
		req.Header.Set("HX-Request", "true")
	}
	if o.accept != "" {
		req.Header.Set("Accept", o.accept)
	}
	for _, c := range o.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.r.ServeHTTP(rec, req)
	return rec
}

// login returns the admin session cookies.
func (e *testEnv) login(t *testing.T) []*http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/admin/login", reqOpts{form: url.Values{"passphrase": {testPassphrase}}, htmx: true})
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func projectValues(title string) url.Values {
	return url.Values{
		"title":       {title},
		"description": {"A project called " + title},
		"imageUrl":    {"https://img.example.com/" + strings.ToLower(title) + ".png"},
		"projectUrl":  {"https://example.com/" + strings.ToLower(title)},
		"tags":        {"Go, HTMX, go"},
		"category":    {"Web App"},
	}
}

// toastOf decodes the single HX-Trigger header.
func toastOf(t *testing.T, rec *httptest.ResponseRecorder) (toast, map[string]json.RawMessage) {
	t.Helper()
	values := rec.Header().Values("HX-Trigger")
	require.Len(t, values, 1, "exactly one trigger header")
	var events map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(values[0]), &events))
	var tt toast
	require.NoError(t, json.Unmarshal(events["showToast"], &tt))
	return tt, events
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, true)
	_, err := env.s.projects.Add(context.Background(), portfolio.Input{
		Title: "Terminal Mail", Description: "Email in the terminal.",
		ImageURL: "https://img.example.com/mail.png", ProjectURL: "https://example.com/mail",
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/", reqOpts{})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<!DOCTYPE html>")
	for _, s := range Sections {
		assert.Contains(t, body, `id="`+s.ID+`"`)
		assert.Contains(t, body, `data-nav="`+s.ID+`"`)
	}
	assert.Contains(t, body, "Terminal Mail")

	rec = env.do(t, http.MethodGet, "/", reqOpts{htmx: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<!DOCTYPE html>")
	assert.Contains(t, rec.Body.String(), `id="portfolio"`)
}

func TestIndex_EmptyAndLoading(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/", reqOpts{})
	assert.Contains(t, rec.Body.String(), "skeleton")

	require.NoError(t, env.s.projects.Load(context.Background()))
	rec = env.do(t, http.MethodGet, "/", reqOpts{})
	assert.Contains(t, rec.Body.String(), "Go to the admin panel to add your first project!")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/healthz", reqOpts{})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"loading"`)

	require.NoError(t, env.s.projects.Load(context.Background()))
	rec = env.do(t, http.MethodGet, "/healthz", reqOpts{})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_RequiresSession(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/admin/projects", reqOpts{})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = env.do(t, http.MethodPost, "/admin/projects", reqOpts{form: projectValues("X"), htmx: true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("HX-Redirect"))

	rec = env.do(t, http.MethodGet, "/admin/api/projects", reqOpts{accept: "application/json"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, env.s.projects.List())
}

func TestAdmin_Login(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/admin", reqOpts{})
	assert.Contains(t, rec.Body.String(), "Admin Access")

	rec = env.do(t, http.MethodPost, "/admin/login", reqOpts{form: url.Values{"passphrase": {"nope"}}, htmx: true})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect password. Please try again.")
	assert.Empty(t, rec.Result().Cookies())

	cookies := env.login(t)
	rec = env.do(t, http.MethodGet, "/admin", reqOpts{cookies: cookies})
	assert.Contains(t, rec.Body.String(), "Dashboard")

	rec = env.do(t, http.MethodPost, "/admin/logout", reqOpts{cookies: cookies, htmx: true})
	assert.Equal(t, "/", rec.Header().Get("HX-Redirect"))
}

func TestAdmin_AddProject(t *testing.T) {
	env := newTestEnv(t, true)
	cookies := env.login(t)

	rec := env.do(t, http.MethodPost, "/admin/projects", reqOpts{form: projectValues("Alpha"), htmx: true, cookies: cookies})
	require.Equal(t, http.StatusOK, rec.Code)
	tt, events := toastOf(t, rec)
	assert.Equal(t, toastSuccess, tt.Type)
	assert.Contains(t, events, projectsChanged)

	list := env.s.projects.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Alpha", list[0].Title)
	assert.Equal(t, []string{"Go", "HTMX"}, list[0].Tags)
	assert.Equal(t, portfolio.CategoryWebApp, list[0].Category)

	rec = env.do(t, http.MethodGet, "/admin/projects", reqOpts{cookies: cookies, htmx: true})
	assert.Contains(t, rec.Body.String(), "Alpha")
	assert.Equal(t, 1, env.logs.FilterMessage("Project added").Len())
}

func TestAdmin_AddProjectInvalid(t *testing.T) {
	env := newTestEnv(t, true)
	cookies := env.login(t)

	form := projectValues("Alpha")
	form.Set("imageUrl", "not-a-url")
	rec := env.do(t, http.MethodPost, "/admin/projects", reqOpts{form: form, htmx: true, cookies: cookies})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "none", rec.Header().Get("HX-Reswap"))
	tt, _ := toastOf(t, rec)
	assert.Equal(t, toastError, tt.Type)
	assert.Equal(t, "Please enter a valid Image URL.", tt.Message)
	assert.Empty(t, env.s.projects.List())
}

func TestAdmin_PersistenceFailure(t *testing.T) {
	env := newTestEnv(t, true)
	cookies := env.login(t)
	env.mem.FailWrites = errors.New("disk full")

	rec := env.do(t, http.MethodPost, "/admin/projects", reqOpts{form: projectValues("Alpha"), htmx: true, cookies: cookies})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	tt, _ := toastOf(t, rec)
	assert.Equal(t, toastError, tt.Type)
	assert.Empty(t, env.s.projects.List())
}

func TestAdmin_EditDeletePin(t *testing.T) {
	env := newTestEnv(t, true)
	cookies := env.login(t)
	ctx := context.Background()

	first, err := env.s.projects.Add(ctx, portfolio.InputOf(portfolio.Project{
		Title: "First", Description: "d", ImageURL: "https://e.com/1.png", ProjectURL: "https://e.com/1",
	}))
	require.NoError(t, err)
	_, err = env.s.projects.Add(ctx, portfolio.InputOf(portfolio.Project{
		Title: "Second", Description: "d", ImageURL: "https://e.com/2.png", ProjectURL: "https://e.com/2",
	}))
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/admin/projects/"+first.ID+"/edit", reqOpts{cookies: cookies, htmx: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hx-put="/admin/projects/`+first.ID+`"`)

	rec = env.do(t, http.MethodPut, "/admin/projects/"+first.ID, reqOpts{form: projectValues("Renamed"), cookies: cookies, htmx: true})
	require.Equal(t, http.StatusOK, rec.Code)
	p, ok := env.s.projects.Get(first.ID)
	require.True(t, ok)
	assert.Equal(t, "Renamed", p.Title)

	rec = env.do(t, http.MethodPut, "/admin/projects/missing", reqOpts{form: projectValues("X"), cookies: cookies, htmx: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/projects/"+first.ID+"/pin", reqOpts{cookies: cookies, htmx: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.ID, env.s.projects.List()[0].ID)

	rec = env.do(t, http.MethodDelete, "/admin/projects/"+first.ID, reqOpts{cookies: cookies, htmx: true})
	require.Equal(t, http.StatusOK, rec.Code)
	tt, _ := toastOf(t, rec)
	assert.Equal(t, "Project deleted.", tt.Message)
	assert.Len(t, env.s.projects.List(), 1)

	assert.Equal(t, 1, env.logs.FilterMessage("Project updated").Len())
	assert.Equal(t, 1, env.logs.FilterMessage("Project deleted").Len())
}

func TestAdmin_DraftSuccess(t *testing.T) {
	env := newTestEnv(t, true)
	cookies := env.login(t)

	rec := env.do(t, http.MethodPost, "/admin/draft", reqOpts{form: url.Values{
		"target": {"new"}, "title": {"Folio"}, "tags": {"Go"}, "description": {"old words"},
	}, cookies: cookies, htmx: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Neon-lit dashboards for the grid.")
	assert.NotContains(t, rec.Body.String(), "old words")
}

func TestAdmin_DraftFailureKeepsDescription(t *testing.T) {
	env := newTestEnv(t, true)
	cookies := env.login(t)
	env.completer.err = errors.New("upstream exploded")

	rec := env.do(t, http.MethodPost, "/admin/draft", reqOpts{form: url.Values{
		"target": {"new"}, "title": {"Folio"}, "description": {"old words"},
	}, cookies: cookies, htmx: true})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "old words")
	assert.Equal(t, "none", rec.Header().Get("HX-Reswap"))

	tt, events := toastOf(t, rec)
	assert.Len(t, events, 1)
	assert.Equal(t, "Failed to generate description.", tt.Message)
	assert.Equal(t, toastError, tt.Type)
}

func TestAdmin_DraftRequiresTitle(t *testing.T) {
	env := newTestEnv(t, true)
	cookies := env.login(t)

	rec := env.do(t, http.MethodPost, "/admin/draft", reqOpts{form: url.Values{"target": {"new"}}, cookies: cookies, htmx: true})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	tt, _ := toastOf(t, rec)
	assert.Equal(t, "Please enter a project title first.", tt.Message)
	assert.Zero(t, env.completer.calls)
}

func TestAdmin_CompleteTags(t *testing.T) {
	env := newTestEnv(t, true)
	cookies := env.login(t)

	rec := env.do(t, http.MethodGet, "/admin/tags/complete?tags="+url.QueryEscape("Go, Re"), reqOpts{cookies: cookies, htmx: true})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-complete="Go, React, "`)
	assert.Contains(t, body, ">Redis<")
	assert.NotContains(t, body, ">Go<")
}

func TestAdmin_ExportProjects(t *testing.T) {
	env := newTestEnv(t, true)
	cookies := env.login(t)
	env.do(t, http.MethodPost, "/admin/projects", reqOpts{form: projectValues("Alpha"), htmx: true, cookies: cookies})

	rec := env.do(t, http.MethodGet, "/admin/export", reqOpts{cookies: cookies})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	items, err := portfolio.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Alpha", items[0].Title)
}

func TestAPI_Projects(t *testing.T) {
	env := newTestEnv(t, true)
	cookies := env.login(t)
	opts := func(body any) reqOpts { return reqOpts{json: body, cookies: cookies, accept: "application/json"} }

	in := map[string]any{
		"title": "API", "description": "d", "imageUrl": "https://e.com/a.png", "projectUrl": "https://e.com/a",
		"tags": []string{"Go"},
	}
	rec := env.do(t, http.MethodPost, "/admin/api/projects", opts(in))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created portfolio.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	in["imageUrl"] = "nope"
	rec = env.do(t, http.MethodPost, "/admin/api/projects", opts(in))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"imageUrl"`)

	rec = env.do(t, http.MethodGet, "/admin/api/projects/"+created.ID, opts(nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/admin/api/projects/unknown/pin", opts(nil))
	assert.Equal(t, http.StatusNoContent, rec.Code, "pinning an unknown id is a no-op")

	rec = env.do(t, http.MethodDelete, "/admin/api/projects/"+created.ID, opts(nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(t, http.MethodDelete, "/admin/api/projects/"+created.ID, opts(nil))
	assert.Equal(t, http.StatusNoContent, rec.Code, "delete is idempotent")

	rec = env.do(t, http.MethodGet, "/admin/api/tags", opts(nil))
	assert.Contains(t, rec.Body.String(), `"Go"`)
}

func TestAPI_NotReady(t *testing.T) {
	env := newTestEnv(t, false)
	cookies := env.login(t)

	rec := env.do(t, http.MethodPost, "/admin/api/projects", reqOpts{json: map[string]any{
		"title": "API", "description": "d", "imageUrl": "https://e.com/a.png", "projectUrl": "https://e.com/a",
	}, cookies: cookies})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/api/projects", reqOpts{cookies: cookies})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, http.MethodGet, "/admin/api/projects/anything", reqOpts{cookies: cookies})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "lookups wait for the load")

	rec = env.do(t, http.MethodGet, "/admin/export", reqOpts{cookies: cookies})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "no empty export while loading")
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestContact(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodPost, "/contact", reqOpts{form: url.Values{
		"fullName": {"Ada"}, "email": {"ada@example.com"}, "message": {"Hi"},
	}, htmx: true})
	assert.Contains(t, rec.Body.String(), "Thank you for your message!")
	require.Len(t, env.mailer.sent, 1)

	rec = env.do(t, http.MethodPost, "/contact", reqOpts{form: url.Values{"fullName": {"Ada"}}, htmx: true})
	assert.Contains(t, rec.Body.String(), "Please fill in your name")

	rec = env.do(t, http.MethodPost, "/contact", reqOpts{form: url.Values{
		"fullName": {"Ada"}, "email": {"ada@example.com"}, "message": {"Hi again"},
	}, htmx: true})
	assert.Contains(t, rec.Body.String(), "too quickly")
	assert.Len(t, env.mailer.sent, 1)
}

func TestFollowLink(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/go/xcloud", reqOpts{})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://xcloud.example.com/", rec.Header().Get("Location"))

	rec = env.do(t, http.MethodGet, "/go/elsewhere", reqOpts{})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	db, err := kv.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	env.s.visitors, err = analytics.New(ctx, db, "salt", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, env.s.visitors.EnsureLink(ctx, xcloudCode, "https://xcloud.example.com/login"))
	env.r = env.s.routes()

	rec = env.do(t, http.MethodGet, "/go/xcloud", reqOpts{})
	assert.Equal(t, "https://xcloud.example.com/login", rec.Header().Get("Location"))
	stats, err := env.s.visitors.Stats(ctx, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalClicks)
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if ev.name != "" {
				return ev
			}
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestViewportStream(t *testing.T) {
	env := newTestEnv(t, true)
	ts := httptest.NewServer(env.r)
	defer ts.Close()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(ts.URL + "/viewport/stream")
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	view := readEvent(t, reader)
	require.Equal(t, "view", view.name)
	require.NotEmpty(t, view.data)
	assert.Equal(t, sseEvent{name: "active", data: "home"}, readEvent(t, reader))
	assert.Equal(t, 1, env.s.views.Len())

	post := func(path, body string) int {
		res, err := client.Post(ts.URL+"/viewport/"+view.data+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		res.Body.Close()
		return res.StatusCode
	}
	assert.Equal(t, http.StatusNoContent, post("/layout", `{"tops":{"home":0,"about":800,"services":1600,"portfolio":2400,"contact":3200}}`))
	assert.Equal(t, http.StatusNoContent, post("/scroll", `{"seq":1,"offset":700}`))
	assert.Equal(t, sseEvent{name: "active", data: "about"}, readEvent(t, reader))

	// Report 2 is overtaken by report 3 and must not move the section back.
	assert.Equal(t, http.StatusNoContent, post("/scroll", `{"seq":3,"offset":2500}`))
	assert.Equal(t, sseEvent{name: "active", data: "portfolio"}, readEvent(t, reader))
	assert.Equal(t, http.StatusNoContent, post("/scroll", `{"seq":2,"offset":100}`))
	tracker, err := env.s.views.Lookup(view.data)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "portfolio", tracker.Active())

	assert.Equal(t, http.StatusBadRequest, post("/scroll", `{"offset":700}`), "seq is required")

	res, err := client.Post(ts.URL+"/viewport/unknown/scroll", "application/json", strings.NewReader(`{"seq":1,"offset":1}`))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	resp.Body.Close()
	assert.Eventually(t, func() bool { return env.s.views.Len() == 0 }, 2*time.Second, 10*time.Millisecond,
		"closing the stream unmounts the view")
}

func TestStreamActive_SkipsRepeats(t *testing.T) {
	updates := make(chan string, 4)
	// "about" was queued between subscribing and reading the initial value.
	updates <- "about"
	updates <- "services"
	updates <- "services"
	updates <- "about"
	close(updates)

	rec := httptest.NewRecorder()
	streamActive(context.Background(), rec, rec, "about", updates, nil)

	assert.Equal(t, "event: active\ndata: services\n\nevent: active\ndata: about\n\n", rec.Body.String())
}

func TestTerminal(t *testing.T) {
	env := newTestEnv(t, true)
	prompt := func(text string) *httptest.ResponseRecorder {
		return env.do(t, http.MethodPost, "/terminal", reqOpts{form: url.Values{"prompt": {text}}, htmx: true})
	}

	rec := env.do(t, http.MethodGet, "/", reqOpts{})
	assert.Contains(t, rec.Body.String(), `hx-post="/terminal"`)

	rec = prompt("   ")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, env.completer.calls)

	rec = prompt("status report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Neon-lit dashboards for the grid.")
	assert.Contains(t, rec.Body.String(), `class="terminal-reply"`)

	env.completer.err = errors.New("upstream down")
	rec = prompt("again")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Connection to AI mainframe failed")

	// Burst of two is spent.
	rec = prompt("once more")
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
	assert.Equal(t, 2, env.completer.calls)
}

func TestTerminal_HiddenWithoutProvider(t *testing.T) {
	env := newTestEnv(t, true)
	env.s.drafts = draft.NewAssistant(nil, "", time.Second, zap.NewNop())

	rec := env.do(t, http.MethodGet, "/", reqOpts{})
	assert.NotContains(t, rec.Body.String(), `hx-post="/terminal"`)

	rec = env.do(t, http.MethodPost, "/terminal", reqOpts{form: url.Values{"prompt": {"hi"}}, htmx: true})
	assert.Contains(t, rec.Body.String(), "offline")
}

func TestPrompts(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(t, http.MethodGet, "/prompts", reqOpts{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access Protected Content")
	assert.NotContains(t, rec.Body.String(), "Ship it")

	rec = env.do(t, http.MethodPost, "/prompts/unlock", reqOpts{form: url.Values{"passphrase": {"wrong"}}, htmx: true})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect password.")
	assert.Empty(t, rec.Result().Cookies())

	rec = env.do(t, http.MethodPost, "/prompts/unlock", reqOpts{form: url.Values{"passphrase": {testPassphrase}}, htmx: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ship it &lt;carefully&gt;.")
	assert.Contains(t, rec.Body.String(), "data-copy")
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	rec = env.do(t, http.MethodGet, "/prompts", reqOpts{cookies: cookies})
	assert.Contains(t, rec.Body.String(), "<h1>Library</h1>")
	assert.Contains(t, rec.Body.String(), "data-copy")

	// The prompt flag does not open the admin area.
	rec = env.do(t, http.MethodGet, "/admin/projects", reqOpts{cookies: cookies})
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&portfolio.ValidationError{Field: "title"}, http.StatusUnprocessableEntity},
		{portfolio.ErrNotFound, http.StatusNotFound},
		{portfolio.ErrPersistence, http.StatusServiceUnavailable},
		{portfolio.ErrNotReady, http.StatusServiceUnavailable},
		{draft.ErrInFlight, http.StatusConflict},
		{draft.ErrGenerationFailed, http.StatusBadGateway},
		{draft.ErrTitleRequired, http.StatusUnprocessableEntity},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
