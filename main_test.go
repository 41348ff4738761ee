package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/kanileenas/portfolio/internal/contact"
	"github.com/kanileenas/portfolio/internal/content"
	"github.com/kanileenas/portfolio/internal/nav"
	"github.com/kanileenas/portfolio/internal/sched"
	"github.com/kanileenas/portfolio/internal/view"
	"github.com/kanileenas/portfolio/internal/visitors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	handler http.Handler
	views   *view.Registry
	clock   *sched.Manual
	store   *visitors.Store
}

type appOption func(*Config, *contact.Simulated)

func newTestApp(t *testing.T, track bool, opts ...appOption) *testApp {
	t.Helper()
	logger := zaptest.NewLogger(t)

	site, err := content.Load()
	require.NoError(t, err)

	clock := sched.NewManual()
	vopts := view.DefaultOptions()
	vopts.Scheduler = clock
	views := view.NewRegistry(site, vopts, time.Hour, logger)
	t.Cleanup(views.Close)

	cfg := Config{TemplatesGlob: "templates/*"}
	sub := contact.Simulated{}
	for _, o := range opts {
		o(&cfg, &sub)
	}

	var store *visitors.Store
	if track {
		store, err = visitors.Open(visitors.MemoryDSN, logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
	}

	srv, err := newServer(cfg, site, views, store, sub, logger)
	require.NoError(t, err)
	return &testApp{handler: srv.router(), views: views, clock: clock, store: store}
}

func (a *testApp) do(t *testing.T, method, target string, body url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) doJSON(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, strings.NewReader(string(data)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// streamRecorder satisfies http.CloseNotifier, which gin's streaming needs.
type streamRecorder struct {
	*httptest.ResponseRecorder
}

func (streamRecorder) CloseNotify() <-chan bool { return make(chan bool) }

var viewIDPattern = regexp.MustCompile(`data-view="([0-9A-Z]{26})"`)

// mount loads the home page and returns the URL prefix of its view.
func (a *testApp) mount(t *testing.T) string {
	t.Helper()
	rec := a.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := viewIDPattern.FindStringSubmatch(rec.Body.String())
	require.Len(t, m, 2, "page did not carry a view id")
	return "/views/" + m[1]
}

func TestHealthzOK(t *testing.T) {
	app := newTestApp(t, false)
	rec := app.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestIndexRendersPage(t *testing.T) {
	app := newTestApp(t, false)
	rec := app.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Leenas Kanistan")
	assert.Contains(t, body, `href="#certificates"`)
	assert.Contains(t, body, `class="nav-link active">Home</a>`)
	assert.Contains(t, body, `<div id="lightbox" hidden></div>`)
	assert.Contains(t, body, "8 certificates from 7 issuers")
	assert.Contains(t, body, "<strong>AWS</strong>")
	assert.Contains(t, body, `href="tel:+94763697441"`)
	assert.Contains(t, body, `data-reveal-threshold="0.1"`)
	assert.Equal(t, 7, strings.Count(body, `class="project-card"`))
	assert.Equal(t, 1, app.views.Len())
}

func TestUnknownViewIsNotFound(t *testing.T) {
	app := newTestApp(t, false)
	rec := app.do(t, http.MethodGet, "/views/01JAAAAAAAAAAAAAAAAAAAAAAA/state", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"view not found"}`, rec.Body.String())
}

func TestExpiredViewAsksHTMXToReload(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)
	require.NoError(t, app.views.Unmount(strings.TrimPrefix(base, "/views/")))

	req := httptest.NewRequest(http.MethodGet, base+"/portfolio?filter=DevOps", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	app.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("HX-Refresh"))

	rec = app.do(t, http.MethodGet, base+"/state", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("HX-Refresh"))
}

func TestCrawlersDoNotKeepViews(t *testing.T) {
	app := newTestApp(t, false)
	for _, ua := range []string{
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
		"facebookexternalhit/1.1",
		"Mozilla/5.0 (compatible; YandexSpider/3.0)",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("User-Agent", ua)
		rec := httptest.NewRecorder()
		app.handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, ua)
		assert.Contains(t, rec.Body.String(), "Leenas Kanistan", ua)
	}
	assert.Equal(t, 0, app.views.Len())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:131.0) Gecko/20100101 Firefox/131.0")
	app.handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 1, app.views.Len())
}

func TestHeadDoesNotMount(t *testing.T) {
	app := newTestApp(t, false)
	app.do(t, http.MethodHead, "/", nil)
	assert.Equal(t, 0, app.views.Len())
}

func TestIntersectRevealsAndStartsCounters(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)

	rec := app.do(t, http.MethodPost, base+"/sections/about/intersect", url.Values{"ratio": {"0.05"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"section":"about","revealed":false}`, rec.Body.String())

	rec = app.do(t, http.MethodPost, base+"/sections/about/intersect", url.Values{"ratio": {"0.4"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"section":"about","revealed":true}`, rec.Body.String())

	rec = app.do(t, http.MethodGet, base+"/counters", nil)
	assert.JSONEq(t, `{"counters":{"experience":0,"projects":0,"clients":0},"done":false}`, rec.Body.String())

	app.clock.Advance(3 * time.Second)
	rec = app.do(t, http.MethodGet, base+"/counters", nil)
	assert.JSONEq(t, `{"counters":{"experience":5,"projects":50,"clients":25},"done":true}`, rec.Body.String())
}

func TestIntersectRejectsBadRatio(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)
	for _, ratio := range []string{"most", "", "NaN", "nan"} {
		rec := app.do(t, http.MethodPost, base+"/sections/about/intersect", url.Values{"ratio": {ratio}})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "ratio=%q", ratio)
	}

	var st view.Snapshot
	rec := app.do(t, http.MethodGet, base+"/state", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Empty(t, st.Revealed)
}

func TestIntersectUnknownSectionIsIgnored(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)
	rec := app.do(t, http.MethodPost, base+"/sections/blog/intersect", url.Values{"ratio": {"1"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"section":"blog","revealed":false}`, rec.Body.String())
}

func TestCounterStreamEndsWhenSettled(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)
	app.do(t, http.MethodPost, base+"/sections/about/intersect", url.Values{"ratio": {"1"}})
	app.clock.Advance(3 * time.Second)

	rec := &streamRecorder{httptest.NewRecorder()}
	app.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+"/counters/stream", nil))
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event:counters")
	assert.Contains(t, body, "event:done")
	assert.Contains(t, body, `"projects":50`)
}

func TestScrollTracksActiveSection(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)

	layout := []map[string]any{
		{"id": "home", "top": 0, "height": 800},
		{"id": "about", "top": 800, "height": 600},
		{"id": "skills", "top": 1400, "height": 900},
	}
	cases := []struct {
		scrollY float64
		want    nav.State
	}{
		{scrollY: 0, want: nav.State{Active: "home"}},
		{scrollY: 40, want: nav.State{Active: "home"}},
		{scrollY: 700, want: nav.State{Active: "about", Scrolled: true}},
		{scrollY: 1350, want: nav.State{Active: "skills", Scrolled: true}},
		// past every known section the last match sticks
		{scrollY: 9000, want: nav.State{Active: "skills", Scrolled: true}},
	}
	for _, tc := range cases {
		rec := app.doJSON(t, http.MethodPost, base+"/scroll", map[string]any{"scrollY": tc.scrollY, "sections": layout})
		require.Equal(t, http.StatusOK, rec.Code)
		var got nav.State
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, tc.want, got, "scrollY=%v", tc.scrollY)
	}
}

func TestScrollRejectsMalformedBody(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)
	rec := app.doJSON(t, http.MethodPost, base+"/scroll", map[string]any{"scrollY": "far"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPortfolioFilter(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)

	rec := app.do(t, http.MethodGet, base+"/portfolio?filter=DevOps", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 4, strings.Count(body, `class="project-card"`))
	assert.NotContains(t, body, "Doctor Booking App")
	assert.Contains(t, body, `class="filter-btn active" aria-selected="true"`)

	rec = app.do(t, http.MethodGet, base+"/portfolio?filter=Blockchain", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var st view.Snapshot
	rec = app.do(t, http.MethodGet, base+"/state", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "DevOps", st.ProjectsFilter)

	rec = app.do(t, http.MethodGet, base+"/portfolio", nil)
	assert.Equal(t, 7, strings.Count(rec.Body.String(), `class="project-card"`))
}

func TestSkillsFilter(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)

	rec := app.do(t, http.MethodGet, base+"/skills?filter=Mobile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, `class="skill-card"`))
	assert.Contains(t, body, "Flutter/Dart")
	assert.NotContains(t, body, "Terraform (IaC)")
}

func TestSkillBarsFillAfterReveal(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)
	app.do(t, http.MethodPost, base+"/sections/skills/intersect", url.Values{"ratio": {"0.5"}})
	app.clock.Advance(10 * time.Second)

	rec := app.do(t, http.MethodGet, base+"/skills", nil)
	assert.Contains(t, rec.Body.String(), `style="width: 90%"`)
	assert.NotContains(t, rec.Body.String(), `style="width: 0%"`)
}

func TestLightboxClicks(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)

	rec := app.do(t, http.MethodGet, base+"/certificates/c2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Meta Android Developer")
	assert.Contains(t, rec.Body.String(), "Meta • 2024")

	for _, target := range []string{"content", "verify"} {
		rec = app.do(t, http.MethodPost, base+"/lightbox/click", url.Values{"target": {target}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Meta Android Developer", "click on %s closed the lightbox", target)
	}

	rec = app.do(t, http.MethodPost, base+"/lightbox/click", url.Values{"target": {"overlay"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<div id="lightbox" hidden></div>`)

	app.do(t, http.MethodGet, base+"/certificates/c5", nil)
	rec = app.do(t, http.MethodPost, base+"/lightbox/click", url.Values{"target": {"close"}})
	assert.Contains(t, rec.Body.String(), `<div id="lightbox" hidden></div>`)
}

func TestLightboxErrors(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)

	rec := app.do(t, http.MethodGet, base+"/certificates/c99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPost, base+"/lightbox/click", url.Values{"target": {"sidebar"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodDelete, base+"/lightbox", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContactSubmission(t *testing.T) {
	app := newTestApp(t, false)
	rec := app.do(t, http.MethodPost, "/contact", url.Values{
		"name":    {"  Ada  "},
		"email":   {"ada@example.com"},
		"message": {"<b>Hello</b> there"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Message sent!")
	assert.Contains(t, body, `name="name" value=""`)
}

func TestContactValidation(t *testing.T) {
	app := newTestApp(t, false)
	rec := app.do(t, http.MethodPost, "/contact", url.Values{
		"name":    {"Ada"},
		"email":   {"not-an-email"},
		"message": {"hi"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "toast-error")
	assert.Contains(t, body, `value="Ada"`)
}

func TestContactFailureKeepsForm(t *testing.T) {
	app := newTestApp(t, false, func(_ *Config, s *contact.Simulated) {
		s.Fail = func(contact.Form) bool { return true }
	})
	rec := app.do(t, http.MethodPost, "/contact", url.Values{
		"name":    {"Ada"},
		"email":   {"ada@example.com"},
		"message": {"hello"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sorry, there was an error")
	assert.Contains(t, rec.Body.String(), `value="ada@example.com"`)
}

func TestUnmountEndsView(t *testing.T) {
	app := newTestApp(t, false)
	base := app.mount(t)

	rec := app.do(t, http.MethodPost, base+"/unmount", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, app.views.Len())

	rec = app.do(t, http.MethodGet, base+"/state", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStats(t *testing.T) {
	app := newTestApp(t, true)
	ctx := context.Background()
	require.NoError(t, app.store.Record(ctx, "10.0.0.1", "test", "/"))
	require.NoError(t, app.store.Record(ctx, "10.0.0.2", "test", "/"))

	rec := app.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st visitors.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, int64(2), st.TotalVisits)
	assert.Equal(t, int64(2), st.UniqueVisitors)
}

func TestStatsDisabled(t *testing.T) {
	app := newTestApp(t, false)
	rec := app.do(t, http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPageVisitsAreRecorded(t *testing.T) {
	app := newTestApp(t, true)
	app.mount(t)

	require.Eventually(t, func() bool {
		st, err := app.store.Stats(context.Background())
		return err == nil && st.TotalVisits == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "TEMPLATES_GLOB", "CONTACT_DELAY", "VIEW_TTL", "TRACK_VISITORS", "VIEW_LIMIT", "VISITOR_DSN", "VISITOR_RETENTION"} {
		t.Setenv(k, "")
	}
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "templates/*", cfg.TemplatesGlob)
	assert.Equal(t, contact.DefaultDelay, cfg.ContactDelay)
	assert.Equal(t, view.DefaultTTL, cfg.ViewTTL)
	assert.Equal(t, view.DefaultLimit, cfg.ViewLimit)
	assert.True(t, cfg.TrackVisitors)
	assert.Equal(t, visitors.MemoryDSN, cfg.VisitorDSN)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CONTACT_DELAY", "250ms")
	t.Setenv("TRACK_VISITORS", "false")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.ContactDelay)
	assert.False(t, cfg.TrackVisitors)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("VIEW_TTL", "soon")
	_, err := loadConfig()
	assert.ErrorContains(t, err, "VIEW_TTL")

	t.Setenv("VIEW_TTL", "")
	t.Setenv("CONTACT_DELAY", "-1s")
	_, err = loadConfig()
	assert.ErrorContains(t, err, "must not be negative")

	t.Setenv("CONTACT_DELAY", "")
	t.Setenv("VIEW_LIMIT", "0")
	_, err = loadConfig()
	assert.ErrorContains(t, err, "VIEW_LIMIT")
}
