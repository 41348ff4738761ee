package main

import (
	"errors"
	"html/template"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kanileenas/portfolio/internal/contact"
	"github.com/kanileenas/portfolio/internal/content"
	"github.com/kanileenas/portfolio/internal/filter"
	"github.com/kanileenas/portfolio/internal/lightbox"
	"github.com/kanileenas/portfolio/internal/nav"
	"github.com/kanileenas/portfolio/internal/view"
)

const (
	viewKey = "view"
	// counter streams end on their own well inside the server write timeout
	streamLimit = 20 * time.Second
	streamTick  = 50 * time.Millisecond
)

type pageData struct {
	ViewID       string
	Threshold    float64
	Site         *content.Site
	About        template.HTML
	Nav          []nav.RenderedItem
	Scrolled     bool
	Hero         string
	Counters     []counterData
	Skills       skillsData
	Portfolio    portfolioData
	Certificates certificatesData
	Lightbox     lightboxData
	Form         formData
	Copy         copyData
}

type copyData struct {
	SkillsHeading, SkillsSubheading, SkillsOutro string
	PortfolioHeading, PortfolioSubheading        string
	ContactSide                                  string
	FooterCallout                                string
}

type counterData struct {
	content.Counter
	Value int
}

type tagData struct {
	Name   string
	Count  int
	Active bool
}

type skillBar struct {
	content.Skill
	Filled bool
}

type categoryCard struct {
	content.SkillCategory
	Skills []skillBar
}

type skillsData struct {
	ViewID     string
	Tags       []tagData
	Categories []categoryCard
}

type portfolioData struct {
	ViewID   string
	Tags     []tagData
	Projects []content.Project
}

type certificatesData struct {
	ViewID     string
	Heading    string
	Subheading string
	Items      []content.Certificate
	Total      string
	Issuers    string
}

type lightboxData struct {
	ViewID      string
	Open        bool
	Certificate content.Certificate
}

type formData struct {
	Name, Email, Message string
}

func copyText() copyData {
	return copyData{
		SkillsHeading:       SkillsHeading,
		SkillsSubheading:    SkillsSubheading,
		SkillsOutro:         SkillsOutro,
		PortfolioHeading:    PortfolioHeading,
		PortfolioSubheading: PortfolioSubheading,
		ContactSide:         ContactSideIntro,
		FooterCallout:       FooterCallout,
	}
}

func tags(all []string, active string, count func(string) int) []tagData {
	out := make([]tagData, 0, len(all))
	for _, t := range all {
		out = append(out, tagData{Name: t, Count: count(t), Active: t == active})
	}
	return out
}

func (s *server) skillsView(v *view.View, st view.FilterState[content.SkillCategory]) skillsData {
	groups := s.site.SkillsByCategory()
	cards := make([]categoryCard, 0, len(st.Items))
	for _, cat := range st.Items {
		card := categoryCard{SkillCategory: cat}
		for _, sk := range groups[cat.Name] {
			card.Skills = append(card.Skills, skillBar{Skill: sk, Filled: v.SkillBarFilled(sk.Name)})
		}
		cards = append(cards, card)
	}
	count := func(tag string) int {
		if tag == filter.All {
			return len(s.site.Skills)
		}
		return len(groups[tag])
	}
	return skillsData{ViewID: v.ID, Tags: tags(st.Tags, st.Active, count), Categories: cards}
}

func (s *server) portfolioView(v *view.View, st view.FilterState[content.Project]) portfolioData {
	count := func(tag string) int {
		n := 0
		for _, p := range s.site.Projects {
			if tag == filter.All || p.Category == tag {
				n++
			}
		}
		return n
	}
	return portfolioData{ViewID: v.ID, Tags: tags(st.Tags, st.Active, count), Projects: st.Items}
}

func lightboxOf(v *view.View) lightboxData {
	c, open := v.Lightbox()
	return lightboxData{ViewID: v.ID, Open: open, Certificate: c}
}

// crawlerMarkers identify user agents that never run the page script.
var crawlerMarkers = []string{"bot", "crawler", "spider", "slurp", "facebookexternalhit", "embedly"}

func isCrawler(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, m := range crawlerMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}

func (s *server) index(c *gin.Context) {
	v := s.views.Mount()
	if isCrawler(c.GetHeader("User-Agent")) {
		// the page still renders from a fresh view, but nothing will drive it
		defer func() { _ = s.views.Unmount(v.ID) }()
	}
	navState := v.Nav()

	counters := make([]counterData, 0, len(s.site.Counters))
	values := v.Counters()
	for _, ct := range s.site.Counters {
		counters = append(counters, counterData{Counter: ct, Value: values[ct.Key]})
	}
	total, issuers := s.site.CertificateStats()

	c.HTML(http.StatusOK, "index.html", pageData{
		ViewID:    v.ID,
		Threshold: v.Threshold(),
		Site:      s.site,
		About:     s.about,
		Nav:       nav.Build(s.site.Nav, navState.Active),
		Scrolled:  navState.Scrolled,
		Hero:      v.HeroText(),
		Counters:  counters,
		Skills:    s.skillsView(v, v.Skills()),
		Portfolio: s.portfolioView(v, v.Projects()),
		Certificates: certificatesData{
			ViewID:     v.ID,
			Heading:    CertificatesHeading,
			Subheading: CertificatesSubheading,
			Items:      s.site.Certificates,
			Total:      total,
			Issuers:    issuers,
		},
		Lightbox: lightboxOf(v),
		Copy:     copyText(),
	})
}

// withView resolves :id to a mounted view. HTMX callers of an expired view
// are told to reload the page, which mounts a new one.
func (s *server) withView(c *gin.Context) {
	v, err := s.views.Get(c.Param("id"))
	if err != nil {
		if c.GetHeader("HX-Request") == "true" {
			c.Header("HX-Refresh", "true")
		}
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "view not found"})
		return
	}
	c.Set(viewKey, v)
	c.Next()
}

func viewFrom(c *gin.Context) *view.View {
	return c.MustGet(viewKey).(*view.View)
}

// fail maps engine errors onto responses.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, view.ErrUnmounted):
		c.JSON(http.StatusGone, gin.H{"error": "view unmounted"})
	case errors.Is(err, view.ErrUnknownCertificate):
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
	case errors.Is(err, filter.ErrUnknownTag):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (s *server) state(c *gin.Context) {
	c.JSON(http.StatusOK, viewFrom(c).Snapshot())
}

func (s *server) unmount(c *gin.Context) {
	// unmounting twice is fine; the beacon and the idle sweep may race
	_ = s.views.Unmount(viewFrom(c).ID)
	c.Status(http.StatusNoContent)
}

func (s *server) intersect(c *gin.Context) {
	raw := c.PostForm("ratio")
	if raw == "" {
		raw = c.Query("ratio")
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(ratio) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ratio must be a number"})
		return
	}
	v := viewFrom(c)
	section := c.Param("section")
	if _, err := v.Intersect(section, ratio); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"section": section, "revealed": v.Revealed(section)})
}

type scrollRequest struct {
	ScrollY  float64 `json:"scrollY"`
	Sections []struct {
		ID     string  `json:"id" binding:"required"`
		Top    float64 `json:"top"`
		Height float64 `json:"height"`
	} `json:"sections" binding:"dive"`
}

func (s *server) scroll(c *gin.Context) {
	var req scrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	layout := make(map[string]nav.Span, len(req.Sections))
	for _, sec := range req.Sections {
		layout[sec.ID] = nav.Span{Top: sec.Top, Height: sec.Height}
	}
	st, err := viewFrom(c).Scroll(req.ScrollY, layout)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *server) counters(c *gin.Context) {
	v := viewFrom(c)
	c.JSON(http.StatusOK, gin.H{"counters": v.Counters(), "done": v.CountersSettled()})
}

// counterStream pushes counter values as server-sent events until every
// counter has settled, the view goes away or the client leaves.
func (s *server) counterStream(c *gin.Context) {
	v := viewFrom(c)
	ticker := time.NewTicker(streamTick)
	defer ticker.Stop()
	deadline := time.After(streamLimit)

	var last map[string]int
	c.Stream(func(w io.Writer) bool {
		values := v.Counters()
		if !equalCounts(values, last) {
			c.SSEvent("counters", values)
			last = values
		}
		if v.CountersSettled() || v.Unmounted() {
			c.SSEvent("done", values)
			return false
		}
		select {
		case <-c.Request.Context().Done():
			return false
		case <-deadline:
			return false
		case <-ticker.C:
			return true
		}
	})
}

func equalCounts(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func (s *server) skills(c *gin.Context) {
	v := viewFrom(c)
	st, err := v.FilterSkills(c.DefaultQuery("filter", filter.All))
	if err != nil {
		fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "skills-cards", s.skillsView(v, st))
}

func (s *server) portfolio(c *gin.Context) {
	v := viewFrom(c)
	st, err := v.FilterProjects(c.DefaultQuery("filter", filter.All))
	if err != nil {
		fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "project-grid", s.portfolioView(v, st))
}

func (s *server) openCertificate(c *gin.Context) {
	v := viewFrom(c)
	if _, err := v.OpenCertificate(c.Param("cert")); err != nil {
		fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "lightbox", lightboxOf(v))
}

func (s *server) clickLightbox(c *gin.Context) {
	target, ok := lightbox.ParseTarget(c.PostForm("target"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown click target"})
		return
	}
	v := viewFrom(c)
	if _, _, err := v.ClickLightbox(target); err != nil {
		fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "lightbox", lightboxOf(v))
}

func (s *server) closeLightbox(c *gin.Context) {
	v := viewFrom(c)
	if err := v.CloseLightbox(); err != nil {
		fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "lightbox", lightboxOf(v))
}

type contactRequest struct {
	Name    string `form:"name" binding:"required,max=100"`
	Email   string `form:"email" binding:"required,email,max=254"`
	Message string `form:"message" binding:"required,max=5000"`
}

// Handle contact form submission with HTMX
func (s *server) submitContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": "Please fill in your name, a valid email address and a message.",
			"form":  formData{Name: req.Name, Email: req.Email, Message: req.Message},
		})
		return
	}

	var form contact.Form
	form.SetName(s.strip.Sanitize(req.Name))
	form.SetEmail(req.Email)
	form.SetMessage(s.strip.Sanitize(req.Message))

	n, err := s.submitter.Submit(c.Request.Context(), form)
	if err != nil {
		s.logger.Warn("contact submission failed", zap.Error(err))
		c.HTML(http.StatusOK, "contact-error.html", gin.H{
			"error": ContactError,
			"form":  formData{Name: form.Name(), Email: form.Email(), Message: form.Message()},
		})
		return
	}

	s.logger.Info("contact form submitted", zap.Int("message_length", len(form.Message())))
	form.Reset()
	c.HTML(http.StatusOK, "contact-success.html", gin.H{
		"notification": n,
		"form":         formData{Name: form.Name(), Email: form.Email(), Message: form.Message()},
	})
}

func (s *server) stats(c *gin.Context) {
	if s.visitors == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "visitor tracking disabled"})
		return
	}
	stats, err := s.visitors.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("load visitor stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
