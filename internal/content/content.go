// Package content loads the static catalog the portfolio page renders:
// profile copy, skills, projects, certificates and contact details.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/kanileenas/portfolio/internal/nav"
)

//go:embed portfolio.yaml
var defaultCatalog []byte

var ErrInvalid = errors.New("content: invalid catalog")

type Site struct {
	Owner          Owner           `yaml:"owner"`
	Hero           Hero            `yaml:"hero"`
	About          About           `yaml:"about"`
	Counters       []Counter       `yaml:"counters"`
	Categories     []SkillCategory `yaml:"skill_categories"`
	Skills         []Skill         `yaml:"skills"`
	TechTags       []TechTag       `yaml:"tech_tags"`
	ProjectFilters []string        `yaml:"project_filters"`
	Projects       []Project       `yaml:"projects"`
	Certificates   []Certificate   `yaml:"certificates"`
	Contact        Contact         `yaml:"contact"`
	Social         []Link          `yaml:"social"`
	Nav            []nav.Item      `yaml:"nav"`
	// Sections lists page sections top to bottom; the navigation tracker
	// checks them in this order.
	Sections []string `yaml:"sections"`
}

type Owner struct {
	Name     string `yaml:"name"`
	Brand    string `yaml:"brand"`
	Headline string `yaml:"headline"`
	Summary  string `yaml:"summary"`
	CVPath   string `yaml:"cv_path"`
	Photo    string `yaml:"photo"`
}

type Hero struct {
	Greeting string `yaml:"greeting"`
	Tagline  string `yaml:"tagline"`
	Intro    string `yaml:"intro"`
}

type About struct {
	Title    string `yaml:"title"`
	Markdown string `yaml:"markdown"`
	Caption  string `yaml:"caption"`
}

// Counter is an About-section statistic animated from zero.
type Counter struct {
	Key    string `yaml:"key"`
	Label  string `yaml:"label"`
	Target int    `yaml:"target"`
	Suffix string `yaml:"suffix"`
}

type SkillCategory struct {
	Name        string `yaml:"name"`
	Icon        string `yaml:"icon"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
}

type Skill struct {
	Name     string `yaml:"name"`
	Level    int    `yaml:"level"`
	Category string `yaml:"category"`
	Icon     string `yaml:"icon"`
	Color    string `yaml:"color"`
}

type TechTag struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type Project struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Image       string   `yaml:"image"`
	Tech        []string `yaml:"tech"`
	Category    string   `yaml:"category"`
	GitHub      string   `yaml:"github"`
	Demo        string   `yaml:"demo"`
	Stars       int      `yaml:"stars"`
	Forks       int      `yaml:"forks"`
}

func (p Project) StarsLabel() string { return humanize.Comma(int64(p.Stars)) }
func (p Project) ForksLabel() string { return humanize.Comma(int64(p.Forks)) }

type Certificate struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Issuer    string `yaml:"issuer"`
	Date      string `yaml:"date"`
	Image     string `yaml:"image"`
	VerifyURL string `yaml:"verify_url"`
}

// Meta joins issuer and date, leaving out whichever is missing.
func (c Certificate) Meta() string {
	parts := lo.Compact([]string{strings.TrimSpace(c.Issuer), strings.TrimSpace(c.Date)})
	return strings.Join(parts, " • ")
}

// Alt is the image alt text.
func (c Certificate) Alt() string {
	if c.Issuer == "" {
		return c.Title
	}
	return c.Title + " - " + c.Issuer
}

// HasVerify reports whether the certificate has a real verification link.
func (c Certificate) HasVerify() bool {
	u := strings.TrimSpace(c.VerifyURL)
	return u != "" && u != "#"
}

type Contact struct {
	Heading string   `yaml:"heading"`
	Intro   string   `yaml:"intro"`
	Methods []Method `yaml:"methods"`
}

type Method struct {
	Icon     string `yaml:"icon"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Value    string `yaml:"value"`
	Href     string `yaml:"href"`
	Color    string `yaml:"color"`
}

type Link struct {
	Label string `yaml:"label"`
	Href  string `yaml:"href"`
	Icon  string `yaml:"icon"`
}

// External reports whether the link leaves the site and opens in a new tab.
func (l Link) External() bool {
	return strings.HasPrefix(l.Href, "http://") || strings.HasPrefix(l.Href, "https://")
}

// Load parses the embedded catalog.
func Load() (*Site, error) {
	return Parse(defaultCatalog)
}

// LoadFile parses a catalog from disk. An empty path loads the embedded one.
func LoadFile(path string) (*Site, error) {
	if path == "" {
		return Load()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("content: parse catalog: %w", err)
	}
	if err := site.validate(); err != nil {
		return nil, err
	}
	return &site, nil
}

func (s *Site) validate() error {
	if len(s.Sections) == 0 {
		return fmt.Errorf("%w: no sections", ErrInvalid)
	}
	if dup := lo.FindDuplicates(s.Sections); len(dup) > 0 {
		return fmt.Errorf("%w: duplicate sections %v", ErrInvalid, dup)
	}
	ids := lo.Map(s.Certificates, func(c Certificate, _ int) string { return c.ID })
	if lo.Contains(ids, "") {
		return fmt.Errorf("%w: certificate without id", ErrInvalid)
	}
	if dup := lo.FindDuplicates(ids); len(dup) > 0 {
		return fmt.Errorf("%w: duplicate certificate ids %v", ErrInvalid, dup)
	}
	for _, sk := range s.Skills {
		if sk.Level < 0 || sk.Level > 100 {
			return fmt.Errorf("%w: skill %q level %d out of range", ErrInvalid, sk.Name, sk.Level)
		}
	}
	for _, it := range s.Nav {
		if !lo.Contains(s.Sections, it.Section) {
			return fmt.Errorf("%w: nav entry %q points at unknown section %q", ErrInvalid, it.Label, it.Section)
		}
	}
	return nil
}

// Certificate finds a certificate by id.
func (s *Site) Certificate(id string) (Certificate, bool) {
	return lo.Find(s.Certificates, func(c Certificate) bool { return c.ID == id })
}

// SkillsByCategory groups skills under their category, highest level first.
// Skills naming a category that is not declared get a group of their own.
func (s *Site) SkillsByCategory() map[string][]Skill {
	groups := make(map[string][]Skill, len(s.Categories))
	for _, c := range s.Categories {
		groups[c.Name] = nil
	}
	for _, sk := range s.Skills {
		groups[sk.Category] = append(groups[sk.Category], sk)
	}
	for k := range groups {
		sort.SliceStable(groups[k], func(i, j int) bool { return groups[k][i].Level > groups[k][j].Level })
	}
	return groups
}

// CertificateStats is the "8 certificates from 7 issuers" line.
func (s *Site) CertificateStats() (total, issuers string) {
	distinct := lo.Uniq(lo.FilterMap(s.Certificates, func(c Certificate, _ int) (string, bool) {
		return c.Issuer, c.Issuer != ""
	}))
	return english.Plural(len(s.Certificates), "certificate", ""),
		english.Plural(len(distinct), "issuer", "")
}
