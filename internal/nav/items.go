package nav

// Item is a navigation entry pointing at a page section.
type Item struct {
	Section string `yaml:"section"`
	Label   string `yaml:"label"`
	Icon    string `yaml:"icon"`
}

// RenderedItem is a view model for templates.
type RenderedItem struct {
	Href   string
	Label  string
	Icon   string
	Active bool
}

// Build renders items with the entry for the active section marked.
func Build(items []Item, active string) []RenderedItem {
	out := make([]RenderedItem, 0, len(items))
	for _, it := range items {
		out = append(out, RenderedItem{
			Href:   "#" + it.Section,
			Label:  it.Label,
			Icon:   it.Icon,
			Active: it.Section == active,
		})
	}
	return out
}
