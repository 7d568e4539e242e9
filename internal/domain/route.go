package domain

// RouteEntry is a console navigation item. Leaves link to Path; groups have
// Children and no Path of their own.
type RouteEntry struct {
	ID       string       `json:"id" yaml:"id"`
	Title    string       `json:"title" yaml:"title"`
	Path     string       `json:"path,omitempty" yaml:"path,omitempty"`
	Children []RouteEntry `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsGroup reports whether the entry only aggregates children.
func (r RouteEntry) IsGroup() bool {
	return r.Path == "" && len(r.Children) > 0
}
