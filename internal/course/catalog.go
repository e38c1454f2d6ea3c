// Package course describes the billing course modules and who may open them.
// Module content itself is not served.
package course

import (
	"strings"

	"github.com/em-billing-mcp-server/internal/domain"
)

// Module is one course unit.
type Module struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Sections int    `json:"sections"`
	Premium  bool   `json:"premium"`
}

// Catalog is an ordered, read-only list of modules.
type Catalog struct {
	modules []Module
	index   map[string]int
}

// NewCatalog builds a catalog. Ids must be unique and non-empty.
func NewCatalog(modules []Module) (*Catalog, error) {
	c := &Catalog{
		modules: make([]Module, 0, len(modules)),
		index:   make(map[string]int, len(modules)),
	}
	for _, m := range modules {
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return nil, domain.NewValidationError("module.id", "module id is required", m.Title)
		}
		if _, dup := c.index[m.ID]; dup {
			return nil, domain.NewValidationError("module.id", "duplicate module id", m.ID)
		}
		c.index[m.ID] = len(c.modules)
		c.modules = append(c.modules, m)
	}
	return c, nil
}

// DefaultCatalog returns the built-in course outline.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Module{
		{ID: "em-foundations", Title: "E/M Coding Foundations", Sections: 6},
		{ID: "mdm-levels", Title: "Medical Decision Making Levels", Sections: 5},
		{ID: "time-based-coding", Title: "Time-Based Code Selection", Sections: 4},
		{ID: "annual-wellness-visits", Title: "Annual Wellness Visit Revenue", Sections: 5, Premium: true},
		{ID: "modifiers-25-59", Title: "Modifiers 25 and 59", Sections: 4, Premium: true},
		{ID: "chronic-care-management", Title: "Chronic Care Management", Sections: 5, Premium: true},
		{ID: "documentation-audits", Title: "Documentation Audits", Sections: 3, Premium: true},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// Modules returns every module in course order.
func (c *Catalog) Modules() []Module {
	return append([]Module(nil), c.modules...)
}

// Module returns the module with the given id.
func (c *Catalog) Module(id string) (Module, bool) {
	i, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return Module{}, false
	}
	return c.modules[i], true
}

// CanAccess reports whether the session may open m. Premium modules need a paid session.
func (c *Catalog) CanAccess(session *domain.Session, m Module) bool {
	return !m.Premium || session.IsPaid()
}

// Accessible returns the modules the session may open, in course order.
func (c *Catalog) Accessible(session *domain.Session) []Module {
	out := make([]Module, 0, len(c.modules))
	for _, m := range c.modules {
		if c.CanAccess(session, m) {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of modules.
func (c *Catalog) Len() int {
	return len(c.modules)
}
