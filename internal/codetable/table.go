// Package codetable provides the billing code to RVU lookup table and the
// sources it can be loaded from.
package codetable

import (
	"sort"
	"strings"

	"github.com/em-billing-mcp-server/internal/domain"
)

// Table is an immutable code table snapshot. It is safe for concurrent reads.
type Table struct {
	codes map[string]domain.BillingCode
	order []string
}

// NewTable validates codes and builds a snapshot. Duplicate ids, empty ids and
// negative RVUs are rejected.
func NewTable(codes []domain.BillingCode) (*Table, error) {
	t := &Table{
		codes: make(map[string]domain.BillingCode, len(codes)),
		order: make([]string, 0, len(codes)),
	}

	for _, code := range codes {
		code.ID = strings.TrimSpace(code.ID)
		if err := code.Validate(); err != nil {
			return nil, err
		}
		if _, exists := t.codes[code.ID]; exists {
			return nil, domain.NewValidationError("id", "duplicate billing code", code.ID)
		}
		t.codes[code.ID] = code
		t.order = append(t.order, code.ID)
	}
	sort.Strings(t.order)

	return t, nil
}

// MustNewTable is NewTable for tables known to be valid at compile time.
func MustNewTable(codes []domain.BillingCode) *Table {
	t, err := NewTable(codes)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the code with the given id.
func (t *Table) Lookup(codeID string) (domain.BillingCode, bool) {
	if t == nil {
		return domain.BillingCode{}, false
	}
	code, ok := t.codes[strings.TrimSpace(codeID)]
	return code, ok
}

// Codes returns every code sorted by id.
func (t *Table) Codes() []domain.BillingCode {
	if t == nil {
		return nil
	}
	out := make([]domain.BillingCode, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.codes[id])
	}
	return out
}

// Len returns the number of codes in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}
