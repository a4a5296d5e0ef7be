// Package admin declares how each catalog entity is presented in the back
// office: list columns, filters, fieldsets, inlines and bulk actions.
package admin

import (
	"context"

	"github.com/bbluechip/catalogadmin/internal/catalog"
)

// Filter kinds understood by the list endpoints
const (
	FilterBoolean         = "boolean"
	FilterDateTimeRange   = "datetime_range"
	FilterRelatedDropdown = "related_dropdown"
)

// Column is one list or read-only value of an object.
type Column[T any] struct {
	Name     string
	Label    string
	Editable bool
	// Markup columns return catalog.Markup and are rendered without escaping.
	Markup bool
	Value  func(ctx context.Context, obj *T) (interface{}, error)
}

type Filter struct {
	Field string `json:"field"`
	Kind  string `json:"kind"`
}

type Fieldset struct {
	Name        string     `json:"name"`
	Classes     []string   `json:"classes,omitempty"`
	Fields      [][]string `json:"fields"` // fields sharing a slice render on one line
	Description string     `json:"description,omitempty"`
}

// Inline edits child rows inside the parent's change form.
type Inline struct {
	Model   string   `json:"model"`
	FKField string   `json:"fk_field"`
	Extra   int      `json:"extra"`
	Classes []string `json:"classes,omitempty"`
}

// Action is a bulk operation applied to the selected ids.
type Action struct {
	Name  string                                                                `json:"name"`
	Label string                                                                `json:"label"`
	Run   func(ctx context.Context, ids []int64) (*catalog.ActionResult, error) `json:"-"`
}

type ModelAdmin[T any] struct {
	Model              string
	VerboseName        string
	ListDisplay        []Column[T]
	ListFilter         []Filter
	SearchFields       []string
	ListPerPage        int
	DateHierarchy      string
	Fieldsets          []Fieldset
	ReadonlyFields     []Column[T]
	PrepopulatedFields map[string][]string
	FilterVertical     []string
	RawIDFields        []string
	Inlines            []Inline
	Actions            []Action
	ResourceColumns    []string
}

// Row evaluates the list columns of one object, keyed by column name.
func (m *ModelAdmin[T]) Row(ctx context.Context, obj *T) (map[string]interface{}, error) {
	return evaluate(ctx, m.ListDisplay, obj)
}

// Readonly evaluates the read-only change form values of one object.
func (m *ModelAdmin[T]) Readonly(ctx context.Context, obj *T) (map[string]interface{}, error) {
	return evaluate(ctx, m.ReadonlyFields, obj)
}

// Action looks up a bulk action by name.
func (m *ModelAdmin[T]) Action(name string) (Action, bool) {
	for _, a := range m.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

// PerPage returns the page size, 100 when unset.
func (m *ModelAdmin[T]) PerPage() int {
	if m.ListPerPage <= 0 {
		return 100
	}
	return m.ListPerPage
}

func evaluate[T any](ctx context.Context, cols []Column[T], obj *T) (map[string]interface{}, error) {
	row := make(map[string]interface{}, len(cols))
	for _, col := range cols {
		v, err := col.Value(ctx, obj)
		if err != nil {
			return nil, err
		}
		if mk, ok := v.(catalog.Markup); ok {
			v = mk.String()
		}
		row[col.Name] = v
	}
	return row, nil
}
