package admin

type ColumnDescriptor struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Editable bool   `json:"editable,omitempty"`
	Markup   bool   `json:"markup,omitempty"`
}

// ModelDescriptor is the JSON shape of a ModelAdmin served to the UI.
type ModelDescriptor struct {
	Model              string              `json:"model"`
	VerboseName        string              `json:"verbose_name"`
	ListDisplay        []ColumnDescriptor  `json:"list_display"`
	ListEditable       []string            `json:"list_editable"`
	ListFilter         []Filter            `json:"list_filter"`
	SearchFields       []string            `json:"search_fields"`
	ListPerPage        int                 `json:"list_per_page"`
	DateHierarchy      string              `json:"date_hierarchy,omitempty"`
	Fieldsets          []Fieldset          `json:"fieldsets,omitempty"`
	ReadonlyFields     []ColumnDescriptor  `json:"readonly_fields,omitempty"`
	PrepopulatedFields map[string][]string `json:"prepopulated_fields,omitempty"`
	FilterVertical     []string            `json:"filter_vertical,omitempty"`
	RawIDFields        []string            `json:"raw_id_fields,omitempty"`
	Inlines            []Inline            `json:"inlines,omitempty"`
	Actions            []Action            `json:"actions"`
	ResourceColumns    []string            `json:"resource_columns,omitempty"`
}

func describeColumns[T any](cols []Column[T]) []ColumnDescriptor {
	out := make([]ColumnDescriptor, 0, len(cols))
	for _, c := range cols {
		out = append(out, ColumnDescriptor{Name: c.Name, Label: c.Label, Editable: c.Editable, Markup: c.Markup})
	}
	return out
}

func (m *ModelAdmin[T]) Describe() ModelDescriptor {
	editable := []string{}
	for _, c := range m.ListDisplay {
		if c.Editable {
			editable = append(editable, c.Name)
		}
	}
	actions := m.Actions
	if actions == nil {
		actions = []Action{}
	}
	return ModelDescriptor{
		Model:              m.Model,
		VerboseName:        m.VerboseName,
		ListDisplay:        describeColumns(m.ListDisplay),
		ListEditable:       editable,
		ListFilter:         m.ListFilter,
		SearchFields:       m.SearchFields,
		ListPerPage:        m.PerPage(),
		DateHierarchy:      m.DateHierarchy,
		Fieldsets:          m.Fieldsets,
		ReadonlyFields:     describeColumns(m.ReadonlyFields),
		PrepopulatedFields: m.PrepopulatedFields,
		FilterVertical:     m.FilterVertical,
		RawIDFields:        m.RawIDFields,
		Inlines:            m.Inlines,
		Actions:            actions,
		ResourceColumns:    m.ResourceColumns,
	}
}
