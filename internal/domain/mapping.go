package domain

// ObjectPolicy holds per-remote-object exceptions to the default upsert rules.
type ObjectPolicy struct {
	// KeyField overrides the column used for existence lookups.
	// Empty means the row's first column.
	KeyField string `json:"key_field,omitempty" toml:"key_field"`

	// ExcludeOnWrite lists columns dropped from create/edit payloads,
	// typically identity columns assigned by the remote side.
	ExcludeOnWrite []string `json:"exclude_on_write,omitempty" toml:"exclude_on_write"`
}

// TableMapping associates a local table with its remote object.
type TableMapping struct {
	Table  string
	Object string
	Policy ObjectPolicy
}

// LookupKey returns the column and value used to check whether row already
// exists remotely.
func (m TableMapping) LookupKey(row Row) (string, any, bool) {
	if m.Policy.KeyField != "" {
		v, ok := row.Get(m.Policy.KeyField)
		return m.Policy.KeyField, v, ok
	}
	return row.First()
}

// Outcome is the result of one upsert.
type Outcome int

const (
	// OutcomeRejected means the remote answered success=false.
	OutcomeRejected Outcome = iota
	// OutcomeCreated means a new record was added.
	OutcomeCreated
	// OutcomeEdited means an existing record was updated.
	OutcomeEdited
	// OutcomeSkipped means the record already existed and editing is disabled.
	OutcomeSkipped
)

// Succeeded reports whether the row can be considered migrated.
func (o Outcome) Succeeded() bool {
	return o != OutcomeRejected
}

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeCreated:
		return "created"
	case OutcomeEdited:
		return "edited"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}
