package domain

// TagValueType distinguishes tags carrying one scalar reading from tags
// carrying a structured, multi-field reading.
type TagValueType string

const (
	ValueTypeSimple    TagValueType = "Simple"
	ValueTypeComposite TagValueType = "Composite"
)

func (t TagValueType) IsSimple() bool    { return t == ValueTypeSimple }
func (t TagValueType) IsComposite() bool { return t == ValueTypeComposite }
