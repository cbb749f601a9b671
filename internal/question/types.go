package question

// FieldType is the rendering/validation kind of a question.
type FieldType string

const (
	FieldTypeSingleChoice FieldType = "single_choice"
	FieldTypeSingleSelect FieldType = "single_select"
	FieldTypeMultiSelect  FieldType = "multi_select"
	FieldTypeFreeText     FieldType = "free_text"
)

// HasChoices reports whether the field type carries a fixed option set.
func (f FieldType) HasChoices() bool {
	switch f {
	case FieldTypeSingleChoice, FieldTypeSingleSelect, FieldTypeMultiSelect:
		return true
	default:
		return false
	}
}

// Valid reports whether f is one of the known field types.
func (f FieldType) Valid() bool {
	switch f {
	case FieldTypeSingleChoice, FieldTypeSingleSelect, FieldTypeMultiSelect, FieldTypeFreeText:
		return true
	default:
		return false
	}
}
