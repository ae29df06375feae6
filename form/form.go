// Package form models the JSON form definitions rendered for user tasks.
package form

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
	nanoid "github.com/matoous/go-nanoid/v2"
)

// SchemaVersion is the form-js schema version written on new forms.
const SchemaVersion = 10

// DecisionField is the key of the select field a gateway decision form
// submits.
const DecisionField = "gatewayDecision"

// KeyPrefix is prepended to every generated form key.
var KeyPrefix = "Form_"

// Alphabet is the character set of the random part of a form key.
var Alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// KeyLength is the number of random characters in a form key.
var KeyLength = 8

// Field types understood by the renderer.
const (
	TypeTextField = "textfield"
	TypeTextArea  = "textarea"
	TypeNumber    = "number"
	TypeCheckbox  = "checkbox"
	TypeSelect    = "select"
	TypeRadio     = "radio"
)

// Option is one choice of a select or radio field.
type Option struct {
	Value string `json:"value" validate:"required"`
	Label string `json:"label" validate:"required"`
}

// Field is one component of a form.
type Field struct {
	Type     string   `json:"type" validate:"required,oneof=textfield textarea number checkbox select radio"`
	ID       string   `json:"id" validate:"required"`
	Label    string   `json:"label"`
	Key      string   `json:"key" validate:"required"`
	Required bool     `json:"required"`
	Values   []Option `json:"values,omitempty" validate:"required_if=Type select,required_if=Type radio,dive"`
}

// Form is a form definition.
type Form struct {
	ID            string  `json:"id" validate:"required"`
	SchemaVersion int     `json:"schemaVersion" validate:"gt=0"`
	Type          string  `json:"type" validate:"required"`
	Components    []Field `json:"components" validate:"dive"`
}

var validate = validator.New()

// NewKey returns a fresh form key such as "Form_k3x9q2ab".
func NewKey() (string, error) {
	id, err := nanoid.Generate(Alphabet, KeyLength)
	if err != nil {
		return "", fmt.Errorf("form: %w", err)
	}
	return KeyPrefix + id, nil
}

// Decision builds the form asking which outgoing flow of a gateway to
// take. Each option's value is a flow ID.
func Decision(id string, options []Option) *Form {
	return &Form{
		ID:            id,
		SchemaVersion: SchemaVersion,
		Type:          "default",
		Components: []Field{{
			Type:     TypeSelect,
			ID:       DecisionField,
			Label:    "Select Decision",
			Key:      DecisionField,
			Required: true,
			Values:   slices.Clone(options),
		}},
	}
}

// Condition returns the flow condition that holds when the decision form
// submitted value.
func Condition(value string) string {
	return "${" + DecisionField + "=='" + value + "'}"
}

// Validate checks the struct tags, then that field keys and option values
// are unique.
func (f *Form) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("form: %w", err)
	}
	keys := map[string]bool{}
	for _, c := range f.Components {
		if keys[c.Key] {
			return fmt.Errorf("form: duplicate field key %q", c.Key)
		}
		keys[c.Key] = true
		values := map[string]bool{}
		for _, o := range c.Values {
			if values[o.Value] {
				return fmt.Errorf("form: field %q: duplicate option %q", c.Key, o.Value)
			}
			values[o.Value] = true
		}
	}
	return nil
}

// Field returns the component with the given key.
func (f *Form) Field(key string) (*Field, bool) {
	for i := range f.Components {
		if f.Components[i].Key == key {
			return &f.Components[i], true
		}
	}
	return nil, false
}

// Marshal encodes f as JSON.
func (f *Form) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

// Parse decodes and validates a JSON form.
func Parse(data []byte) (*Form, error) {
	var f Form
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("form: decode: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}
