package llm

import "encoding/json"

// SchemaType is a JSON schema primitive type.
type SchemaType string

const (
	TypeArray   SchemaType = "array"
	TypeObject  SchemaType = "object"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema is a provider-neutral subset of JSON schema used to constrain
// structured responses. Providers translate it to their own wire type.
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`

	// PropertyOrder fixes the order of Properties where the backend supports it.
	PropertyOrder []string `json:"-"`
}

// MarshalJSON renders the schema as standard JSON schema.
func (s *Schema) MarshalJSON() ([]byte, error) {
	type plain Schema
	return json.Marshal((*plain)(s))
}
