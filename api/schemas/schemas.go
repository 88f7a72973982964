package schemas

// AttributeKind tags the data kind of an entity attribute.
type AttributeKind string

const (
	KindText      AttributeKind = "text"
	KindNumber    AttributeKind = "number"
	KindBoolean   AttributeKind = "boolean"
	KindDate      AttributeKind = "date"
	KindRelation  AttributeKind = "relation"
	KindSelection AttributeKind = "selection"
	KindComputed  AttributeKind = "computed"
	KindBinary    AttributeKind = "binary"
	KindOther     AttributeKind = "other"
)

// Visibility classifies an operation on an entity.
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityPrivate    Visibility = "private"
	VisibilityAction     Visibility = "action-trigger"
	VisibilityComputed   Visibility = "computed-trigger"
	VisibilityChange     Visibility = "change-trigger"
	VisibilityConstraint Visibility = "constraint-trigger"
)

// AttributeDescription is one declared field of an entity.
type AttributeDescription struct {
	Name string        `json:"name"`
	Kind AttributeKind `json:"kind"`
	// FieldType is the raw factory name, e.g. "Many2one".
	FieldType    string   `json:"field_type"`
	Label        string   `json:"label,omitempty"`
	Required     bool     `json:"required"`
	Readonly     bool     `json:"readonly"`
	ComputedFrom string   `json:"computed_from,omitempty"`
	Depends      []string `json:"depends,omitempty"`
	Related      string   `json:"related,omitempty"`
	RelatedModel string   `json:"related_model,omitempty"`
	Options      []string `json:"options,omitempty"`
}

// RaisedError is a user-facing error raised inside an operation.
type RaisedError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// OperationDescription is one method of an entity.
type OperationDescription struct {
	Name         string        `json:"name"`
	Visibility   Visibility    `json:"visibility"`
	Doc          string        `json:"doc,omitempty"`
	Dependencies []string      `json:"dependencies,omitempty"`
	Errors       []RaisedError `json:"errors,omitempty"`
	Guards       []string      `json:"guards,omitempty"`
}

// ConstraintDescription is a validation method bound to a set of fields.
type ConstraintDescription struct {
	Operation string   `json:"operation"`
	Fields    []string `json:"fields"`
	Message   string   `json:"message,omitempty"`
}

// SQLConstraint is a database-level constraint declared on the entity.
type SQLConstraint struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
	Message    string `json:"message"`
}

// StateField points at the selection attribute driving the entity workflow.
type StateField struct {
	Attribute string   `json:"attribute"`
	States    []string `json:"states"`
}

// AccessRule is one row of the module's access control list.
type AccessRule struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Group      string `json:"group"`
	PermRead   bool   `json:"perm_read"`
	PermWrite  bool   `json:"perm_write"`
	PermCreate bool   `json:"perm_create"`
	PermUnlink bool   `json:"perm_unlink"`
}

// ViewTrigger is an interactive button found in a markup file.
type ViewTrigger struct {
	Name      string `json:"name"`
	Label     string `json:"label,omitempty"`
	Type      string `json:"type"`
	States    string `json:"states,omitempty"`
	Invisible string `json:"invisible,omitempty"`
	Attrs     string `json:"attrs,omitempty"`
	View      string `json:"view,omitempty"`
}

// ViewHints are read-only markup-derived hints for prompt construction.
type ViewHints struct {
	Triggers   []ViewTrigger `json:"triggers,omitempty"`
	Attributes []string      `json:"attributes,omitempty"`
}

// EntityDescription is the structured description of one business entity.
type EntityDescription struct {
	EntityName     string                  `json:"entity_name"`
	Extends        string                  `json:"extends,omitempty"`
	Description    string                  `json:"description,omitempty"`
	SourceFile     string                  `json:"source_file,omitempty"`
	Attributes     []AttributeDescription  `json:"attributes"`
	Operations     []OperationDescription  `json:"operations"`
	Constraints    []ConstraintDescription `json:"constraints"`
	SQLConstraints []SQLConstraint         `json:"sql_constraints,omitempty"`
	StateField     *StateField             `json:"state_field,omitempty"`
	AccessRules    []AccessRule            `json:"access_rules,omitempty"`
	Views          ViewHints               `json:"views"`
}

// Attribute returns the named attribute, if declared.
func (e *EntityDescription) Attribute(name string) (AttributeDescription, bool) {
	for _, a := range e.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeDescription{}, false
}

// RequiredAttributes lists the attributes flagged as required, in declaration order.
func (e *EntityDescription) RequiredAttributes() []AttributeDescription {
	var out []AttributeDescription
	for _, a := range e.Attributes {
		if a.Required {
			out = append(out, a)
		}
	}
	return out
}

// OperationsBy returns the operations with the given visibility, in declaration order.
func (e *EntityDescription) OperationsBy(v Visibility) []OperationDescription {
	var out []OperationDescription
	for _, op := range e.Operations {
		if op.Visibility == v {
			out = append(out, op)
		}
	}
	return out
}
