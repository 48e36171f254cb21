package runtime

// Class is the attribute-class taxonomy from the data model: config
// attributes are immutable after load, state attributes are persisted
// and replicated, runtime attributes are volatile and local-only.
type Class int

const (
	ClassConfig Class = iota
	ClassState
	ClassRuntime
)

func (c Class) String() string {
	switch c {
	case ClassConfig:
		return "config"
	case ClassState:
		return "state"
	case ClassRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// AttributeDef is one (name, class, default) tuple in a type's schema, per
// Design Note §9 ("replace with a schema-per-type declaration that
// enumerates (name, class, default)").
type AttributeDef struct {
	Name    string
	Class   Class
	Default interface{}
}

// Schema is the full attribute declaration for one entity type.
type Schema struct {
	TypeName string
	Attrs    []AttributeDef
	byName   map[string]AttributeDef
}

// NewSchema builds a lookup-indexed Schema from a flat attribute list.
func NewSchema(typeName string, attrs []AttributeDef) *Schema {
	s := &Schema{TypeName: typeName, Attrs: attrs, byName: make(map[string]AttributeDef, len(attrs))}
	for _, a := range attrs {
		s.byName[a.Name] = a
	}
	return s
}

// Lookup returns the attribute definition for name and whether it exists.
func (s *Schema) Lookup(name string) (AttributeDef, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// ClassOf returns the class of attribute name, defaulting to ClassRuntime
// (the most permissive, least-replicated class) for names the schema does
// not declare.
func (s *Schema) ClassOf(name string) Class {
	if a, ok := s.byName[name]; ok {
		return a.Class
	}
	return ClassRuntime
}

// CheckableSchema is the attribute fragment shared by Host and Service, per
// Design Note §9 ("Checkable is a shared attribute set ... share behavior
// by composition, not inheritance"). Concrete schemas (HostSchema,
// ServiceSchema) compose this slice with their own type-specific attrs
// instead of gogios's Host-as-special-Service inheritance.
var CheckableSchema = []AttributeDef{
	{Name: "check_command", Class: ClassConfig},
	{Name: "check_interval", Class: ClassConfig, Default: 60.0},
	{Name: "retry_interval", Class: ClassConfig, Default: 60.0},
	{Name: "max_check_attempts", Class: ClassConfig, Default: 3},
	{Name: "check_period", Class: ClassConfig},
	{Name: "enable_active_checks", Class: ClassConfig, Default: true},
	{Name: "enable_passive_checks", Class: ClassConfig, Default: true},
	{Name: "enable_notifications", Class: ClassConfig, Default: true},
	{Name: "enable_flapping", Class: ClassConfig, Default: true},

	{Name: "state", Class: ClassState},
	{Name: "state_type", Class: ClassState},
	{Name: "current_attempt", Class: ClassState},
	{Name: "last_state_change", Class: ClassState},
	{Name: "last_hard_state_change", Class: ClassState},
	{Name: "next_check", Class: ClassState},
	{Name: "last_check_result", Class: ClassState},
	{Name: "flapping_current", Class: ClassState},
	{Name: "acknowledgement", Class: ClassState},
	{Name: "acknowledgement_expiry", Class: ClassState},
	{Name: "in_downtime_depth", Class: ClassState},

	{Name: "is_executing", Class: ClassRuntime},
}

func compose(extra ...AttributeDef) []AttributeDef {
	out := make([]AttributeDef, 0, len(CheckableSchema)+len(extra))
	out = append(out, CheckableSchema...)
	out = append(out, extra...)
	return out
}

// HostSchema is the Checkable fragment plus Host-specific attributes.
var HostSchema = NewSchema("Host", compose(
	AttributeDef{Name: "address", Class: ClassConfig},
	AttributeDef{Name: "parents", Class: ClassConfig},
))

// ServiceSchema is the Checkable fragment plus Service-specific attributes.
var ServiceSchema = NewSchema("Service", compose(
	AttributeDef{Name: "host_name", Class: ClassConfig},
	AttributeDef{Name: "description", Class: ClassConfig},
))

// EndpointSchema describes the Endpoint entity from the data model.
var EndpointSchema = NewSchema("Endpoint", []AttributeDef{
	{Name: "host", Class: ClassConfig},
	{Name: "port", Class: ClassConfig},
	{Name: "features", Class: ClassConfig},
	{Name: "seen", Class: ClassState},
	{Name: "local_log_position", Class: ClassState},
	{Name: "remote_log_position", Class: ClassState},
})

// ZoneSchema describes the Zone entity from the data model.
var ZoneSchema = NewSchema("Zone", []AttributeDef{
	{Name: "parent", Class: ClassConfig},
	{Name: "endpoints", Class: ClassConfig},
})
