package catalog

import (
	"strings"

	"github.com/5342/C5SIGMA/internal/xerrors"
)

// Registry is the schema model: an in-memory,
// case-insensitive-keyed set of protocols, fields, and value-string tables.
// It owns Protocol and Field by value; everything else looks them up by
// shortName rather than holding a pointer, so merging never has to chase
// back-references.
//
// Registry is immutable from the perspective of every package downstream of
// the schema loader: it is fully populated before the first capture file is
// processed and never mutated afterward.
type Registry struct {
	protocols map[string]*Protocol
	fields    map[string]*Field
	values    map[valueKey][]ValueString
}

type valueKey struct {
	fieldShortName string
	kind           ValueStringKind
}

// NewRegistry returns an empty registry ready to be populated by a Loader.
func NewRegistry() *Registry {
	return &Registry{
		protocols: make(map[string]*Protocol),
		fields:    make(map[string]*Field),
		values:    make(map[valueKey][]ValueString),
	}
}

func key(shortName string) string {
	return strings.ToLower(shortName)
}

// RegisterProtocol adds a protocol, merging into an existing entry with the
// same shortName (case-insensitive). A filterName conflict fails and leaves
// the existing entry untouched.
func (r *Registry) RegisterProtocol(p Protocol) error {
	k := key(p.ShortName)
	existing, ok := r.protocols[k]
	if !ok {
		cp := p
		r.protocols[k] = &cp
		return nil
	}
	if err := existing.merge(p); err != nil {
		return xerrors.WrapInvalid(xerrors.ErrFilterNameConflict, "catalog", "RegisterProtocol", err.Error())
	}
	return nil
}

// Protocol looks up a protocol by shortName (case-insensitive).
func (r *Registry) Protocol(shortName string) (*Protocol, bool) {
	p, ok := r.protocols[key(shortName)]
	return p, ok
}

// RegisterField adds a field, merging into an existing entry with the same
// shortName. A parent-protocol or type conflict fails and leaves the
// existing entry untouched.
func (r *Registry) RegisterField(f Field) error {
	if _, ok := r.protocols[key(f.ParentShortName)]; !ok {
		return xerrors.WrapInvalid(xerrors.ErrUnknownParentProtocol, "catalog", "RegisterField",
			"parent protocol "+f.ParentShortName+" not registered for field "+f.ShortName)
	}

	k := key(f.ShortName)
	existing, ok := r.fields[k]
	if !ok {
		cp := f
		r.fields[k] = &cp
		return nil
	}
	if err := existing.merge(f); err != nil {
		return xerrors.WrapInvalid(xerrors.ErrFieldTypeConflict, "catalog", "RegisterField", err.Error())
	}
	return nil
}

// Field looks up a field by shortName (case-insensitive).
func (r *Registry) Field(shortName string) (*Field, bool) {
	f, ok := r.fields[key(shortName)]
	return f, ok
}

// RegisterValue adds a value-string entry for a field. Differing labels for
// an otherwise identical key concatenate with " / ", mirroring Protocol's
// longName merge.
func (r *Registry) RegisterValue(fieldShortName string, v ValueString) {
	vk := valueKey{fieldShortName: key(fieldShortName), kind: v.Kind}
	entries := r.values[vk]

	for i := range entries {
		if sameValueKey(entries[i], v) {
			entries[i].Label = combineLabel(entries[i].Label, v.Label)
			entries[i].TrueLabel = combineLabel(entries[i].TrueLabel, v.TrueLabel)
			entries[i].FalseLabel = combineLabel(entries[i].FalseLabel, v.FalseLabel)
			r.values[vk] = entries
			return
		}
	}
	r.values[vk] = append(entries, v)
}

func sameValueKey(a, b ValueString) bool {
	switch a.Kind {
	case ValueStringSingle:
		return a.Value == b.Value
	case ValueStringRange:
		return a.Lo == b.Lo && a.Hi == b.Hi
	case ValueStringBoolean:
		return true // one boolean entry per field
	default:
		return false
	}
}

func combineLabel(existing, incoming string) string {
	if incoming == "" || incoming == existing {
		return existing
	}
	if existing == "" {
		return incoming
	}
	return existing + " / " + incoming
}

// Values returns the value-string entries of a given kind registered for a
// field, in registration order.
func (r *Registry) Values(fieldShortName string, kind ValueStringKind) []ValueString {
	return r.values[valueKey{fieldShortName: key(fieldShortName), kind: kind}]
}

// LookupLabel resolves the label for a typed integer value (booleans go
// through LookupBoolLabel), consulting single entries first, then the first range whose inclusive
// bounds contain it. Returns ("", false) when nothing matches.
func (r *Registry) LookupLabel(fieldShortName string, value int64) (string, bool) {
	for _, v := range r.Values(fieldShortName, ValueStringSingle) {
		if v.Value == value {
			return v.Label, true
		}
	}
	for _, v := range r.Values(fieldShortName, ValueStringRange) {
		if value >= v.Lo && value <= v.Hi {
			return v.Label, true
		}
	}
	return "", false
}

// LookupBoolLabel resolves the true/false label for a boolean field.
func (r *Registry) LookupBoolLabel(fieldShortName string, typed bool) (string, bool) {
	entries := r.Values(fieldShortName, ValueStringBoolean)
	if len(entries) == 0 {
		return "", false
	}
	if typed {
		return entries[0].TrueLabel, entries[0].TrueLabel != ""
	}
	return entries[0].FalseLabel, entries[0].FalseLabel != ""
}
