// Package fixups applies declarative name-rewrite rules to the dissector's
// raw (name, showname, show, value) attribute quadruple before the value
// typer and the flattener see it. Rules come from a built-in, compressed
// rule set plus an optional external file that augments it.
package fixups

// Attrs is the mutable quadruple a rule observes and rewrites. ProtocolName
// scopes constant/prefix rules; ParentName feeds template rules.
type Attrs struct {
	ProtocolName string
	ParentName   string
	Name         string
	ShowName     string
	Show         string
	Value        string
}
