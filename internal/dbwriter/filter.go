package dbwriter

import (
	"encoding/xml"
	"io"
	"regexp"

	"github.com/5342/C5SIGMA/internal/xerrors"
)

// verdict is the outcome of consulting a Filter for one name.
type verdict int

const (
	verdictUnknown verdict = iota
	verdictAllow
	verdictDeny
)

type filterRule struct {
	deny    bool
	pattern *regexp.Regexp
}

// Filter holds the compiled table and column allow/deny rules. Rules are
// evaluated in declaration order; the last matching rule wins; a name with
// no matching rule is treated as allowed.
type Filter struct {
	tables  []filterRule
	columns []filterRule
}

// NoopFilter allows every table and column; it is the default when no
// filter file is configured.
func NoopFilter() *Filter {
	return &Filter{}
}

type filterXML struct {
	XMLName xml.Name   `xml:"filter"`
	Tables  ruleSetXML `xml:"tables"`
	Columns ruleSetXML `xml:"columns"`
}

type ruleSetXML struct {
	Allow []ruleXML `xml:"allow"`
	Deny  []ruleXML `xml:"deny"`
}

type ruleXML struct {
	XMLName    xml.Name
	TableName  string `xml:"tableName,attr"`
	ColumnName string `xml:"columnName,attr"`
}

// LoadFilter parses a filter file. Rules within <tables> and <columns> are
// recombined into declaration order from the raw token stream so that
// "last match wins" reflects the file's actual ordering rather than the
// XML decoder's element-grouping; a rule whose regex fails to compile is
// skipped and logged by the caller, not the whole file.
func LoadFilter(r io.Reader) (*Filter, []error) {
	dec := xml.NewDecoder(r)
	f := &Filter{}
	var errs []error

	var section string // "tables" or "columns"
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, []error{xerrors.WrapInvalid(err, "dbwriter", "LoadFilter", "decode filter xml")}
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "tables":
			section = "tables"
		case "columns":
			section = "columns"
		case "allow", "deny":
			rule, err := parseFilterElement(start, section)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if section == "tables" {
				f.tables = append(f.tables, rule)
			} else {
				f.columns = append(f.columns, rule)
			}
		}
	}
	return f, errs
}

func parseFilterElement(start xml.StartElement, section string) (filterRule, error) {
	attrName := "tableName"
	if section == "columns" {
		attrName = "columnName"
	}
	var pattern string
	for _, a := range start.Attr {
		if a.Name.Local == attrName {
			pattern = a.Value
		}
	}
	re, err := compileCachedFilter(pattern)
	if err != nil {
		return filterRule{}, xerrors.WrapInvalid(xerrors.ErrRuleCompileFailed, "dbwriter", "parseFilterElement", err.Error())
	}
	return filterRule{deny: start.Name.Local == "deny", pattern: re}, nil
}

// compileCachedFilter compiles a filter regex; filter patterns are small
// and few per run, so this deliberately does not share the fixups regex
// cache (unrelated cache lifetime and a different package's hot path).
func compileCachedFilter(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}

// AllowsTable reports whether table is permitted by the last matching
// table rule (default allow).
func (f *Filter) AllowsTable(table string) bool {
	return evaluate(f.tables, table) != verdictDeny
}

// AllowsColumn reports whether column is permitted by the last matching
// column rule (default allow).
func (f *Filter) AllowsColumn(column string) bool {
	return evaluate(f.columns, column) != verdictDeny
}

func evaluate(rules []filterRule, name string) verdict {
	v := verdictUnknown
	for _, rule := range rules {
		if rule.pattern.MatchString(name) {
			if rule.deny {
				v = verdictDeny
			} else {
				v = verdictAllow
			}
		}
	}
	return v
}
