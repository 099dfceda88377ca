package fixups

import (
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
)

// fixupFile mirrors the <fixups> XML document: constant, prefix,
// speculative (both), and template rules.
type fixupFile struct {
	XMLName     xml.Name         `xml:"fixups"`
	Constants   []constantXML    `xml:"constant"`
	Prefixes    []prefixXML      `xml:"prefix"`
	Speculative []speculativeXML `xml:"speculative"`
	Templates   []templateXML    `xml:"template"`
}

type constantXML struct {
	Protocol string `xml:"protocol,attr"`
	Text     string `xml:"text,attr"`
	Name     string `xml:"name,attr"`
}

type prefixXML struct {
	Protocol string `xml:"protocol,attr"`
	Text     string `xml:"text,attr"`
	Name     string `xml:"name,attr"`
}

type speculativeXML struct {
	Protocol string `xml:"protocol,attr"`
	Text     string `xml:"text,attr"`
	Name     string `xml:"name,attr"`
}

type templateXML struct {
	Protocol    string `xml:"protocol,attr"`
	ParentName  string `xml:"parentName,attr"`
	Name        string `xml:"name,attr"`
	Show        string `xml:"show,attr"`
	ShowName    string `xml:"showname,attr"`
	Value       string `xml:"value,attr"`
	NameFormat  string `xml:"nameFormat,attr"`
	ValueFormat string `xml:"valueFormat,attr"`
}

// errDecodeXML wraps a document-level XML decode failure so callers can
// distinguish it from a per-rule regex compile failure.
type errDecodeXML struct{ err error }

func (e errDecodeXML) Error() string { return fmt.Sprintf("fixups: decode xml: %s", e.err) }
func (e errDecodeXML) Unwrap() error { return e.err }

// parseRuleFile reads an XML fixups document into compiled rules. A
// malformed regex in one rule is reported as an error for that rule alone;
// the caller decides whether to skip it (see Engine.LoadFile). A document
// that fails to decode at all is reported as a single errDecodeXML.
func parseRuleFile(r io.Reader) ([]*rule, []error) {
	var doc fixupFile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, []error{errDecodeXML{err}}
	}

	var rules []*rule
	var errs []error

	for _, c := range doc.Constants {
		rules = append(rules, &rule{kind: kindConstant, protocols: splitProtocols(c.Protocol), text: c.Text, name: c.Name})
	}
	for _, p := range doc.Prefixes {
		rules = append(rules, &rule{kind: kindPrefix, protocols: splitProtocols(p.Protocol), text: p.Text, name: p.Name})
	}
	for _, s := range doc.Speculative {
		protos := splitProtocols(s.Protocol)
		rules = append(rules,
			&rule{kind: kindConstant, protocols: protos, text: s.Text, name: s.Name},
			&rule{kind: kindPrefix, protocols: protos, text: s.Text, name: s.Name},
		)
	}
	for _, tmpl := range doc.Templates {
		r, err := compileTemplate(tmpl)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, r)
	}

	return rules, errs
}

func compileTemplate(tmpl templateXML) (*rule, error) {
	r := &rule{
		kind:        kindTemplate,
		protocols:   splitProtocols(tmpl.Protocol),
		nameFormat:  tmpl.NameFormat,
		valueFormat: tmpl.ValueFormat,
	}
	var err error
	if r.parentNameRe, err = compileOptional(tmpl.ParentName); err != nil {
		return nil, fmt.Errorf("fixups: template parentName regex: %w", err)
	}
	if r.nameRe, err = compileOptional(tmpl.Name); err != nil {
		return nil, fmt.Errorf("fixups: template name regex: %w", err)
	}
	if r.showRe, err = compileOptional(tmpl.Show); err != nil {
		return nil, fmt.Errorf("fixups: template show regex: %w", err)
	}
	if r.shownameRe, err = compileOptional(tmpl.ShowName); err != nil {
		return nil, fmt.Errorf("fixups: template showname regex: %w", err)
	}
	if r.valueRe, err = compileOptional(tmpl.Value); err != nil {
		return nil, fmt.Errorf("fixups: template value regex: %w", err)
	}
	return r, nil
}

func compileOptional(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return compileCached(pattern)
}
