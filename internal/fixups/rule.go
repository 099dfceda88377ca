package fixups

import (
	"regexp"
	"strings"
)

// ruleKind tags the three shapes a fixup rule can take; speculative rules
// from the file format are expanded into one constant and one prefix rule
// sharing the same protocol/text pair.
type ruleKind int

const (
	kindConstant ruleKind = iota
	kindPrefix
	kindTemplate
)

// rule is one compiled fixup. Protocols holds the comma-separated list of
// shortNames the rule is scoped to; an empty list matches every protocol.
type rule struct {
	kind      ruleKind
	protocols []string

	// constant / prefix
	text string
	name string

	// template
	parentNameRe *regexp.Regexp
	nameRe       *regexp.Regexp
	showRe       *regexp.Regexp
	shownameRe   *regexp.Regexp
	valueRe      *regexp.Regexp
	nameFormat   string
	valueFormat  string
}

func (r *rule) scopedTo(protocol string) bool {
	if len(r.protocols) == 0 {
		return true
	}
	for _, p := range r.protocols {
		if p == protocol {
			return true
		}
	}
	return false
}

func splitProtocols(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// apply attempts to apply the rule to attrs, reporting whether it matched.
func (r *rule) apply(attrs *Attrs) bool {
	switch r.kind {
	case kindConstant:
		if attrs.Name != "" || !r.scopedTo(attrs.ProtocolName) {
			return false
		}
		if attrs.Show != r.text {
			return false
		}
		attrs.Name = r.name
		attrs.ShowName = attrs.Show
		attrs.Show = ""
		attrs.Value = ""
		return true

	case kindPrefix:
		if attrs.Name != "" || !r.scopedTo(attrs.ProtocolName) {
			return false
		}
		marker := r.text + ":"
		if !strings.HasPrefix(attrs.Show, marker) {
			return false
		}
		attrs.Name = r.name
		attrs.ShowName = attrs.Show
		rest := strings.TrimLeft(attrs.Show[len(marker):], " ")
		attrs.Show = rest
		attrs.Value = rest
		return true

	case kindTemplate:
		return r.applyTemplate(attrs)
	}
	return false
}

// captures accumulates named-group matches across matchers, then appends
// the implicit keys (parentName, name, show, ...). set is first-write-wins,
// so a named group sharing its name with an implicit key keeps its
// captured value.
type captures struct {
	order  []string
	values map[string]string
}

func newCaptures() *captures {
	return &captures{values: make(map[string]string)}
}

func (c *captures) set(key, value string) {
	if _, exists := c.values[key]; exists {
		return
	}
	c.order = append(c.order, key)
	c.values[key] = value
}

func (c *captures) addMatch(re *regexp.Regexp, s string) bool {
	if re == nil {
		return true
	}
	m := re.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	for i, name := range re.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		c.set(name, m[i])
	}
	return true
}

func (r *rule) applyTemplate(attrs *Attrs) bool {
	if !r.scopedTo(attrs.ProtocolName) {
		return false
	}
	c := newCaptures()
	if !c.addMatch(r.parentNameRe, attrs.ParentName) {
		return false
	}
	if !c.addMatch(r.nameRe, attrs.Name) {
		return false
	}
	if !c.addMatch(r.showRe, attrs.Show) {
		return false
	}
	if !c.addMatch(r.shownameRe, attrs.ShowName) {
		return false
	}
	if !c.addMatch(r.valueRe, attrs.Value) {
		return false
	}

	parentNamePrefix := ""
	if attrs.ParentName != "" {
		parentNamePrefix = attrs.ParentName + "."
	}
	c.set("parentName", attrs.ParentName)
	c.set("parentNamePrefix", parentNamePrefix)
	c.set("name", attrs.Name)
	c.set("show", attrs.Show)
	c.set("showname", attrs.ShowName)
	c.set("value", attrs.Value)

	newName := expandTokens(r.nameFormat, c)
	newValue := expandTokens(r.valueFormat, c)

	// Open question (bool fixup assignment): the original unconditionally
	// overwrites all four attributes even when only one format string
	// produced output; preserve that verbatim instead of normalizing away
	// the resulting empty show/value asymmetry.
	attrs.Name = Normalize(newName)
	attrs.ShowName = attrs.Name
	attrs.Show = newValue
	attrs.Value = newValue
	return true
}

// expandTokens substitutes $(key) tokens in format with values from c.
func expandTokens(format string, c *captures) string {
	if format == "" {
		return ""
	}
	var b strings.Builder
	i := 0
	for i < len(format) {
		if format[i] == '$' && i+1 < len(format) && format[i+1] == '(' {
			end := strings.IndexByte(format[i+2:], ')')
			if end >= 0 {
				key := format[i+2 : i+2+end]
				b.WriteString(c.values[key])
				i += 2 + end + 1
				continue
			}
		}
		b.WriteByte(format[i])
		i++
	}
	return b.String()
}
