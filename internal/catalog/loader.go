package catalog

import (
	"bufio"
	"io"
	"log/slog"
	"strings"
)

// Loader parses the four tab-delimited catalogs a dissector run emits into
// a Registry. Per-line failures are logged and skipped; the loader always
// returns a (possibly partial) schema rather than failing the whole run.
type Loader struct {
	Registry *Registry
	Logger   *slog.Logger
}

// NewLoader returns a Loader writing into a fresh Registry.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Registry: NewRegistry(), Logger: logger}
}

// splitTab splits a line on tab, capping the number of resulting fields at
// n so the last field may itself contain tabs.
func splitTab(line string, n int) []string {
	return strings.SplitN(line, "\t", n)
}

func (l *Loader) warn(catalog string, lineNo int, line string, reason string) {
	l.Logger.Warn("catalog: skipping malformed line",
		"catalog", catalog, "line_number", lineNo, "line", line, "reason", reason)
}

// LoadProtocols parses the protocols catalog: longName, shortName,
// filterName, three columns, no leading tag.
func (l *Loader) LoadProtocols(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cols := splitTab(line, 3)
		if len(cols) != 3 {
			l.warn("protocols", lineNo, line, "expected 3 columns")
			continue
		}
		p := Protocol{LongName: cols[0], ShortName: cols[1], FilterName: cols[2]}
		if p.ShortName == "" {
			l.warn("protocols", lineNo, line, "empty shortName")
			continue
		}
		if err := l.Registry.RegisterProtocol(p); err != nil {
			l.warn("protocols", lineNo, line, err.Error())
		}
	}
	return scanner.Err()
}

// LoadFields parses the fields catalog: leading tag F (8 columns) or P
// (3 columns, auto-registers a missing parent protocol).
func (l *Loader) LoadFields(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		tag := ""
		if idx := strings.IndexByte(line, '\t'); idx >= 0 {
			tag = line[:idx]
		}

		switch tag {
		case "P":
			cols := splitTab(line, 3)
			if len(cols) != 3 {
				l.warn("fields", lineNo, line, "expected 3 columns for P record")
				continue
			}
			longName, shortName := cols[1], cols[2]
			if shortName == "" {
				l.warn("fields", lineNo, line, "empty shortName")
				continue
			}
			p := Protocol{LongName: longName, ShortName: shortName, FilterName: strings.ToLower(shortName)}
			if err := l.Registry.RegisterProtocol(p); err != nil {
				l.warn("fields", lineNo, line, err.Error())
			}
		case "F":
			cols := splitTab(line, 8)
			if len(cols) != 8 {
				l.warn("fields", lineNo, line, "expected 8 columns for F record")
				continue
			}
			longName, shortName, typeToken, parentShortName := cols[1], cols[2], cols[3], cols[4]
			description, displayBaseToken, bitmask := cols[5], cols[6], cols[7]

			if shortName == "" {
				l.warn("fields", lineNo, line, "empty shortName")
				continue
			}
			ft, ok := fieldTypeFromToken(typeToken)
			if !ok {
				l.warn("fields", lineNo, line, "unknown dissector type token "+typeToken)
				continue
			}
			f := Field{
				ShortName:       shortName,
				LongName:        longName,
				Description:     description,
				DisplayBase:     displayBaseFromToken(displayBaseToken),
				Bitmask:         bitmask,
				Type:            ft,
				ParentShortName: parentShortName,
			}
			if err := l.Registry.RegisterField(f); err != nil {
				l.warn("fields", lineNo, line, err.Error())
			}
		default:
			l.warn("fields", lineNo, line, "unknown record tag "+tag)
		}
	}
	return scanner.Err()
}

// LoadValues parses the value-strings catalog: V (single), R (range), or T
// (boolean) records.
func (l *Loader) LoadValues(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		tag := ""
		if idx := strings.IndexByte(line, '\t'); idx >= 0 {
			tag = line[:idx]
		}

		switch tag {
		case "V":
			cols := splitTab(line, 4)
			if len(cols) != 4 {
				l.warn("values", lineNo, line, "expected 4 columns for V record")
				continue
			}
			field, rawValue, label := cols[1], cols[2], cols[3]
			value, err := ParseInt(rawValue)
			if err != nil {
				l.warn("values", lineNo, line, err.Error())
				continue
			}
			l.Registry.RegisterValue(field, ValueString{Kind: ValueStringSingle, Value: value, Label: label})
		case "R":
			cols := splitTab(line, 5)
			if len(cols) != 5 {
				l.warn("values", lineNo, line, "expected 5 columns for R record")
				continue
			}
			field, rawLo, rawHi, label := cols[1], cols[2], cols[3], cols[4]
			lo, err := ParseInt(rawLo)
			if err != nil {
				l.warn("values", lineNo, line, err.Error())
				continue
			}
			hi, err := ParseInt(rawHi)
			if err != nil {
				l.warn("values", lineNo, line, err.Error())
				continue
			}
			l.Registry.RegisterValue(field, ValueString{
				Kind: ValueStringRange, Lo: lo, Hi: hi, Inclusive: true, Label: label,
			})
		case "T":
			cols := splitTab(line, 4)
			if len(cols) != 4 {
				l.warn("values", lineNo, line, "expected 4 columns for T record")
				continue
			}
			field, trueLabel, falseLabel := cols[1], cols[2], cols[3]
			l.Registry.RegisterValue(field, ValueString{
				Kind: ValueStringBoolean, TrueLabel: trueLabel, FalseLabel: falseLabel,
			})
		default:
			l.warn("values", lineNo, line, "unknown record tag "+tag)
		}
	}
	return scanner.Err()
}

// LoadDecodes reads and validates the decodes catalog's line shape but
// produces no model object. The dissector emits this catalog but the
// source never consumed it; preserving the read-and-discard loader without
// inventing semantics is the documented choice (see DESIGN.md).
func (l *Loader) LoadDecodes(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !strings.Contains(line, "\t") {
			l.warn("decodes", lineNo, line, "expected at least one tab-separated column")
		}
	}
	return scanner.Err()
}
