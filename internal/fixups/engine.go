package fixups

import (
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/5342/C5SIGMA/internal/xerrors"
)

// Engine holds the compiled built-in rules plus any rules loaded from an
// external file, and applies them in declared order to dissector node
// attributes.
type Engine struct {
	rules  []*rule
	logger *slog.Logger
}

// NewEngine returns an Engine seeded with the built-in rule set. Failure to
// decode the built-in rules is a programming error (the payload ships with
// the binary), so it panics rather than returning an error.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	builtins, errs := decodeBuiltinRules()
	for _, err := range errs {
		logger.Warn("fixups: built-in rule skipped", "error", err)
	}
	return &Engine{rules: builtins, logger: logger}
}

func decodeBuiltinRules() ([]*rule, []error) {
	if len(builtinRulesCompressed) < 4 {
		panic("fixups: built-in rule payload missing magic header")
	}
	var got [4]byte
	copy(got[:], builtinRulesCompressed[:4])
	if got != sigmMagic {
		panic(fmt.Sprintf("fixups: built-in rule payload has bad magic header %x", got))
	}

	fr := flate.NewReader(bytes.NewReader(builtinRulesCompressed[4:]))
	defer fr.Close()

	xmlData, err := io.ReadAll(fr)
	if err != nil {
		panic("fixups: failed to inflate built-in rule payload: " + err.Error())
	}
	return parseRuleFile(bytes.NewReader(xmlData))
}

// LoadFile augments the engine's rule set with rules parsed from an
// external fixups XML file. It returns the number of rules successfully
// added; malformed individual rules (bad regex) are logged and skipped
// rather than failing the whole file.
func (e *Engine) LoadFile(r io.Reader) (int, error) {
	rules, errs := parseRuleFile(r)
	for _, err := range errs {
		var decodeErr errDecodeXML
		if errors.As(err, &decodeErr) {
			return 0, xerrors.WrapInvalid(err, "fixups", "LoadFile", "parse rule file")
		}
		e.logger.Warn("fixups: external rule skipped", "error", err)
	}
	e.rules = append(e.rules, rules...)
	return len(rules), nil
}

// Apply runs every scoped rule against attrs in declared order: constant
// first, then prefix (short-circuiting on either hit), then every template
// rule in order (later matches overwrite earlier ones).
func (e *Engine) Apply(attrs *Attrs) {
	for _, r := range e.rules {
		if r.kind == kindConstant && r.apply(attrs) {
			return
		}
	}
	for _, r := range e.rules {
		if r.kind == kindPrefix && r.apply(attrs) {
			return
		}
	}
	for _, r := range e.rules {
		if r.kind == kindTemplate {
			r.apply(attrs)
		}
	}
}
