package ruleset

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/parser"

	"github.com/roach88/ruler/internal/engine"
)

// Validation error codes (E200-E299)
const (
	ErrNameRequired      = "E201" // ruleset name is required
	ErrInvalidMode       = "E202" // mode must be single or multi
	ErrInvalidStatement  = "E203" // statement must be exactly one kind
	ErrFactNameRequired  = "E204" // fact or dynamic name is required
	ErrInvalidFactSource = "E205" // fact needs exactly one of value, expr, not
	ErrInvalidDynamic    = "E206" // dynamic needs exactly one of probe, expr
	ErrUndeclaredFact    = "E207" // rule guard not declared earlier
	ErrDefaultInMulti    = "E208" // default rule in a multi ruleset
	ErrNotOfDynamic      = "E209" // not of a dynamic fact
	ErrNotOfUndeclared   = "E210" // not of a fact not declared earlier
	ErrInvalidThen       = "E211" // then sets more than one of value, action, ruleset
	ErrInvalidExpr       = "E212" // expression does not parse
	ErrUnknownRuleset    = "E213" // then.ruleset names no ruleset in the library
)

// ValidationError is one static problem found in a definition.
type ValidationError struct {
	Ruleset string `json:"ruleset,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Ruleset != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Ruleset, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate reports every static problem in def. It does not fail fast.
//
// Validation replays the declarations in order, so a rule may only reference
// facts declared by earlier statements, matching what evaluation requires.
// A clean result does not guarantee a successful run: probes, actions and
// expression values are only known at evaluation time.
func Validate(def *Definition) []ValidationError {
	v := &validator{def: def, declared: make(map[string]bool)}
	v.run()
	return v.errs
}

// ValidateLibrary validates every definition in lib and checks that nested
// ruleset references resolve.
func ValidateLibrary(lib *Library) []ValidationError {
	var errs []ValidationError
	for _, name := range lib.Names() {
		def, _ := lib.Get(name)
		errs = append(errs, Validate(def)...)
		for i, st := range def.Statements {
			for _, ref := range nestedRefs(st) {
				if _, ok := lib.Get(ref); !ok {
					errs = append(errs, ValidationError{
						Ruleset: def.Name,
						Field:   fmt.Sprintf("statements[%d].then.ruleset", i),
						Message: fmt.Sprintf("unknown ruleset %q", ref),
						Code:    ErrUnknownRuleset,
					})
				}
			}
		}
	}
	return errs
}

func nestedRefs(st Statement) []string {
	var refs []string
	if st.Rule != nil && st.Rule.Then.Ruleset != "" {
		refs = append(refs, st.Rule.Then.Ruleset)
	}
	if st.Default != nil && st.Default.Then.Ruleset != "" {
		refs = append(refs, st.Default.Then.Ruleset)
	}
	return refs
}

type validator struct {
	def      *Definition
	declared map[string]bool // name -> dynamic
	errs     []ValidationError
}

func (v *validator) add(field, code, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{
		Ruleset: v.def.Name,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (v *validator) run() {
	if strings.TrimSpace(v.def.Name) == "" {
		v.add("name", ErrNameRequired, "name is required and must be non-empty")
	}
	mode, err := engine.ParseMode(string(v.def.Mode))
	if err != nil {
		v.add("mode", ErrInvalidMode, "%v", err)
	}

	for i, st := range v.def.Statements {
		field := fmt.Sprintf("statements[%d]", i)
		switch st.Kind() {
		case KindFact:
			v.fact(field+".fact", st.Fact)
		case KindDynamic:
			v.dynamic(field+".dynamic", st.Dynamic)
		case KindRule:
			v.rule(field+".rule", st.Rule)
		case KindDefault:
			if err == nil && !mode.Singletary() {
				v.add(field+".default", ErrDefaultInMulti, "default rule is not allowed in a multi ruleset")
			}
			v.then(field+".default.then", st.Default.Then)
		default:
			v.add(field, ErrInvalidStatement, "exactly one of fact, dynamic, rule or default is required")
		}
	}
}

func (v *validator) fact(field string, f *FactDecl) {
	if strings.TrimSpace(f.Name) == "" {
		v.add(field+".name", ErrFactNameRequired, "name is required")
	}

	sources := 0
	if f.Value != nil {
		sources++
	}
	if f.Expr != "" {
		sources++
		v.expr(field+".expr", f.Expr)
	}
	if f.Not != "" {
		sources++
		dynamic, ok := v.declared[f.Not]
		switch {
		case !ok:
			v.add(field+".not", ErrNotOfUndeclared, "fact %q is not declared before this statement", f.Not)
		case dynamic:
			v.add(field+".not", ErrNotOfDynamic, "cannot negate dynamic fact %q", f.Not)
		}
	}
	if sources != 1 {
		v.add(field, ErrInvalidFactSource, "exactly one of value, expr or not is required")
	}
	v.declared[f.Name] = false
}

func (v *validator) dynamic(field string, d *DynamicDecl) {
	if strings.TrimSpace(d.Name) == "" {
		v.add(field+".name", ErrFactNameRequired, "name is required")
	}
	if (d.Probe == "") == (d.Expr == "") {
		v.add(field, ErrInvalidDynamic, "exactly one of probe or expr is required")
	}
	if d.Expr != "" {
		v.expr(field+".expr", d.Expr)
	}
	v.declared[d.Name] = true
}

func (v *validator) rule(field string, r *RuleDecl) {
	for j, name := range r.When {
		if _, ok := v.declared[name]; !ok {
			v.add(fmt.Sprintf("%s.when[%d]", field, j), ErrUndeclaredFact,
				"fact %q is not declared before this rule", name)
		}
	}
	v.then(field+".then", r.Then)
}

func (v *validator) then(field string, t Then) {
	set := 0
	if t.Value != nil {
		set++
	}
	if t.Action != "" {
		set++
	}
	if t.Ruleset != "" {
		set++
	}
	if set > 1 {
		v.add(field, ErrInvalidThen, "at most one of value, action or ruleset may be set")
	}
}

func (v *validator) expr(field, expr string) {
	if _, err := parser.ParseExpr(field, expr); err != nil {
		v.add(field, ErrInvalidExpr, "invalid expression: %v", err)
	}
}
