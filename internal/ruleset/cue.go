package ruleset

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/ruler/internal/engine"
)

// CompileCUEString compiles CUE source holding rulesets under "ruleset":
//
//	ruleset: tea: {
//		statements: [
//			{fact: {name: "it_is_hot", value: true}},
//			{rule: {when: ["it_is_hot"], then: value: "Making tea"}},
//		]
//	}
func CompileCUEString(src, filename string) ([]*Definition, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	defs, err := CompileCUE(v)
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		def.Source = filename
	}
	return defs, nil
}

// CompileCUE extracts every ruleset declared under "ruleset" in v.
// The ruleset name is the field label; an explicit name field must agree.
func CompileCUE(v cue.Value) ([]*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rulesets := v.LookupPath(cue.ParsePath("ruleset"))
	if !rulesets.Exists() {
		return nil, &CompileError{Field: "ruleset", Message: "no ruleset declared", Pos: v.Pos()}
	}
	iter, err := rulesets.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []*Definition
	for iter.Next() {
		def, err := CompileDefinition(iter.Value())
		if err != nil {
			return nil, err
		}
		normalize(def)
		defs = append(defs, def)
	}
	return defs, nil
}

// CompileDefinition parses one ruleset struct, e.g. the value at ruleset.tea.
func CompileDefinition(v cue.Value) (*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &Definition{}
	if labels := v.Path().Selectors(); len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}
	if name, ok, err := optionalString(v, "name"); err != nil {
		return nil, err
	} else if ok {
		if def.Name != "" && name != def.Name {
			return nil, &CompileError{
				Field:   "name",
				Message: fmt.Sprintf("name %q does not match label %q", name, def.Name),
				Pos:     v.Pos(),
			}
		}
		def.Name = name
	}

	mode, _, err := optionalString(v, "mode")
	if err != nil {
		return nil, err
	}
	def.Mode = engine.Mode(mode)

	if def.Doc, _, err = optionalString(v, "doc"); err != nil {
		return nil, err
	}

	stmtsVal := v.LookupPath(cue.ParsePath("statements"))
	if !stmtsVal.Exists() {
		return nil, &CompileError{Field: "statements", Message: "statements are required", Pos: v.Pos()}
	}
	list, err := stmtsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; list.Next(); i++ {
		st, err := compileStatement(list.Value())
		if err != nil {
			return nil, fmt.Errorf("ruleset %q: statements[%d]: %w", def.Name, i, err)
		}
		def.Statements = append(def.Statements, st)
	}
	return def, nil
}

func compileStatement(v cue.Value) (Statement, error) {
	var st Statement
	var err error

	if f := v.LookupPath(cue.ParsePath(KindFact)); f.Exists() {
		st.Fact = &FactDecl{}
		if st.Fact.Name, err = requiredString(f, "name"); err != nil {
			return st, err
		}
		if bv := f.LookupPath(cue.ParsePath("value")); bv.Exists() {
			b, err := bv.Bool()
			if err != nil {
				return st, formatCUEError(err)
			}
			st.Fact.Value = &b
		}
		if st.Fact.Expr, _, err = optionalString(f, "expr"); err != nil {
			return st, err
		}
		if st.Fact.Not, _, err = optionalString(f, "not"); err != nil {
			return st, err
		}
	}

	if d := v.LookupPath(cue.ParsePath(KindDynamic)); d.Exists() {
		st.Dynamic = &DynamicDecl{}
		if st.Dynamic.Name, err = requiredString(d, "name"); err != nil {
			return st, err
		}
		if st.Dynamic.Probe, _, err = optionalString(d, "probe"); err != nil {
			return st, err
		}
		if st.Dynamic.Expr, _, err = optionalString(d, "expr"); err != nil {
			return st, err
		}
	}

	if r := v.LookupPath(cue.ParsePath(KindRule)); r.Exists() {
		st.Rule = &RuleDecl{}
		if st.Rule.When, err = stringList(r, "when"); err != nil {
			return st, err
		}
		if st.Rule.Doc, _, err = optionalString(r, "doc"); err != nil {
			return st, err
		}
		if st.Rule.Then, err = compileThen(r); err != nil {
			return st, err
		}
	}

	if d := v.LookupPath(cue.ParsePath(KindDefault)); d.Exists() {
		st.Default = &DefaultDecl{}
		if st.Default.Then, err = compileThen(d); err != nil {
			return st, err
		}
	}

	if st.Kind() == "" {
		return st, &CompileError{
			Field:   "statement",
			Message: "exactly one of fact, dynamic, rule or default is required",
			Pos:     v.Pos(),
		}
	}
	return st, nil
}

func compileThen(parent cue.Value) (Then, error) {
	var t Then
	v := parent.LookupPath(cue.ParsePath("then"))
	if !v.Exists() {
		return t, nil
	}
	var err error
	if t.Action, _, err = optionalString(v, "action"); err != nil {
		return t, err
	}
	if t.Ruleset, _, err = optionalString(v, "ruleset"); err != nil {
		return t, err
	}
	if val := v.LookupPath(cue.ParsePath("value")); val.Exists() {
		if t.Value, err = decodeValue(val); err != nil {
			return t, err
		}
	}
	return t, nil
}

// decodeValue converts a concrete CUE value to the same Go shapes yaml.v3
// produces, so a ruleset behaves identically in both formats.
func decodeValue(v cue.Value) (any, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		b, err := v.Bool()
		return b, formatCUEError(err)
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return int(n), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		return f, formatCUEError(err)
	case cue.StringKind:
		s, err := v.String()
		return s, formatCUEError(err)
	}
	var out any
	if err := v.Decode(&out); err != nil {
		return nil, formatCUEError(err)
	}
	return out, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	s, ok, err := optionalString(v, field)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	iter, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
