package ruleset

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainRuleset separates ruleset hashes from any other content hash.
const DomainRuleset = "ruler/ruleset/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content-addressed id of a definition.
//
// Two definitions hash equal when they have the same name, mode and
// statements. Doc strings of rules are part of the hash; the ruleset's own
// Doc and its Source are not.
func Hash(def *Definition) (string, error) {
	canonical, err := marshalCanonical(definitionObject(def))
	if err != nil {
		return "", fmt.Errorf("hash ruleset %q: %w", def.Name, err)
	}
	return hashWithDomain(DomainRuleset, canonical), nil
}

// definitionObject builds the generic form of def that is hashed.
// Empty optional fields are omitted so adding a field later keeps old hashes.
func definitionObject(def *Definition) map[string]any {
	mode := def.Mode
	if mode == "" {
		mode = "single"
	}
	stmts := make([]any, len(def.Statements))
	for i, st := range def.Statements {
		stmts[i] = statementObject(st)
	}
	return map[string]any{
		"name":       def.Name,
		"mode":       string(mode),
		"statements": stmts,
	}
}

func statementObject(st Statement) map[string]any {
	obj := map[string]any{}
	switch {
	case st.Fact != nil:
		f := map[string]any{"name": st.Fact.Name}
		if st.Fact.Value != nil {
			f["value"] = *st.Fact.Value
		}
		putNonEmpty(f, "expr", st.Fact.Expr)
		putNonEmpty(f, "not", st.Fact.Not)
		obj[KindFact] = f
	case st.Dynamic != nil:
		d := map[string]any{"name": st.Dynamic.Name}
		putNonEmpty(d, "probe", st.Dynamic.Probe)
		putNonEmpty(d, "expr", st.Dynamic.Expr)
		obj[KindDynamic] = d
	case st.Rule != nil:
		when := make([]any, len(st.Rule.When))
		for i, w := range st.Rule.When {
			when[i] = w
		}
		r := map[string]any{"when": when, "then": thenObject(st.Rule.Then)}
		putNonEmpty(r, "doc", st.Rule.Doc)
		obj[KindRule] = r
	case st.Default != nil:
		obj[KindDefault] = map[string]any{"then": thenObject(st.Default.Then)}
	}
	return obj
}

func thenObject(t Then) map[string]any {
	obj := map[string]any{}
	if t.Value != nil {
		obj["value"] = t.Value
	}
	putNonEmpty(obj, "action", t.Action)
	putNonEmpty(obj, "ruleset", t.Ruleset)
	return obj
}

func putNonEmpty(obj map[string]any, key, value string) {
	if value != "" {
		obj[key] = value
	}
}
