package ruleset

import "golang.org/x/text/unicode/norm"

// NormalizeName returns the NFC form of a fact or ruleset name.
func NormalizeName(name string) string {
	return norm.NFC.String(name)
}

// normalize rewrites every name in def to NFC, in place.
func normalize(def *Definition) {
	def.Name = NormalizeName(def.Name)
	for i := range def.Statements {
		st := &def.Statements[i]
		switch {
		case st.Fact != nil:
			st.Fact.Name = NormalizeName(st.Fact.Name)
			st.Fact.Not = NormalizeName(st.Fact.Not)
		case st.Dynamic != nil:
			st.Dynamic.Name = NormalizeName(st.Dynamic.Name)
		case st.Rule != nil:
			for j, w := range st.Rule.When {
				st.Rule.When[j] = NormalizeName(w)
			}
			st.Rule.Then.Ruleset = NormalizeName(st.Rule.Then.Ruleset)
		case st.Default != nil:
			st.Default.Then.Ruleset = NormalizeName(st.Default.Then.Ruleset)
		}
	}
}
