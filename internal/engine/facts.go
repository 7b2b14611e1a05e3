package engine

// FactFunc computes the truth value of a fact.
// An error marks the fact as bad and aborts the evaluation.
type FactFunc func() (bool, error)

// factRecord is one entry of working memory: either a static value fixed at
// declaration or a dynamic recompute function invoked on every reference.
type factRecord struct {
	value     bool
	recompute FactFunc // non-nil for dynamic facts
}

func (r factRecord) dynamic() bool {
	return r.recompute != nil
}

// Fact declares a static fact with a literal value.
// Re-declaring a name replaces the previous record.
func (s *Scope) Fact(name string, value bool) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.memory[name] = factRecord{value: value}
	return nil
}

// FactFunc declares a static fact whose value is computed once, now.
// If fn fails, the failure is wrapped in a bad fact error and nothing is stored.
func (s *Scope) FactFunc(name string, fn FactFunc) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	value, err := fn()
	if err != nil {
		return s.fail(NewBadFactError(s.id, name, err))
	}
	s.memory[name] = factRecord{value: value}
	return nil
}

// DynamicFact declares a fact recomputed every time a rule guard references it.
// fn is not invoked at declaration and results are never cached.
func (s *Scope) DynamicFact(name string, fn FactFunc) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.memory[name] = factRecord{recompute: fn}
	return nil
}

// Not returns the negation of a static fact, for use as the value of
// another fact:
//
//	notMade, err := s.Not("iced_tea_made")
//	s.Fact("no_iced_tea", notMade)
//
// Negating a dynamic fact is a bad not call. Negating an undeclared fact is
// an unknown fact error.
func (s *Scope) Not(name string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	rec, err := s.lookup(name)
	if err != nil {
		return false, err
	}
	if rec.dynamic() {
		return false, s.fail(NewBadNotCallError(s.id, name))
	}
	return !rec.value, nil
}

// lookup finds a fact record in this scope's working memory only.
func (s *Scope) lookup(name string) (factRecord, error) {
	rec, ok := s.memory[name]
	if !ok {
		return factRecord{}, s.fail(NewUnknownFactError(s.id, name))
	}
	return rec, nil
}

// resolve returns the truth value of a fact, invoking dynamic facts.
func (s *Scope) resolve(name string) (bool, error) {
	rec, err := s.lookup(name)
	if err != nil {
		return false, err
	}
	if !rec.dynamic() {
		return rec.value, nil
	}
	value, err := rec.recompute()
	if err != nil {
		return false, s.fail(NewBadFactError(s.id, name, err))
	}
	return value, nil
}

// Resolve returns the current truth value of a fact.
// Dynamic facts are recomputed on every call.
func (s *Scope) Resolve(name string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	return s.resolve(name)
}
