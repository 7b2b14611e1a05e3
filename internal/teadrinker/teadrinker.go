// Package teadrinker is a small host of the rule engine: it decides whether
// to make iced tea or drink the tea already made.
package teadrinker

import (
	"context"
	"fmt"
	"io"

	"github.com/roach88/ruler/internal/engine"
)

// HotThreshold is the outside temperature, in Fahrenheit, at which it is hot.
const HotThreshold = 100.0

// TeaDrinker holds its own engine. With debug on, every rule is traced to
// the same writer the drinker talks to.
type TeaDrinker struct {
	engine *engine.Engine
	out    io.Writer

	// IcedTeaMade reports whether a pitcher is already in the fridge.
	IcedTeaMade bool
}

// New creates a drinker writing to out. Extra options configure its engine.
func New(out io.Writer, debug bool, opts ...engine.EngineOption) *TeaDrinker {
	if debug {
		opts = append([]engine.EngineOption{engine.WithTracer(engine.NewTextTracer(out))}, opts...)
	}
	return &TeaDrinker{
		engine:      engine.New(opts...),
		out:         out,
		IcedTeaMade: true,
	}
}

func (d *TeaDrinker) makeIcedTea() (any, error) {
	fmt.Fprintln(d.out, "Making tea")
	return "Making tea", nil
}

func (d *TeaDrinker) drinkIcedTea() (any, error) {
	fmt.Fprintln(d.out, "Ahhhhhhh")
	return "Ahhhhhhh", nil
}

// Thirsty is always true.
func (d *TeaDrinker) Thirsty() bool { return true }

// TeaCheck runs the tea ruleset for the given outside temperature.
// It returns what the drinker did, or nil if it is not hot enough.
func (d *TeaDrinker) TeaCheck(ctx context.Context, outsideTemp float64) (any, error) {
	return d.engine.Ruleset(ctx, func(ctx context.Context, s *engine.Scope) error {
		if err := s.FactFunc("it_is_hot", func() (bool, error) {
			return outsideTemp >= HotThreshold, nil
		}); err != nil {
			return err
		}
		if err := s.Fact("iced_tea_made", d.IcedTeaMade); err != nil {
			return err
		}
		noTea, err := s.Not("iced_tea_made")
		if err != nil {
			return err
		}
		if err := s.Fact("no_iced_tea", noTea); err != nil {
			return err
		}
		if err := s.Fact("am_thirsty", d.Thirsty()); err != nil {
			return err
		}

		if _, err := s.Rule([]string{"it_is_hot", "am_thirsty", "no_iced_tea"}, "", d.makeIcedTea); err != nil {
			return err
		}
		_, err = s.Rule([]string{"it_is_hot", "am_thirsty", "iced_tea_made"}, "", d.drinkIcedTea)
		return err
	}, engine.WithName("tea_check"))
}
