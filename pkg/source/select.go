package source

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrUnknownSelector is returned by ParseSelector for names outside the
// selector catalog.
var ErrUnknownSelector = errors.New("unknown selector")

// Selector picks which sources are visible.
type Selector int

const (
	All Selector = iota
	None
	Left  // negative x
	Right // positive x
	Inside
	Outside
)

var selectorNames = [...]string{
	All:     "all",
	None:    "none",
	Left:    "left",
	Right:   "right",
	Inside:  "inside",
	Outside: "outside",
}

func (s Selector) String() string {
	if s < 0 || int(s) >= len(selectorNames) {
		return "unknown"
	}
	return selectorNames[s]
}

// ParseSelector maps a selector name (case-insensitive, optional leading
// colon) to its Selector.
func ParseSelector(name string) (Selector, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ":"))
	for i, n := range selectorNames {
		if n == key {
			return Selector(i), nil
		}
	}
	return All, errors.Wrapf(ErrUnknownSelector, "%q", name)
}

// Selectors returns the selector catalog in declaration order.
func Selectors() []Selector {
	return []Selector{All, None, Left, Right, Inside, Outside}
}

// Oracle answers point-in-mesh queries for the Inside and Outside selectors.
type Oracle interface {
	IsInside(p r3.Vec, contribute bool) bool
}

// ProgressFunc receives the number of processed items out of total.
type ProgressFunc func(done, total int)

// Select replaces the visibility mask according to sel. Sources with
// non-finite values stay hidden whatever the selector. Inside and Outside
// need an oracle and report progress after every point; the mask is only
// written once every point has been classified, so a cancelled context
// leaves the set unchanged.
func (s *Set) Select(ctx context.Context, sel Selector, oracle Oracle, progress ProgressFunc) error {
	hidden := make([]bool, len(s.xyz))
	switch sel {
	case All:
	case None:
		for i := range hidden {
			hidden[i] = true
		}
	case Left:
		for i, p := range s.xyz {
			hidden[i] = p.X >= 0
		}
	case Right:
		for i, p := range s.xyz {
			hidden[i] = p.X <= 0
		}
	case Inside, Outside:
		if oracle == nil {
			return errors.Errorf("selector %s needs a containment oracle", sel)
		}
		for i, p := range s.xyz {
			if err := ctx.Err(); err != nil {
				return err
			}
			in := oracle.IsInside(p, true)
			hidden[i] = in != (sel == Inside)
			if progress != nil {
				progress(i+1, len(s.xyz))
			}
		}
	default:
		return errors.Wrapf(ErrUnknownSelector, "selector %d", int(sel))
	}

	for i, v := range s.data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			hidden[i] = true
		}
	}
	s.hidden = hidden
	return nil
}
