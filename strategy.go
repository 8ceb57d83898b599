package doc

import (
	"fmt"
	"strings"
)

// StrategyKind enumerates the reduction strategies.
type StrategyKind uint8

const (
	LastWriteWins StrategyKind = iota
	FirstWriteWins
	Append
	JSONSchemaMerge
	Maximize
	Merge
	Minimize
	Set
	Sum
)

func (k StrategyKind) String() string {
	switch k {
	case LastWriteWins:
		return "lastWriteWins"
	case FirstWriteWins:
		return "firstWriteWins"
	case Append:
		return "append"
	case JSONSchemaMerge:
		return "jsonSchemaMerge"
	case Maximize:
		return "maximize"
	case Merge:
		return "merge"
	case Minimize:
		return "minimize"
	case Set:
		return "set"
	case Sum:
		return "sum"
	default:
		return "invalid"
	}
}

// Strategy is one parsed "reduce" annotation.
type Strategy struct {
	Kind StrategyKind
	// Key orders array items of merge, maximize and minimize, and set
	// entries held in arrays. Empty means whole-value comparison for
	// maximize and minimize, and index-wise merging for merge and set.
	Key []Pointer
	// Delete marks a lastWriteWins reduction whose result is a deletion
	// when reduced fully.
	Delete bool
	// Associative is set unless the annotation declared itself
	// position-dependent with "associative": false.
	Associative bool
}

var defaultStrategy = &Strategy{Kind: LastWriteWins, Associative: true}

func parseStrategy(v any) (*Strategy, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("reduce annotation must be an object, not %T", v)
	}
	s := &Strategy{Associative: true}
	for _, name := range sortedKeys(obj) {
		val := obj[name]
		switch name {
		case "strategy":
			str, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("reduce strategy must be a string")
			}
			kind, err := parseStrategyKind(str)
			if err != nil {
				return nil, err
			}
			s.Kind = kind
		case "key":
			items, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("reduce key must be an array of pointers")
			}
			for _, item := range items {
				ptr, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("reduce key must be an array of pointers")
				}
				s.Key = append(s.Key, ParsePointer(ptr))
			}
		case "delete":
			b, ok := val.(bool)
			if !ok {
				return nil, fmt.Errorf("reduce delete must be a boolean")
			}
			s.Delete = b
		case "associative":
			b, ok := val.(bool)
			if !ok {
				return nil, fmt.Errorf("reduce associative must be a boolean")
			}
			s.Associative = b
		default:
			return nil, fmt.Errorf("unknown reduce annotation property %q", name)
		}
	}
	if _, ok := obj["strategy"]; !ok {
		return nil, fmt.Errorf("reduce annotation is missing a strategy")
	}
	return s, nil
}

func parseStrategyKind(s string) (StrategyKind, error) {
	for k := LastWriteWins; k <= Sum; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("invalid reduce strategy %q", s)
}

func (s *Strategy) String() string {
	var b strings.Builder
	b.WriteString(s.Kind.String())
	if len(s.Key) > 0 {
		b.WriteString("(key:")
		for i, p := range s.Key {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(p.String())
		}
		b.WriteByte(')')
	}
	if s.Delete {
		b.WriteString("(delete)")
	}
	if !s.Associative {
		b.WriteString("(non-associative)")
	}
	return b.String()
}

func (s *Strategy) equal(o *Strategy) bool {
	if s.Kind != o.Kind || s.Delete != o.Delete || s.Associative != o.Associative || len(s.Key) != len(o.Key) {
		return false
	}
	for i := range s.Key {
		if s.Key[i].String() != o.Key[i].String() {
			return false
		}
	}
	return true
}

// less is the deterministic strategy order used to sort reduction tapes.
func (s *Strategy) less(o *Strategy) bool {
	return s.String() < o.String()
}
