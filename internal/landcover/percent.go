package landcover

import (
	"encoding/json"
	"fmt"
)

// PercentKind says how a PercentChange was derived.
type PercentKind int

const (
	// PercentDefined is an ordinary 100*delta/start value.
	PercentDefined PercentKind = iota
	// PercentAppeared marks a zero start with a non-zero end.
	PercentAppeared
	// PercentAbsent marks a class missing from both years.
	PercentAbsent
)

// AppearedPercent is the value persisted for PercentAppeared.
const AppearedPercent = 100.0

func (k PercentKind) String() string {
	switch k {
	case PercentDefined:
		return "defined"
	case PercentAppeared:
		return "appeared"
	case PercentAbsent:
		return "absent"
	default:
		return fmt.Sprintf("PercentKind(%d)", int(k))
	}
}

func (k PercentKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PercentKind) UnmarshalText(b []byte) error {
	v, err := ParsePercentKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParsePercentKind is the inverse of PercentKind.String.
func ParsePercentKind(s string) (PercentKind, error) {
	switch s {
	case "defined":
		return PercentDefined, nil
	case "appeared":
		return PercentAppeared, nil
	case "absent":
		return PercentAbsent, nil
	}
	return 0, fmt.Errorf("unknown percent kind %q", s)
}

// PercentChange is a percentage delta whose base may be zero. A zero base is
// never divided; it is reported as PercentAppeared or PercentAbsent instead.
type PercentChange struct {
	Kind  PercentKind
	value float64
}

// NewPercentChange applies the zero-base policy to a start/end pair.
func NewPercentChange(start, end int) PercentChange {
	switch {
	case start > 0:
		return PercentChange{Kind: PercentDefined, value: 100 * float64(end-start) / float64(start)}
	case end > 0:
		return PercentChange{Kind: PercentAppeared}
	default:
		return PercentChange{Kind: PercentAbsent}
	}
}

// DefinedPercent wraps an already computed percentage.
func DefinedPercent(v float64) PercentChange {
	return PercentChange{Kind: PercentDefined, value: v}
}

// Float returns the persisted number: the ratio, 100 for appeared and 0 for
// absent.
func (p PercentChange) Float() float64 {
	switch p.Kind {
	case PercentDefined:
		return p.value
	case PercentAppeared:
		return AppearedPercent
	default:
		return 0
	}
}

// Abs returns |Float()|.
func (p PercentChange) Abs() float64 {
	v := p.Float()
	if v < 0 {
		return -v
	}
	return v
}

// WithKind returns p reinterpreted as kind k. Marker kinds drop the number.
func (p PercentChange) WithKind(k PercentKind) PercentChange {
	if k == PercentDefined {
		return DefinedPercent(p.Float())
	}
	return PercentChange{Kind: k}
}

func (p PercentChange) String() string {
	return fmt.Sprintf("%+.1f%%", p.Float())
}

// MarshalJSON encodes the change as its persisted number.
func (p PercentChange) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Float())
}

// UnmarshalJSON reads a persisted number back. The number alone cannot carry
// a marker kind, so the result is PercentDefined; documents restore the kind
// from the sibling "_kind" field via WithKind.
func (p *PercentChange) UnmarshalJSON(b []byte) error {
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*p = DefinedPercent(v)
	return nil
}
