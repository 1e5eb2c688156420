package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Unit identifies a housing unit ("casa"). Valid units are 1..TOTAL_UNITS.
type Unit int

// AllUnits is the unit filter meaning "no filter".
const AllUnits Unit = 0

func (u Unit) String() string { return strconv.Itoa(int(u)) }

// ParseUnit normalises the textual form used by forms and query strings.
// Range checking is left to UnitRegistry.
func ParseUnit(s string) (Unit, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, Invalid("unit", "must not be empty")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, Invalid("unit", "%q is not a number", s)
	}
	if n < 1 {
		return 0, ErrInvalidUnit
	}
	return Unit(n), nil
}

// UnitRegistry is the fixed, ordered set of units of the community.
type UnitRegistry struct {
	total int
}

func NewUnitRegistry(total int) (UnitRegistry, error) {
	if total < 1 {
		return UnitRegistry{}, fmt.Errorf("total units must be positive, got %d", total)
	}
	return UnitRegistry{total: total}, nil
}

func (r UnitRegistry) Total() int { return r.total }

// Units returns 1..Total in ascending order.
func (r UnitRegistry) Units() []Unit {
	units := make([]Unit, r.total)
	for i := range units {
		units[i] = Unit(i + 1)
	}
	return units
}

func (r UnitRegistry) IsValid(u Unit) bool {
	return u >= 1 && int(u) <= r.total
}

// Check returns ErrInvalidUnit unless u belongs to the registry.
func (r UnitRegistry) Check(u Unit) error {
	if !r.IsValid(u) {
		return Invalid("unit", "%d is outside 1..%d", u, r.total)
	}
	return nil
}

// CheckFilter accepts AllUnits as well as any valid unit.
func (r UnitRegistry) CheckFilter(u Unit) error {
	if u == AllUnits {
		return nil
	}
	return r.Check(u)
}
