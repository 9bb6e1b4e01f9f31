package lfg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultMaxCapacity is also the upper bound: 40 mentions of 20-digit IDs,
// one per line, stay under the 1024-character embed field limit.
const DefaultMaxCapacity = 40

var ErrInvalidSlots = errors.New("slot expression must look like open/total")

// Slots is a parsed "open/total" expression. Total becomes the session
// capacity. Open is validated but the live open count is always derived
// from the session itself.
type Slots struct {
	Open  int
	Total int
}

func ParseSlots(expr string, maxCapacity int) (Slots, error) {
	if maxCapacity <= 0 || maxCapacity > DefaultMaxCapacity {
		maxCapacity = DefaultMaxCapacity
	}
	left, right, ok := strings.Cut(strings.TrimSpace(expr), "/")
	if !ok {
		return Slots{}, fmt.Errorf("%w: %q", ErrInvalidSlots, expr)
	}
	open, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return Slots{}, fmt.Errorf("%w: open slots %q", ErrInvalidSlots, left)
	}
	total, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return Slots{}, fmt.Errorf("%w: total slots %q", ErrInvalidSlots, right)
	}
	if total < 1 || total > maxCapacity {
		return Slots{}, fmt.Errorf("%w: total must be between 1 and %d", ErrInvalidSlots, maxCapacity)
	}
	if open < 0 || open > total {
		return Slots{}, fmt.Errorf("%w: open must be between 0 and %d", ErrInvalidSlots, total)
	}
	return Slots{Open: open, Total: total}, nil
}
