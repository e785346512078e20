package orders

import (
	"fmt"
	"strings"

	"github.com/ariefcatur/go-order-inventory/internal/domain"
)

// Policy decides what happens when a requested unit is out of stock while a
// line is being assembled.
type Policy string

const (
	// PolicyAllOrNothing fails the whole operation; the transaction rolls
	// back and stock is left exactly as it was.
	PolicyAllOrNothing Policy = "all_or_nothing"

	// PolicyBestEffort skips the unavailable unit and keeps going.
	PolicyBestEffort Policy = "best_effort"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAllOrNothing:
		return PolicyAllOrNothing, nil
	case PolicyBestEffort:
		return PolicyBestEffort, nil
	}
	return "", fmt.Errorf("unknown reservation policy %q: %w", s, domain.ErrInvalidArgument)
}
