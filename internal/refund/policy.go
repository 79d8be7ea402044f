// Package refund computes cancellation refunds from the time left before an
// appointment starts.
package refund

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

// DefaultTiers is the policy used when none is configured.
const DefaultTiers = "24:100,4:50,0:0"

var ErrInvalidPolicy = errors.New("invalid refund policy")

// Tier grants Percentage when at least MinHours are left before the start.
type Tier struct {
	MinHours   float64
	Percentage int
}

// Policy is an ordered list of tiers, longest notice first.
type Policy struct {
	Tiers []Tier
}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	p, _ := ParseTiers(DefaultTiers)
	return p
}

// ParseTiers reads "hours:percent" pairs separated by commas,
// e.g. "24:100,4:50,0:0". The result is sorted and validated.
func ParseTiers(raw string) (Policy, error) {
	var p Policy
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hoursRaw, pctRaw, ok := strings.Cut(part, ":")
		if !ok {
			return Policy{}, fmt.Errorf("%w: tier %q is not hours:percent", ErrInvalidPolicy, part)
		}
		hours, err := strconv.ParseFloat(strings.TrimSpace(hoursRaw), 64)
		if err != nil {
			return Policy{}, fmt.Errorf("%w: tier %q: %v", ErrInvalidPolicy, part, err)
		}
		pct, err := strconv.Atoi(strings.TrimSpace(pctRaw))
		if err != nil {
			return Policy{}, fmt.Errorf("%w: tier %q: %v", ErrInvalidPolicy, part, err)
		}
		p.Tiers = append(p.Tiers, Tier{MinHours: hours, Percentage: pct})
	}

	sort.SliceStable(p.Tiers, func(i, j int) bool { return p.Tiers[i].MinHours > p.Tiers[j].MinHours })
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate requires at least one tier, distinct non-negative thresholds in
// descending order, and percentages in 0..100 that never grow as notice
// shrinks.
func (p Policy) Validate() error {
	if len(p.Tiers) == 0 {
		return fmt.Errorf("%w: no tiers", ErrInvalidPolicy)
	}
	for i, t := range p.Tiers {
		if t.MinHours < 0 {
			return fmt.Errorf("%w: negative threshold %v", ErrInvalidPolicy, t.MinHours)
		}
		if t.Percentage < 0 || t.Percentage > 100 {
			return fmt.Errorf("%w: percentage %d out of range", ErrInvalidPolicy, t.Percentage)
		}
		if i == 0 {
			continue
		}
		prev := p.Tiers[i-1]
		if t.MinHours >= prev.MinHours {
			return fmt.Errorf("%w: thresholds must be distinct and descending", ErrInvalidPolicy)
		}
		if t.Percentage > prev.Percentage {
			return fmt.Errorf("%w: %vh grants more than %vh", ErrInvalidPolicy, t.MinHours, prev.MinHours)
		}
	}
	return nil
}

func (p Policy) String() string {
	parts := make([]string, 0, len(p.Tiers))
	for _, t := range p.Tiers {
		parts = append(parts, strconv.FormatFloat(t.MinHours, 'f', -1, 64)+":"+strconv.Itoa(t.Percentage))
	}
	return strings.Join(parts, ",")
}

// Decision is the outcome of a cancellation check.
type Decision struct {
	CanCancel        bool
	Reason           string
	RefundPercentage int
	HoursLeft        float64
}

// Evaluate decides whether role may cancel an appointment starting at
// scheduledStart and which share of the payment is refunded.
// Staff, admin and system bypass the tiers with a full refund.
func (p Policy) Evaluate(scheduledStart, now time.Time, role model.Role) Decision {
	hoursLeft := scheduledStart.Sub(now).Hours()

	switch {
	case role.IsStaffSide():
		return Decision{CanCancel: true, Reason: "cancelled by service center", RefundPercentage: 100, HoursLeft: hoursLeft}
	case role != model.RoleCustomer:
		return Decision{Reason: "role cannot cancel appointments", HoursLeft: hoursLeft}
	case hoursLeft <= 0:
		return Decision{Reason: "appointment has already started", HoursLeft: hoursLeft}
	}

	for _, t := range p.Tiers {
		if hoursLeft >= t.MinHours {
			return Decision{
				CanCancel:        true,
				Reason:           fmt.Sprintf("cancelled with at least %vh notice", t.MinHours),
				RefundPercentage: t.Percentage,
				HoursLeft:        hoursLeft,
			}
		}
	}
	return Decision{CanCancel: true, Reason: "cancelled with short notice", HoursLeft: hoursLeft}
}

// Check is Evaluate returning a *apperr.PolicyViolationError when the
// cancellation is refused.
func (p Policy) Check(scheduledStart, now time.Time, role model.Role) (Decision, error) {
	d := p.Evaluate(scheduledStart, now, role)
	if d.CanCancel {
		return d, nil
	}

	verr := &apperr.PolicyViolationError{
		Policy:    "cancellation",
		HoursLeft: d.HoursLeft,
		Err:       apperr.ErrCancellationWindowClosed,
	}
	if role != model.RoleCustomer {
		verr.RequiredRole = string(model.RoleCustomer)
		verr.Err = apperr.ErrForbidden
	} else {
		verr.RequiredRole = string(model.RoleStaff)
	}
	return d, verr
}

// Amount is round(total * pct / 100) in minor currency units.
func Amount(total int64, pct int) int64 {
	if total <= 0 || pct <= 0 {
		return 0
	}
	if pct >= 100 {
		return total
	}
	return int64(math.Round(float64(total) * float64(pct) / 100))
}
