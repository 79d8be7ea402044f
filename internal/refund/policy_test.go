package refund

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

var start = time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)

func TestEvaluate_CustomerTiers(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name      string
		hoursLeft float64
		pct       int
		canCancel bool
	}{
		{"30h notice", 30, 100, true},
		{"exactly 24h", 24, 100, true},
		{"10h notice", 10, 50, true},
		{"exactly 4h", 4, 50, true},
		{"3h notice", 3, 0, true},
		{"already started", 0, 0, false},
		{"after start", -2, 0, false},
	}
	for _, tt := range tests {
		now := start.Add(-time.Duration(tt.hoursLeft * float64(time.Hour)))
		d := p.Evaluate(start, now, model.RoleCustomer)
		assert.Equal(t, tt.canCancel, d.CanCancel, tt.name)
		assert.Equal(t, tt.pct, d.RefundPercentage, tt.name)
		assert.InDelta(t, tt.hoursLeft, d.HoursLeft, 1e-9, tt.name)
	}
}

func TestEvaluate_StaffBypass(t *testing.T) {
	p := DefaultPolicy()
	for _, role := range []model.Role{model.RoleStaff, model.RoleAdmin, model.RoleSystem} {
		d := p.Evaluate(start, start.Add(time.Hour), role)
		assert.True(t, d.CanCancel, role)
		assert.Equal(t, 100, d.RefundPercentage, role)
	}
}

func TestEvaluate_MonotonicInNotice(t *testing.T) {
	p := DefaultPolicy()
	prev := -1
	for minutes := 1; minutes <= 72*60; minutes += 7 {
		d := p.Evaluate(start, start.Add(-time.Duration(minutes)*time.Minute), model.RoleCustomer)
		require.GreaterOrEqual(t, d.RefundPercentage, prev, "notice %d min", minutes)
		prev = d.RefundPercentage
	}
}

func TestCheck_WindowClosed(t *testing.T) {
	_, err := DefaultPolicy().Check(start, start.Add(30*time.Minute), model.RoleCustomer)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrCancellationWindowClosed))

	var pve *apperr.PolicyViolationError
	require.True(t, errors.As(err, &pve))
	assert.InDelta(t, -0.5, pve.HoursLeft, 1e-9)
}

func TestCheck_TechnicianForbidden(t *testing.T) {
	_, err := DefaultPolicy().Check(start, start.Add(-48*time.Hour), model.RoleTechnician)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
}

func TestParseTiers(t *testing.T) {
	p, err := ParseTiers(" 4:50, 48:100 ,0:10")
	require.NoError(t, err)
	assert.Equal(t, "48:100,4:50,0:10", p.String())

	bad := []string{"", "24", "24:abc", "24:50,4:80", "24:120", "-1:0", "4:50,4:40"}
	for _, raw := range bad {
		_, err := ParseTiers(raw)
		assert.ErrorIs(t, err, ErrInvalidPolicy, raw)
	}
}

func TestAmount(t *testing.T) {
	assert.Equal(t, int64(0), Amount(10000, 0))
	assert.Equal(t, int64(5000), Amount(10000, 50))
	assert.Equal(t, int64(10000), Amount(10000, 100))
	assert.Equal(t, int64(168), Amount(335, 50))
	assert.Equal(t, int64(0), Amount(0, 100))
}
