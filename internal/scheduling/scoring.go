// Package scheduling decides which technician can take an appointment:
// conflict detection, shift availability and weighted scoring.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

// Weights of the score components. They sum to 1.
type Weights struct {
	Skill        float64
	Workload     float64
	Performance  float64
	Availability float64
}

var DefaultWeights = Weights{Skill: 0.4, Workload: 0.3, Performance: 0.2, Availability: 0.1}

// Breakdown is a technician score with its components, each on a 0..100 scale.
type Breakdown struct {
	Skill        float64
	Workload     float64
	Performance  float64
	Availability float64
	Total        float64
}

// Score rates tech for work in the given service categories.
func Score(tech *model.TechnicianProfile, categories []string, w Weights) Breakdown {
	b := Breakdown{
		Skill:        skillScore(tech.Skills, categories),
		Workload:     100 - tech.WorkloadPercentage(),
		Performance:  (clamp(tech.Efficiency, 0, 100) + clamp(tech.CustomerRating, 0, 5)*20) / 2,
		Availability: 50,
	}
	if tech.AvailabilityStatus == model.AvailabilityAvailable {
		b.Availability = 100
	}
	b.Total = w.Skill*b.Skill +
		w.Workload*b.Workload +
		w.Performance*b.Performance +
		w.Availability*b.Availability
	return b
}

// skillScore averages proficiency/5*100 over the skills matching categories.
func skillScore(skills []model.TechnicianSkill, categories []string) float64 {
	if len(categories) == 0 {
		return 0
	}
	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}

	var sum float64
	var n int
	for _, s := range skills {
		if _, ok := wanted[s.ServiceCategory]; !ok {
			continue
		}
		sum += clamp(float64(s.ProficiencyLevel), 0, 5) / 5 * 100
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Candidate is an eligible technician with its score.
type Candidate struct {
	Technician model.TechnicianProfile
	Score      Breakdown
}

// Request describes the job a technician is searched for.
type Request struct {
	Start      time.Time
	Duration   time.Duration
	Categories []string
	// Appointment being (re)assigned; its own commitment is ignored.
	AppointmentID uuid.UUID
}

func (r Request) end() time.Time {
	d := r.Duration
	if d <= 0 {
		d = DefaultJobLength
	}
	return r.Start.Add(d)
}

// Engine ranks and selects technicians.
type Engine struct {
	detector        *ConflictDetector
	weights         Weights
	enforceWorkload bool
}

func NewEngine(detector *ConflictDetector, enforceWorkload bool) *Engine {
	return &Engine{detector: detector, weights: DefaultWeights, enforceWorkload: enforceWorkload}
}

// CheckEligible verifies one technician for req. It returns an error wrapping
// apperr.ErrTechnicianUnavailable when the shift, status or workload rule
// fails and apperr.ErrTechnicianConflict when the window is already taken.
func (e *Engine) CheckEligible(ctx context.Context, tech *model.TechnicianProfile, req Request) error {
	if ok, reason := IsAvailableForAppointment(tech, req.Start, req.end().Sub(req.Start), e.enforceWorkload); !ok {
		return fmt.Errorf("%s: %w", reason, &apperr.ResourceUnavailableError{
			Resource:  "technician",
			ID:        tech.ID.String(),
			Remaining: max(tech.WorkloadCapacity-tech.WorkloadCurrent, 0),
			Err:       apperr.ErrTechnicianUnavailable,
		})
	}

	conflict, err := e.detector.HasConflict(ctx, tech.ID, req.Start, req.end(), req.AppointmentID)
	if err != nil {
		return err
	}
	if conflict {
		return fmt.Errorf("technician %s: %w", tech.ID, apperr.ErrTechnicianConflict)
	}
	return nil
}

// Rank returns the eligible technicians ordered by score, then rating, then ID.
func (e *Engine) Rank(ctx context.Context, techs []model.TechnicianProfile, req Request) ([]Candidate, error) {
	out := make([]Candidate, 0, len(techs))
	for i := range techs {
		tech := &techs[i]
		if err := e.CheckEligible(ctx, tech, req); err != nil {
			if isIneligible(err) {
				continue
			}
			return nil, err
		}
		out = append(out, Candidate{Technician: *tech, Score: Score(tech, req.Categories, e.weights)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score.Total != b.Score.Total {
			return a.Score.Total > b.Score.Total
		}
		if a.Technician.CustomerRating != b.Technician.CustomerRating {
			return a.Technician.CustomerRating > b.Technician.CustomerRating
		}
		return a.Technician.ID.String() < b.Technician.ID.String()
	})
	return out, nil
}

// Select returns the best eligible technician or apperr.ErrNoEligibleTechnician.
func (e *Engine) Select(ctx context.Context, techs []model.TechnicianProfile, req Request) (*Candidate, error) {
	ranked, err := e.Rank(ctx, techs, req)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, apperr.ErrNoEligibleTechnician
	}
	return &ranked[0], nil
}

func isIneligible(err error) bool {
	return errors.Is(err, apperr.ErrTechnicianUnavailable) || errors.Is(err, apperr.ErrTechnicianConflict)
}
