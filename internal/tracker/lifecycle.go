package tracker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"streakline/internal/dates"
	"streakline/internal/domain"
)

var validate = validator.New()

type CreateInput struct {
	Name         string `validate:"required"`
	DurationDays int    `validate:"gt=0"`
	Description  string
}

type CreateResult struct {
	Challenges []domain.Challenge
	Challenge  domain.Challenge
}

// Create appends a new active challenge starting today.
func Create(records []domain.Challenge, in CreateInput, today string) (CreateResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return CreateResult{}, invalidInput(err)
	}
	end, err := dates.AddDays(today, in.DurationDays-1)
	if err != nil {
		return CreateResult{}, err
	}
	c := domain.Challenge{
		ID:           domain.NextID(records),
		Name:         in.Name,
		Description:  in.Description,
		DurationDays: in.DurationDays,
		StartDate:    today,
		EndDate:      end,
		Status:       domain.StatusActive,
		ProgressLog:  []domain.ProgressEntry{},
	}
	out := append(domain.CloneAll(records), c)
	return CreateResult{Challenges: out, Challenge: c.Clone()}, nil
}

// Delete removes exactly one challenge and keeps the others in order.
func Delete(records []domain.Challenge, id int) ([]domain.Challenge, domain.Challenge, error) {
	idx := domain.IndexOf(records, id)
	if idx < 0 {
		return nil, domain.Challenge{}, notFound(id)
	}
	out := make([]domain.Challenge, 0, len(records)-1)
	for i, c := range records {
		if i != idx {
			out = append(out, c.Clone())
		}
	}
	return out, records[idx].Clone(), nil
}

// SetStatus overwrites a challenge's status. Any of the three values may
// follow any other.
func SetStatus(records []domain.Challenge, id int, status domain.Status) ([]domain.Challenge, domain.Challenge, error) {
	if !status.Valid() {
		return nil, domain.Challenge{}, fmt.Errorf("%w: status %q", domain.ErrInvalidInput, status)
	}
	idx := domain.IndexOf(records, id)
	if idx < 0 {
		return nil, domain.Challenge{}, notFound(id)
	}
	out := domain.CloneAll(records)
	out[idx].Status = status
	return out, out[idx].Clone(), nil
}

func invalidInput(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "Name":
			msgs = append(msgs, "name is required")
		case "DurationDays":
			msgs = append(msgs, "duration must be a positive number of days")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
}
