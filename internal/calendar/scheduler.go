package calendar

import (
	"context"
	"fmt"
	"time"
	"vet-clinic/internal/clock"
	"vet-clinic/internal/shifts"

	"github.com/google/uuid"
)

// Availability gives the scheduler access to the veterinarians and their working blocks.
type Availability interface {
	FindVeterinarian(ctx context.Context, veterinarianUUID uuid.UUID) (*shifts.Veterinarian, error)
	WorkingBlocks(ctx context.Context, veterinarianID int64, weekday shifts.Weekday) ([]shifts.Block, error)
}

// ConflictFinder finds the appointments of a veterinarian at an exact instant.
type ConflictFinder interface {

	// CountConflicts counts the appointments of the veterinarian at the instant, ignoring the
	// appointment with the excluded ID.
	CountConflicts(ctx context.Context, veterinarianID int64, at time.Time, excludedID int64) (int, error)
}

// Scheduler decides whether a veterinarian can take an appointment at a given instant. Weekdays
// and times of day are taken in the clinic location.
type Scheduler struct {
	availability Availability
	conflicts    ConflictFinder
	clock        clock.Clock
	location     *time.Location
}

// NewScheduler creates a new Scheduler.
func NewScheduler(availability Availability, conflicts ConflictFinder, clock clock.Clock, location *time.Location) *Scheduler {
	if location == nil {
		location = time.Local
	}
	return &Scheduler{availability: availability, conflicts: conflicts, clock: clock, location: location}
}

// Check runs the scheduling rules in order, returning the first one that rejects the instant:
// it must not be in the past, the veterinarian must work on its weekday, it must fall inside one of
// the blocks of that weekday and the veterinarian must not have another appointment at it.
// When rescheduling, excludedID is the appointment being moved.
func (s *Scheduler) Check(ctx context.Context, veterinarianID int64, at time.Time, excludedID int64) error {
	if at.Before(s.clock.Now()) {
		return &PastDateError{ScheduledAt: at}
	}
	local := at.In(s.location)
	weekday := shifts.WeekdayOf(local)
	blocks, err := s.availability.WorkingBlocks(ctx, veterinarianID, weekday)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return &NoWorkingHoursError{Weekday: weekday}
	}
	if !anyContains(blocks, shifts.TimeOfDayOf(local)) {
		return &OutsideWorkingHoursError{Weekday: weekday, At: shifts.TimeOfDayOf(local)}
	}
	conflicts, err := s.conflicts.CountConflicts(ctx, veterinarianID, at, excludedID)
	if err != nil {
		return fmt.Errorf("could not check conflicting appointments: %w", err)
	}
	if conflicts > 0 {
		return &DoubleBookingError{ScheduledAt: at}
	}
	return nil
}

func anyContains(blocks []shifts.Block, at shifts.TimeOfDay) bool {
	for _, block := range blocks {
		if block.Contains(at) {
			return true
		}
	}
	return false
}

// Day returns the bounds of the clinic day containing t, as [start, end).
func (s *Scheduler) Day(t time.Time) (time.Time, time.Time) {
	local := t.In(s.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return start, start.AddDate(0, 0, 1)
}

// ParseDay parses a YYYY-MM-DD date in the clinic location.
func (s *Scheduler) ParseDay(value string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, s.location)
}
