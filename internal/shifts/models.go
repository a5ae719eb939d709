package shifts

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"vet-clinic/internal/apierrors"

	"github.com/google/uuid"
)

// Weekday is the day of the week of a block, starting at 0 for Monday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekdayOf returns the weekday of the given time, as seen in its own location.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayNames[w]
}

const secondsPerDay = 24 * 60 * 60

// TimeOfDay is a wall clock time within a day, with second precision.
type TimeOfDay int

// NewTimeOfDay creates a TimeOfDay from its components.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// TimeOfDayOf returns the wall clock time of the given time, as seen in its own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
}

// ParseTimeOfDay parses times written as HH:MM or HH:MM:SS.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return TimeOfDayOf(parsed), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q, expected HH:MM or HH:MM:SS", value)
}

func (t TimeOfDay) Hour() int {
	return int(t) / 3600
}

func (t TimeOfDay) Minute() int {
	return int(t) % 3600 / 60
}

func (t TimeOfDay) Second() int {
	return int(t) % 60
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < secondsPerDay
}

// String formats the time as HH:MM, adding the seconds only when they are set.
func (t TimeOfDay) String() string {
	if t.Second() == 0 {
		return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Scan reads a SQL TIME, which the driver delivers as a time.Time on the zero date.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch value := src.(type) {
	case time.Time:
		*t = TimeOfDayOf(value)
		return nil
	case string:
		return t.scanText(value)
	case []byte:
		return t.scanText(string(value))
	}
	return fmt.Errorf("cannot scan %T into TimeOfDay", src)
}

func (t *TimeOfDay) scanText(value string) error {
	parsed, err := ParseTimeOfDay(value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second()), nil
}

type Veterinarian struct {
	ID          int64     `json:"-" dbfield:"id"`
	UUID        uuid.UUID `json:"uuid" dbfield:"uuid"`
	UserID      int64     `json:"-" dbfield:"user_id"`
	Name        string    `json:"name" dbfield:"name"`
	Email       string    `json:"email" dbfield:"email"`
	MobilePhone string    `json:"mobile_phone" dbfield:"mobile_phone"`
	Specialty   string    `json:"specialty" dbfield:"specialty"`
}

// Block is a recurring weekly window in which a veterinarian takes appointments. The window is
// half-open: Start belongs to it, End does not.
type Block struct {
	ID             int64     `json:"-" dbfield:"id"`
	UUID           uuid.UUID `json:"uuid" dbfield:"uuid"`
	VeterinarianID int64     `json:"-" dbfield:"veterinarian_id"`
	Weekday        Weekday   `json:"weekday" dbfield:"weekday"`
	Start          TimeOfDay `json:"start_time" dbfield:"start_time"`
	End            TimeOfDay `json:"end_time" dbfield:"end_time"`
}

// Contains checks if the given time of day falls in [Start, End).
func (b Block) Contains(t TimeOfDay) bool {
	return t >= b.Start && t < b.End
}

// Overlaps checks if both windows share at least one instant. Adjacent windows don't overlap.
func (b Block) Overlaps(other Block) bool {
	return max(b.Start, other.Start) < min(b.End, other.End)
}

func (b Block) sameIdentity(other Block) bool {
	if b.ID != 0 && b.ID == other.ID {
		return true
	}
	return b.UUID != uuid.Nil && b.UUID == other.UUID
}

// BlockRequest asks for the same window to be opened in each of the given weekdays.
type BlockRequest struct {
	Weekdays []Weekday  `json:"weekdays"`
	Start    *TimeOfDay `json:"start_time"`
	End      *TimeOfDay `json:"end_time"`
}

// Validate checks the fields of the request. The interval itself is checked per weekday by
// ValidateBlock.
func (r BlockRequest) Validate() error {
	if len(r.Weekdays) == 0 {
		return apierrors.NewValidationError("weekdays", "required")
	}
	seen := make(map[Weekday]bool, len(r.Weekdays))
	for _, weekday := range r.Weekdays {
		if !weekday.Valid() {
			return apierrors.NewValidationError("weekdays", fmt.Sprintf("invalid weekday %d, expected 0 (Monday) to 6 (Sunday)", weekday))
		}
		if seen[weekday] {
			return apierrors.NewValidationError("weekdays", fmt.Sprintf("%s given more than once", weekday))
		}
		seen[weekday] = true
	}
	if r.Start == nil {
		return apierrors.NewValidationError("start_time", "required")
	}
	if !r.Start.Valid() {
		return apierrors.NewValidationError("start_time", "invalid")
	}
	if r.End == nil {
		return apierrors.NewValidationError("end_time", "required")
	}
	if !r.End.Valid() {
		return apierrors.NewValidationError("end_time", "invalid")
	}
	return nil
}

// Failure tells why the block of a weekday was not created.
type Failure struct {
	Weekday Weekday `json:"weekday"`
	Message string  `json:"message"`
}

// BatchResult is the outcome of a multi-day block creation, which may partially succeed.
type BatchResult struct {
	Created  int       `json:"created"`
	Blocks   []Block   `json:"blocks"`
	Failures []Failure `json:"failures"`
}
