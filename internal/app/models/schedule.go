package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ScheduleSlot places a session of the group's specialty into a room.
type ScheduleSlot struct {
	ID        int64  `json:"id" db:"id"`
	GroupID   int64  `json:"group_id" db:"group_id"`
	SessionID int64  `json:"session_id" db:"session_id"`
	Room      string `json:"room" db:"room"`
	Capacity  int    `json:"capacity" db:"capacity"`
}

// AttendanceRecord is one student's attendance at one occurrence of a slot.
type AttendanceRecord struct {
	ID         int64            `json:"id" db:"id"`
	StudentID  int64            `json:"student_id" db:"student_id"`
	SlotID     int64            `json:"schedule_slot_id" db:"schedule_slot_id"`
	Status     AttendanceStatus `json:"status" db:"status"`
	WeekStart  Date             `json:"week_start" db:"week_start"`
	AttendedOn Date             `json:"attended_on" db:"attended_on"`
}

const dateLayout = "2006-01-02"

// Date is a calendar day without time of day, stored as DATE.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

// WeekStart returns the Monday of the week containing d.
func (d Date) WeekStart() Date {
	offset := (int(d.Weekday()) + 6) % 7
	return NewDate(d.AddDate(0, 0, -offset))
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.Format(dateLayout), nil
}

// Scan implements sql.Scanner for both pgx (time.Time) and sqlite (text) values.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		*d = Date{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

func (d *Date) parse(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.parse(s)
}
