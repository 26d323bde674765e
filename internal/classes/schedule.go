package classes

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var dayAbbreviations = map[string]Weekday{
	"Sun": Sunday,
	"Mon": Monday,
	"Tue": Tuesday,
	"Wed": Wednesday,
	"Thu": Thursday,
	"Fri": Friday,
	"Sat": Saturday,
}

// ParsedSchedule is the structured form of a class schedule string.
type ParsedSchedule struct {
	Days         []Weekday
	Time         string
	StartMinutes int
}

// ParseSchedule parses the timetable string format "Mon, Wed, Fri - 9:00 AM".
// Unknown day abbreviations are skipped; a string without the " - " separator
// or without any recognizable day is reported as invalid.
func ParseSchedule(schedule string) (ParsedSchedule, bool) {
	parts := strings.SplitN(schedule, " - ", 2)
	if len(parts) < 2 {
		return ParsedSchedule{}, false
	}
	timePart := strings.TrimSpace(parts[1])

	var days []Weekday
	for _, abbr := range strings.Split(parts[0], ",") {
		if day, ok := dayAbbreviations[strings.TrimSpace(abbr)]; ok {
			days = append(days, day)
		}
	}
	if len(days) == 0 || timePart == "" {
		return ParsedSchedule{}, false
	}

	start := 0
	if t, err := time.Parse("3:04 PM", timePart); err == nil {
		start = t.Hour()*60 + t.Minute()
	}
	return ParsedSchedule{Days: days, Time: timePart, StartMinutes: start}, true
}

// ExpandSchedule fans a class's schedule string out into timetable entries:
// one per weekday per enrolled student, or one class-level entry per weekday
// when nobody is enrolled yet. Returns nil when the schedule string is empty
// or unparseable.
func ExpandSchedule(cls *Class, enrolledStudentIDs []string) []ScheduleEntry {
	if cls.Schedule == "" {
		return nil
	}
	parsed, ok := ParseSchedule(cls.Schedule)
	if !ok {
		return nil
	}

	room := cls.Room
	if room == "" {
		room = "TBD"
	}

	entry := func(day Weekday, studentID string) ScheduleEntry {
		return ScheduleEntry{
			ID:           uuid.NewString(),
			ClassID:      cls.ID,
			StudentID:    studentID,
			TeacherID:    cls.TeacherID,
			Day:          day,
			Time:         parsed.Time,
			StartMinutes: parsed.StartMinutes,
			Subject:      cls.Name,
			Teacher:      cls.TeacherName,
			Room:         room,
		}
	}

	var entries []ScheduleEntry
	for _, day := range parsed.Days {
		if len(enrolledStudentIDs) == 0 {
			entries = append(entries, entry(day, ""))
			continue
		}
		for _, studentID := range enrolledStudentIDs {
			entries = append(entries, entry(day, studentID))
		}
	}
	return entries
}

func sortSchedules(entries []ScheduleEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Day != entries[j].Day {
			return entries[i].Day.Ordinal() < entries[j].Day.Ordinal()
		}
		if entries[i].StartMinutes != entries[j].StartMinutes {
			return entries[i].StartMinutes < entries[j].StartMinutes
		}
		return entries[i].Time < entries[j].Time
	})
}
