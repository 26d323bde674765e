package classes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		ok       bool
		days     []Weekday
		time     string
		startMin int
	}{
		{
			name:     "three days morning",
			input:    "Mon, Wed, Fri - 9:00 AM",
			ok:       true,
			days:     []Weekday{Monday, Wednesday, Friday},
			time:     "9:00 AM",
			startMin: 9 * 60,
		},
		{
			name:     "afternoon slot",
			input:    "Tue, Thu - 1:30 PM",
			ok:       true,
			days:     []Weekday{Tuesday, Thursday},
			time:     "1:30 PM",
			startMin: 13*60 + 30,
		},
		{
			name:     "weekend",
			input:    "Sat, Sun - 10:00 AM",
			ok:       true,
			days:     []Weekday{Saturday, Sunday},
			time:     "10:00 AM",
			startMin: 10 * 60,
		},
		{
			name:  "unknown days skipped",
			input: "Mon, Xyz - 9:00 AM",
			ok:    true,
			days:  []Weekday{Monday},
			time:  "9:00 AM", startMin: 540,
		},
		{name: "missing separator", input: "Mon Wed Fri 9:00 AM", ok: false},
		{name: "no recognizable day", input: "Xyz - 9:00 AM", ok: false},
		{name: "empty", input: "", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, ok := ParseSchedule(tc.input)
			require.Equal(t, tc.ok, ok)
			if !tc.ok {
				return
			}
			require.Equal(t, tc.days, parsed.Days)
			require.Equal(t, tc.time, parsed.Time)
			require.Equal(t, tc.startMin, parsed.StartMinutes)
		})
	}
}

func TestExpandScheduleFansOutPerStudent(t *testing.T) {
	cls := &Class{
		ID:          "class-1",
		Name:        "Mathematics",
		TeacherID:   "teacher-1",
		TeacherName: "Mr. Karim",
		Schedule:    "Mon, Wed - 9:00 AM",
		Room:        "B12",
	}

	entries := ExpandSchedule(cls, []string{"student-1", "student-2"})
	require.Len(t, entries, 4, "2 days x 2 students")

	byStudent := map[string]int{}
	for _, e := range entries {
		byStudent[e.StudentID]++
		require.Equal(t, "class-1", e.ClassID)
		require.Equal(t, "teacher-1", e.TeacherID)
		require.Equal(t, "Mathematics", e.Subject)
		require.Equal(t, "Mr. Karim", e.Teacher)
		require.Equal(t, "B12", e.Room)
		require.Equal(t, "9:00 AM", e.Time)
		require.NotEmpty(t, e.ID)
	}
	require.Equal(t, map[string]int{"student-1": 2, "student-2": 2}, byStudent)
}

func TestExpandScheduleWithoutEnrollments(t *testing.T) {
	cls := &Class{ID: "class-1", Name: "Art", TeacherID: "t", Schedule: "Fri - 2:00 PM"}

	entries := ExpandSchedule(cls, nil)
	require.Len(t, entries, 1)
	require.Empty(t, entries[0].StudentID, "class-level entry when nobody is enrolled")
	require.Equal(t, "TBD", entries[0].Room, "missing room defaults")
}

func TestExpandScheduleInvalidOrEmpty(t *testing.T) {
	require.Nil(t, ExpandSchedule(&Class{ID: "c", Schedule: ""}, nil))
	require.Nil(t, ExpandSchedule(&Class{ID: "c", Schedule: "whenever"}, []string{"s"}))
}

func TestSortSchedules(t *testing.T) {
	entries := []ScheduleEntry{
		{Day: Friday, Time: "9:00 AM", StartMinutes: 540},
		{Day: Monday, Time: "1:00 PM", StartMinutes: 780},
		{Day: Monday, Time: "9:00 AM", StartMinutes: 540},
	}
	sortSchedules(entries)
	require.Equal(t, Monday, entries[0].Day)
	require.Equal(t, "9:00 AM", entries[0].Time)
	require.Equal(t, Monday, entries[1].Day)
	require.Equal(t, Friday, entries[2].Day)
}
