package grades

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/madaris-app/madaris/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[string]*Grade
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]*Grade)}
}

func (r *memoryRepo) Create(ctx context.Context, g *Grade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	clone := *g
	r.items[g.ID] = &clone
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id string) (*Grade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *g
	return &clone, nil
}

func (r *memoryRepo) Update(ctx context.Context, g *Grade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[g.ID]; !ok {
		return shared.ErrNotFound
	}
	g.UpdatedAt = time.Now()
	clone := *g
	r.items[g.ID] = &clone
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) list(keep func(*Grade) bool) []Grade {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Grade
	for _, g := range r.items {
		if keep(g) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (r *memoryRepo) ListByStudent(ctx context.Context, studentID string) ([]Grade, error) {
	return r.list(func(g *Grade) bool { return g.StudentID == studentID }), nil
}

func (r *memoryRepo) ListByClass(ctx context.Context, classID string) ([]Grade, error) {
	return r.list(func(g *Grade) bool { return g.ClassID == classID }), nil
}

func (r *memoryRepo) ListByTeacher(ctx context.Context, teacherID string) ([]Grade, error) {
	return r.list(func(g *Grade) bool { return g.TeacherID == teacherID }), nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, logger), repo
}

func validInput() CreateInput {
	return CreateInput{
		StudentID: "student-1",
		ClassID:   "class-1",
		Subject:   "Mathematics",
		TeacherID: "teacher-1",
		Score:     45,
		MaxScore:  50,
		Type:      TypeQuiz,
		Date:      time.Date(2024, 10, 3, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateDerivesPercentage(t *testing.T) {
	svc, _ := newTestService()

	g, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NotEmpty(t, g.ID)
	require.Equal(t, 90.0, g.Percentage)
}

func TestCreateRoundsPercentage(t *testing.T) {
	svc, _ := newTestService()

	input := validInput()
	input.Score = 1
	input.MaxScore = 3
	g, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 33.33, g.Percentage)
}

func TestCreateDefaultsDate(t *testing.T) {
	svc, _ := newTestService()

	input := validInput()
	input.Date = time.Time{}
	g, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	require.False(t, g.Date.IsZero())
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing student", func(in *CreateInput) { in.StudentID = "" }},
		{"missing class", func(in *CreateInput) { in.ClassID = "" }},
		{"blank subject", func(in *CreateInput) { in.Subject = "  " }},
		{"negative score", func(in *CreateInput) { in.Score = -1 }},
		{"zero max score", func(in *CreateInput) { in.MaxScore = 0 }},
		{"score above max", func(in *CreateInput) { in.Score = 51 }},
		{"unknown type", func(in *CreateInput) { in.Type = "Pop Quiz" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService()
			input := validInput()
			tc.mutate(&input)
			_, err := svc.Create(context.Background(), input)
			require.True(t, shared.IsValidation(err))
		})
	}
}

func TestUpdateRecomputesPercentage(t *testing.T) {
	svc, _ := newTestService()

	g, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	maxScore := 100.0
	updated, err := svc.Update(context.Background(), g.ID, Patch{MaxScore: &maxScore})
	require.NoError(t, err)
	require.Equal(t, 45.0, updated.Score, "untouched score keeps its value")
	require.Equal(t, 45.0, updated.Percentage)
}

func TestUpdateRejectsScoreAboveMergedMax(t *testing.T) {
	svc, _ := newTestService()

	g, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	score := 60.0
	_, err = svc.Update(context.Background(), g.ID, Patch{Score: &score})
	require.True(t, shared.IsValidation(err))
}

func TestUpdateLeavesPercentageWhenScoreUntouched(t *testing.T) {
	svc, _ := newTestService()

	g, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	notes := "moderated"
	updated, err := svc.Update(context.Background(), g.ID, Patch{Notes: &notes})
	require.NoError(t, err)
	require.Equal(t, 90.0, updated.Percentage)
	require.Equal(t, "moderated", updated.Notes)
}

func TestUpdateErrors(t *testing.T) {
	svc, _ := newTestService()

	score := 10.0
	_, err := svc.Update(context.Background(), "absent", Patch{Score: &score})
	require.ErrorIs(t, err, shared.ErrNotFound)

	g, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	bad := AssessmentType("Homework")
	_, err = svc.Update(context.Background(), g.ID, Patch{Type: &bad})
	require.True(t, shared.IsValidation(err))
}

func TestListByStudentNewestFirst(t *testing.T) {
	svc, _ := newTestService()

	first := validInput()
	first.Date = time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), first)
	require.NoError(t, err)

	second := validInput()
	second.Type = TypeMidterm
	second.Date = time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(context.Background(), second)
	require.NoError(t, err)

	other := validInput()
	other.StudentID = "student-2"
	_, err = svc.Create(context.Background(), other)
	require.NoError(t, err)

	list, err := svc.ListByStudent(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, TypeMidterm, list[0].Type)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService()

	g, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), g.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), g.ID), shared.ErrNotFound)

	_, err = svc.Get(context.Background(), g.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
