package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prereqgraph/prereqgraph/pkg/catalog"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertCoursesTracksChanges(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	courses := []catalog.Course{
		{SubjectID: "cse", SubjectLong: "Computer Sci & Engineering", CallNumber: "2231", Title: "Software II", Description: "Prereq: 2221."},
		{SubjectID: "MATH", CallNumber: "1151", Title: "Calculus I"},
	}

	changes, err := db.UpsertCourses(ctx, courses)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	require.Equal(t, "added", changes[0].ChangeType)
	require.Equal(t, "CSE", changes[0].SubjectID)

	// Same data again: nothing changes.
	changes, err = db.UpsertCourses(ctx, courses)
	require.NoError(t, err)
	require.Empty(t, changes)

	courses[1].Description = "Prereq: 1150."
	changes, err = db.UpsertCourses(ctx, courses)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, "updated", changes[0].ChangeType)
	require.Equal(t, "1151", changes[0].CallNumber)

	recent, err := db.ListRecentChanges(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	require.Equal(t, "updated", recent[0].ChangeType)
}

func TestListCourses(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.UpsertCourses(ctx, []catalog.Course{
		{SubjectID: "STAT", CallNumber: "3460", Title: "Probability"},
		{SubjectID: "CSE", CallNumber: "2321", Title: "Foundations I"},
		{SubjectID: "CSE", CallNumber: "2231", Title: "Software II", Description: "Prereq: 2221."},
	})
	require.NoError(t, err)

	all, err := db.ListCourses(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "CSE 2231", all[0].ID())
	require.Equal(t, "Prereq: 2221.", all[0].Description)
	require.Equal(t, "STAT 3460", all[2].ID())

	cse, err := db.ListCourses(ctx, ListOptions{Subjects: []string{"cse"}})
	require.NoError(t, err)
	require.Len(t, cse, 2)

	none, err := db.ListCourses(ctx, ListOptions{Subjects: []string{"PHIL"}})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestGetAndHasCourse(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.UpsertCourses(ctx, []catalog.Course{{SubjectID: "CSE", CallNumber: "2231", Title: "Software II"}})
	require.NoError(t, err)

	c, err := db.GetCourse(ctx, "cse", "2231")
	require.NoError(t, err)
	require.Equal(t, "Software II", c.Title)

	_, err = db.GetCourse(ctx, "CSE", "9999")
	require.ErrorIs(t, err, ErrNotFound)

	ok, err := db.HasCourse(ctx, "CSE", "2231")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = db.HasCourse(ctx, "CSE", "9999")
	require.NoError(t, err)
	require.False(t, ok)

	keys, err := db.CourseKeys(ctx)
	require.NoError(t, err)
	require.True(t, keys[CourseKey("cse", "2231")])
	require.False(t, keys[CourseKey("cse", "9999")])
}

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	require.Empty(t, stats)

	_, err = db.UpsertCourses(ctx, []catalog.Course{
		{SubjectID: "CSE", SubjectLong: "Computer Sci & Engineering", CallNumber: "2221", Description: "Intro."},
		{SubjectID: "CSE", SubjectLong: "Computer Sci & Engineering", CallNumber: "2231", Description: "Prereq: 2221."},
		{SubjectID: "MATH", CallNumber: "1151", Description: "Prereq or concur: Math 1150."},
	})
	require.NoError(t, err)

	stats, err = db.GetStats(ctx)
	require.NoError(t, err)
	require.Equal(t, []SubjectStats{
		{SubjectID: "CSE", SubjectLong: "Computer Sci & Engineering", CourseCount: 2, WithPrereqs: 1},
		{SubjectID: "MATH", CourseCount: 1, WithPrereqs: 1},
	}, stats)
}
