package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"classtrack/internal/attendance"
)

func record(studentID, subject string, day time.Time) attendance.Record {
	return attendance.Record{
		SessionID:   "sess-1",
		StudentID:   studentID,
		TeacherID:   "teacher-1",
		Subject:     subject,
		Status:      attendance.StatusPresent,
		Method:      attendance.MethodQRCode,
		Location:    "B204",
		Verified:    true,
		CheckInTime: day.Add(9 * time.Hour),
		Day:         day,
	}
}

func TestMemoryStoreInsertRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := attendance.NewMemoryStore()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	first, err := store.Insert(ctx, record("stu-1", "Algorithms", day))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	_, err = store.Insert(ctx, record("stu-1", "Algorithms", day))
	require.ErrorIs(t, err, attendance.ErrAlreadyMarked)

	// The original record is untouched.
	recs, err := store.List(ctx, "stu-1", attendance.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, first.ID, recs[0].ID)
}

func TestMemoryStoreInsertAllowsNextDay(t *testing.T) {
	ctx := context.Background()
	store := attendance.NewMemoryStore()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := store.Insert(ctx, record("stu-1", "Algorithms", day))
	require.NoError(t, err)
	_, err = store.Insert(ctx, record("stu-1", "Algorithms", day.AddDate(0, 0, 1)))
	require.NoError(t, err)
}

func TestMemoryStoreInsertAllowsOtherStudent(t *testing.T) {
	ctx := context.Background()
	store := attendance.NewMemoryStore()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	_, err := store.Insert(ctx, record("stu-1", "Algorithms", day))
	require.NoError(t, err)
	_, err = store.Insert(ctx, record("stu-2", "Algorithms", day))
	require.NoError(t, err)
}

func TestMemoryStoreListFilters(t *testing.T) {
	ctx := context.Background()
	store := attendance.NewMemoryStore()
	d1 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	for _, rec := range []attendance.Record{
		record("stu-1", "Algorithms", d1),
		record("stu-1", "Databases", d2),
		record("stu-1", "Algorithms", d3),
		record("stu-2", "Algorithms", d1),
	} {
		_, err := store.Insert(ctx, rec)
		require.NoError(t, err)
	}

	recs, err := store.List(ctx, "stu-1", attendance.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	// Newest first.
	require.Equal(t, d3, recs[0].Day)

	recs, err = store.List(ctx, "stu-1", attendance.Filter{Subject: "Databases"})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	recs, err = store.List(ctx, "stu-1", attendance.Filter{From: d2, To: d3})
	require.NoError(t, err)
	require.Len(t, recs, 2)
}

func TestSummarize(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	absent := record("stu-1", "Algorithms", day)
	absent.Status = attendance.StatusAbsent

	st := attendance.Summarize([]attendance.Record{
		record("stu-1", "Algorithms", day),
		record("stu-1", "Algorithms", day.AddDate(0, 0, 1)),
		record("stu-1", "Algorithms", day.AddDate(0, 0, 2)),
		absent,
	})
	require.Equal(t, 4, st.TotalClasses)
	require.Equal(t, 3, st.PresentClasses)
	require.Equal(t, 1, st.AbsentClasses)
	require.InDelta(t, 75.0, st.Percentage, 0.01)

	require.Zero(t, attendance.Summarize(nil).Percentage)
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	ts := time.Date(2025, 3, 10, 2, 30, 0, 0, loc) // 2025-03-09 21:30 UTC
	require.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), attendance.Day(ts))
}
