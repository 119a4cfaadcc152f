package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTimeTotalOrder(t *testing.T) {
	times := []EventTime{
		NewDate(2024, time.June, 16),
		NewInstant(time.Date(2024, time.June, 16, 12, 0, 0, 0, time.UTC)),
		NewDate(2024, time.June, 17),
		NewInstant(time.Date(2024, time.June, 17, 9, 30, 0, 0, time.UTC)),
	}

	// Strictly increasing, so every ordered pair must agree.
	for i := range times {
		for j := range times {
			c := times[i].Compare(times[j])
			switch {
			case i < j:
				assert.Equal(t, -1, c, "times[%d] < times[%d]", i, j)
			case i > j:
				assert.Equal(t, 1, c, "times[%d] > times[%d]", i, j)
			default:
				assert.Equal(t, 0, c, "times[%d] == times[%d]", i, j)
			}
			// Antisymmetry.
			assert.Equal(t, -c, times[j].Compare(times[i]))
		}
	}

	// Transitivity over the increasing chain.
	for i := 0; i+2 < len(times); i++ {
		assert.Equal(t, -1, times[i].Compare(times[i+1]))
		assert.Equal(t, -1, times[i+1].Compare(times[i+2]))
		assert.Equal(t, -1, times[i].Compare(times[i+2]))
	}
}

func TestEventTimeCrossVariantMidnight(t *testing.T) {
	date := NewDate(2024, time.June, 17)
	midnight := NewInstant(time.Date(2024, time.June, 17, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 0, date.Compare(midnight))
	assert.True(t, date.Equal(midnight))
	assert.True(t, midnight.Equal(date))

	afterMidnight := NewInstant(time.Date(2024, time.June, 17, 0, 0, 1, 0, time.UTC))
	assert.Equal(t, -1, date.Compare(afterMidnight))
	assert.Equal(t, 1, afterMidnight.Compare(date))
}

func TestEventTimeInstantNormalizedToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	// 02:00 at UTC+2 is midnight UTC.
	instant := NewInstant(time.Date(2024, time.June, 17, 2, 0, 0, 0, loc))
	assert.True(t, NewDate(2024, time.June, 17).Equal(instant))
}

func testEvent(t *testing.T, uid, name string, start time.Time) Event {
	t.Helper()
	return NewTimed(name, uid, start, start.Add(time.Hour),
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		"https://cal.example.com/personal/", Details{})
}

func TestEventOrderingByStartOnly(t *testing.T) {
	early := testEvent(t, "uid-b", "later name", time.Date(2024, time.June, 17, 9, 0, 0, 0, time.UTC))
	late := testEvent(t, "uid-a", "earlier name", time.Date(2024, time.June, 18, 9, 0, 0, 0, time.UTC))

	assert.Equal(t, -1, early.Compare(late))
	assert.Equal(t, 1, late.Compare(early))

	// Same start compares equal regardless of uid and name.
	other := testEvent(t, "uid-c", "whatever", early.Start().Time())
	assert.Equal(t, 0, early.Compare(other))
}

func TestEventEqualityByUIDOnly(t *testing.T) {
	a := testEvent(t, "shared-uid", "first title", time.Date(2024, time.June, 17, 9, 0, 0, 0, time.UTC))
	b := testEvent(t, "shared-uid", "second title", time.Date(2024, time.June, 20, 9, 0, 0, 0, time.UTC))
	c := testEvent(t, "other-uid", "first title", a.Start().Time())

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestAllDayConstructorEnforcesVariant(t *testing.T) {
	ev := NewAllDay("Holiday", "uid-1",
		time.Date(2024, time.June, 17, 13, 45, 0, 0, time.UTC),
		time.Date(2024, time.June, 18, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
		"https://cal.example.com/personal/", Details{})

	require.True(t, ev.Start().IsDate())
	require.True(t, ev.End().IsDate())
	// Time-of-day is discarded.
	assert.Equal(t, time.Date(2024, time.June, 17, 0, 0, 0, 0, time.UTC), ev.Start().Time())
}

func TestSort(t *testing.T) {
	a := testEvent(t, "a", "a", time.Date(2024, time.June, 19, 9, 0, 0, 0, time.UTC))
	b := testEvent(t, "b", "b", time.Date(2024, time.June, 17, 9, 0, 0, 0, time.UTC))
	c := testEvent(t, "c", "c", time.Date(2024, time.June, 18, 9, 0, 0, 0, time.UTC))

	events := []Event{a, b, c}
	Sort(events)

	assert.Equal(t, []string{"b", "c", "a"}, []string{events[0].UID(), events[1].UID(), events[2].UID()})
}
