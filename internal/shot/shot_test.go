package shot_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstlab/sigfetch/internal/shot"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMinShotForDate(t *testing.T) {
	assert.Equal(t, int64(1140101001), shot.MinShotForDate(date(2014, time.January, 1)))
	assert.Equal(t, int64(1100502001), shot.MinShotForDate(date(2010, time.May, 2)))
	assert.Equal(t, int64(1251231001), shot.MinShotForDate(date(2025, time.December, 31)))
}

func TestMaxShotForDate(t *testing.T) {
	d := date(2014, time.January, 1)
	assert.Equal(t, shot.MinShotForDate(d)+998, shot.MaxShotForDate(d))
}

func TestToDate(t *testing.T) {
	d, err := shot.ToDate(1140101001)
	require.NoError(t, err)
	assert.Equal(t, date(2014, time.January, 1), d)

	d, err = shot.ToDate(1100502123)
	require.NoError(t, err)
	assert.Equal(t, date(2010, time.May, 2), d)

	t.Run("InvalidDate", func(t *testing.T) {
		// Month 13 is not a calendar date.
		_, err := shot.ToDate(1141301001)
		assert.Error(t, err)

		// Feb 30 does not exist.
		_, err = shot.ToDate(1140230001)
		assert.Error(t, err)
	})
}

func TestDateNum(t *testing.T) {
	n, err := shot.DateNum(1100502001)
	require.NoError(t, err)
	assert.Equal(t, 20100502, n)

	assert.Equal(t, 20110112, shot.DateToDateNum(date(2011, time.January, 12)))
}

func TestSeq(t *testing.T) {
	assert.Equal(t, 1, shot.Seq(1140101001))
	assert.Equal(t, 999, shot.Seq(1140101999))
}

func TestValid(t *testing.T) {
	tests := []struct {
		name    string
		shotNum int64
		want    bool
	}{
		{"first shot of a day", 1140101001, true},
		{"last shot of a day", 1140101999, true},
		{"zero sequence", 1140101000, false},
		{"below range", 999101001, false},
		{"above range", 9991213001, false},
		{"month 13", 1141301001, false},
		{"day zero", 1140100001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shot.Valid(tt.shotNum))
		})
	}
}

func TestRouterSplit(t *testing.T) {
	today := date(2014, time.June, 15)
	r := shot.NewRouterWithClock("current.example.org", "archive.example.org", func() time.Time { return today })

	first := shot.MinShotForDate(today)

	// Everything from today's first shot onward goes to the day server.
	assert.Equal(t, "current.example.org", r.Route(first))
	assert.Equal(t, "current.example.org", r.Route(first+500))
	assert.Equal(t, "current.example.org", r.Route(shot.MinShotForDate(date(2014, time.June, 16))))

	// Everything older goes to the archive.
	assert.Equal(t, "archive.example.org", r.Route(first-1))
	assert.Equal(t, "archive.example.org", r.Route(1100502001))
}

func TestRouterAccessors(t *testing.T) {
	r := shot.NewRouter("a", "b")
	assert.Equal(t, "a", r.CurrentServer())
	assert.Equal(t, "b", r.ArchiveServer())
}
