package merge_test

import (
	"testing"
	"time"

	"github.com/mlunde/adventpace/internal/domain/merge"
	"github.com/mlunde/adventpace/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLatestWins(t *testing.T) {
	Convey("Given the latest-wins merge engine", t, func() {
		eng := merge.NewLatestWins()
		t1 := time.Date(2025, 12, 5, 9, 30, 0, 0, time.UTC)
		t0 := t1.Add(-time.Hour)
		t2 := t1.Add(time.Hour)

		Convey("When no entry exists for the day", func() {
			got, applied := eng.Merge(nil, model.LogEntry{Km: 5, Time: t1})

			Convey("Then the candidate is written", func() {
				So(applied, ShouldBeTrue)
				So(got.Km, ShouldEqual, 5)
				So(got.Time.Equal(t1), ShouldBeTrue)
			})
		})

		Convey("When a candidate carries an earlier time", func() {
			existing := model.LogEntry{Km: 5, Time: t1}
			got, applied := eng.Merge(&existing, model.LogEntry{Km: 3, Time: t0})

			Convey("Then the existing entry is kept", func() {
				So(applied, ShouldBeFalse)
				So(got.Km, ShouldEqual, 5)
				So(got.Time.Equal(t1), ShouldBeTrue)
			})
		})

		Convey("When a candidate carries a strictly later time", func() {
			existing := model.LogEntry{Km: 5, Time: t1}
			got, applied := eng.Merge(&existing, model.LogEntry{Km: 6, Time: t2})

			Convey("Then the candidate replaces the entry", func() {
				So(applied, ShouldBeTrue)
				So(got.Km, ShouldEqual, 6)
				So(got.Time.Equal(t2), ShouldBeTrue)
			})
		})

		Convey("When a candidate carries an identical time", func() {
			existing := model.LogEntry{Km: 5, Time: t1}
			got, applied := eng.Merge(&existing, model.LogEntry{Km: 9, Time: t1})

			Convey("Then the redelivery is a no-op", func() {
				So(applied, ShouldBeFalse)
				So(got.Km, ShouldEqual, 5)
			})
		})

		Convey("When merges arrive out of order", func() {
			var entry *model.LogEntry
			apply := func(c model.LogEntry) bool {
				got, applied := eng.Merge(entry, c)
				entry = &got
				return applied
			}

			So(apply(model.LogEntry{Km: 5, Time: t1}), ShouldBeTrue)
			So(apply(model.LogEntry{Km: 3, Time: t0}), ShouldBeFalse)
			So(apply(model.LogEntry{Km: 6, Time: t2}), ShouldBeTrue)

			Convey("Then only recency decides the final state", func() {
				So(entry.Km, ShouldEqual, 6)
				So(entry.Time.Equal(t2), ShouldBeTrue)
			})
		})
	})
}
