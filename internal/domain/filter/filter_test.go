package filter_test

import (
	"testing"
	"time"

	"github.com/mlunde/adventpace/internal/domain/filter"
	"github.com/mlunde/adventpace/internal/domain/model"
	"github.com/mlunde/adventpace/internal/domain/season"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRelevant(t *testing.T) {
	Convey("Given webhook events of various shapes", t, func() {
		Convey("Then activity create and update events pass", func() {
			So(filter.Relevant(model.WebhookEvent{ObjectType: "activity", AspectType: "create"}), ShouldBeTrue)
			So(filter.Relevant(model.WebhookEvent{ObjectType: "activity", AspectType: "update"}), ShouldBeTrue)
		})

		Convey("Then delete aspects are ignored", func() {
			So(filter.Relevant(model.WebhookEvent{ObjectType: "activity", AspectType: "delete"}), ShouldBeFalse)
		})

		Convey("Then non-activity objects are ignored", func() {
			So(filter.Relevant(model.WebhookEvent{ObjectType: "athlete", AspectType: "update"}), ShouldBeFalse)
		})
	})
}

func TestMatchKeyword(t *testing.T) {
	Convey("Given a configured keyword", t, func() {
		act := model.Activity{Name: "Morning Luke 5", Description: "easy jog"}

		Convey("Then matching is case-insensitive on the name", func() {
			So(filter.MatchKeyword("luke", act), ShouldBeTrue)
			So(filter.MatchKeyword("LUKE", act), ShouldBeTrue)
		})

		Convey("Then the description is searched too", func() {
			So(filter.MatchKeyword("jog", act), ShouldBeTrue)
		})

		Convey("Then a non-matching keyword rejects", func() {
			So(filter.MatchKeyword("intervals", act), ShouldBeFalse)
		})

		Convey("Then an empty keyword matches everything", func() {
			So(filter.MatchKeyword("", act), ShouldBeTrue)
			So(filter.MatchKeyword("", model.Activity{}), ShouldBeTrue)
		})
	})
}

func TestLogDay(t *testing.T) {
	Convey("Given a filter bound to December 1-24", t, func() {
		w, err := season.New("2025-12-01", "2025-12-24")
		So(err, ShouldBeNil)
		f := filter.New(w)
		asOf := time.Date(2025, 12, 6, 10, 0, 0, 0, time.UTC)

		Convey("When the activity started today", func() {
			act := model.Activity{StartDateLocal: time.Date(2025, 12, 6, 7, 30, 0, 0, time.UTC)}
			day, ok := f.LogDay(act, asOf)
			So(ok, ShouldBeTrue)
			So(day, ShouldEqual, "2025-12-06")
		})

		Convey("When the event arrives after midnight for yesterday's run", func() {
			act := model.Activity{StartDateLocal: time.Date(2025, 12, 5, 23, 50, 0, 0, time.UTC)}
			day, ok := f.LogDay(act, asOf)

			Convey("Then it lands on the day the run happened", func() {
				So(ok, ShouldBeTrue)
				So(day, ShouldEqual, "2025-12-05")
			})
		})

		Convey("When the activity is dated in the future", func() {
			act := model.Activity{StartDateLocal: time.Date(2025, 12, 7, 0, 10, 0, 0, time.UTC)}
			_, ok := f.LogDay(act, asOf)
			So(ok, ShouldBeFalse)
		})

		Convey("When the activity predates the season", func() {
			act := model.Activity{StartDateLocal: time.Date(2025, 11, 28, 8, 0, 0, 0, time.UTC)}
			_, ok := f.LogDay(act, asOf)
			So(ok, ShouldBeFalse)
		})
	})
}
