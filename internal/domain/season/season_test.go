package season_test

import (
	"testing"
	"time"

	"github.com/mlunde/adventpace/internal/domain/season"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWindow(t *testing.T) {
	Convey("Given the December 1-24 window", t, func() {
		w, err := season.New("2025-12-01", "2025-12-24")
		So(err, ShouldBeNil)

		Convey("Then both bounds are inclusive", func() {
			So(w.Contains(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
			So(w.Contains(time.Date(2025, 12, 24, 23, 59, 59, 0, time.UTC)), ShouldBeTrue)
			So(w.Contains(time.Date(2025, 11, 30, 23, 59, 59, 0, time.UTC)), ShouldBeFalse)
			So(w.Contains(time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC)), ShouldBeFalse)
		})

		Convey("Then day keys are checked the same way", func() {
			So(w.ContainsDay("2025-12-05"), ShouldBeTrue)
			So(w.ContainsDay("2026-01-05"), ShouldBeFalse)
		})

		Convey("Then the window spans 24 days", func() {
			So(w.Days(), ShouldEqual, 24)
		})
	})

	Convey("Given invalid bounds", t, func() {
		Convey("When the end precedes the start", func() {
			_, err := season.New("2025-12-24", "2025-12-01")
			So(err, ShouldNotBeNil)
		})

		Convey("When a bound is malformed", func() {
			_, err := season.New("01.12.2025", "2025-12-24")
			So(err, ShouldNotBeNil)
		})
	})
}
