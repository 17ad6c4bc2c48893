package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mlunde/adventpace/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRingDeduper(t *testing.T) {
	Convey("Given a bounded ring deduper", t, func() {
		ctx := context.Background()

		Convey("When recording a new id", func() {
			d := dedupe.NewRingDeduper()
			seen := d.SeenAndRecord(ctx, "evt-1")

			Convey("Then it is newly recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And a repeat is reported as seen", func() {
				So(d.SeenAndRecord(ctx, "evt-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When unrecording after a failed enqueue", func() {
			d := dedupe.NewRingDeduper()
			d.SeenAndRecord(ctx, "evt-1")
			d.Unrecord(ctx, "evt-1")

			Convey("Then the id can be retried", func() {
				So(d.SeenAndRecord(ctx, "evt-1"), ShouldBeFalse)
			})
		})

		Convey("When the cache overflows", func() {
			d := dedupe.NewRingDeduper(dedupe.WithMaxSize(3))
			for i := 0; i < 4; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("evt-%d", i))
			}

			Convey("Then the oldest id is evicted first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "evt-0"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "evt-3"), ShouldBeTrue)
			})
		})

		Convey("When hit concurrently with the same id", func() {
			d := dedupe.NewRingDeduper()
			var wg sync.WaitGroup
			var mu sync.Mutex
			recorded := 0
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !d.SeenAndRecord(ctx, "same") {
						mu.Lock()
						recorded++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one caller records it", func() {
				So(recorded, ShouldEqual, 1)
				So(d.Size(), ShouldEqual, 1)
			})
		})
	})
}

func TestFingerprint(t *testing.T) {
	Convey("Given raw webhook bodies", t, func() {
		a := []byte(`{"object_type":"activity","object_id":1}`)
		b := []byte(`{"object_type":"activity","object_id":2}`)

		Convey("Then identical bytes share a fingerprint", func() {
			So(dedupe.Fingerprint(a), ShouldEqual, dedupe.Fingerprint(append([]byte(nil), a...)))
		})

		Convey("Then different bytes differ", func() {
			So(dedupe.Fingerprint(a), ShouldNotEqual, dedupe.Fingerprint(b))
		})
	})
}
