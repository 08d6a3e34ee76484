package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/okian/entalk/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWindow(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new window", t, func() {
		w := dedupe.NewWindow()

		Convey("Then it should start empty", func() {
			So(w.Size(), ShouldEqual, 0)
		})

		Convey("When a key is recorded twice", func() {
			first := w.SeenAndRecord(ctx, "req-1")
			second := w.SeenAndRecord(ctx, "req-1")

			Convey("Then only the second call should report it as seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(w.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key is unrecorded", func() {
			w.SeenAndRecord(ctx, "req-1")
			w.Unrecord(ctx, "req-1")
			w.Unrecord(ctx, "never-seen")

			Convey("Then it should be accepted again", func() {
				So(w.Size(), ShouldEqual, 0)
				So(w.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
			})
		})
	})

	Convey("Given a window of three keys", t, func() {
		w := dedupe.NewWindow(dedupe.WithMaxSize(3))
		for i := 1; i <= 4; i++ {
			w.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i))
		}

		Convey("Then the oldest key should have been forgotten", func() {
			So(w.Size(), ShouldEqual, 3)
			So(w.SeenAndRecord(ctx, "req-4"), ShouldBeTrue)
			So(w.SeenAndRecord(ctx, "req-2"), ShouldBeTrue)
			So(w.SeenAndRecord(ctx, "req-1"), ShouldBeFalse)
		})
	})

	Convey("Given an unbounded window", t, func() {
		w := dedupe.NewWindow(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			w.SeenAndRecord(ctx, fmt.Sprintf("req-%d", i))
		}

		Convey("Then nothing should be evicted", func() {
			So(w.Size(), ShouldEqual, 1000)
			So(w.SeenAndRecord(ctx, "req-0"), ShouldBeTrue)
		})
	})

	Convey("Given concurrent submissions of the same key", t, func() {
		w := dedupe.NewWindow()
		var fresh atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if !w.SeenAndRecord(ctx, "same") {
					fresh.Add(1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one should win", func() {
			So(fresh.Load(), ShouldEqual, 1)
		})
	})
}
