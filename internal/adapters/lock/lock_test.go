package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/entalk/internal/adapters/lock"
	"github.com/okian/entalk/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestLocal(t *testing.T) {
	Convey("Given a local locker", t, func() {
		l := lock.NewLocal()
		ctx := context.Background()

		Convey("When many goroutines contend for one key", func() {
			var (
				inside  atomic.Int32
				maxSeen atomic.Int32
				wg      sync.WaitGroup
			)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					unlock, err := l.Lock(ctx, "loc-1")
					if err != nil {
						return
					}
					n := inside.Add(1)
					if n > maxSeen.Load() {
						maxSeen.Store(n)
					}
					time.Sleep(time.Millisecond)
					inside.Add(-1)
					unlock()
				}()
			}
			wg.Wait()

			Convey("Then only one should hold it at a time", func() {
				So(maxSeen.Load(), ShouldEqual, 1)
			})

			Convey("And idle keys should be dropped", func() {
				So(l.Held(), ShouldEqual, 0)
			})
		})

		Convey("When different keys are locked", func() {
			u1, err1 := l.Lock(ctx, "loc-1")
			u2, err2 := l.Lock(ctx, "loc-2")

			Convey("Then neither should block", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(l.Held(), ShouldEqual, 2)
				u1()
				u2()
			})
		})

		Convey("When the context ends while waiting", func() {
			unlock, err := l.Lock(ctx, "loc-1")
			So(err, ShouldBeNil)

			wctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			_, err = l.Lock(wctx, "loc-1")

			Convey("Then the waiter should give up", func() {
				So(errors.Is(err, lock.ErrNotAcquired), ShouldBeTrue)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})

			Convey("And unlocking twice should be harmless", func() {
				unlock()
				unlock()
				again, err := l.Lock(ctx, "loc-1")
				So(err, ShouldBeNil)
				again()
				So(l.Held(), ShouldEqual, 0)
			})
		})
	})
}

func TestRedisUnavailable(t *testing.T) {
	Convey("Given a Redis locker pointing at a closed port", t, func() {
		client := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		})
		defer client.Close()
		l := lock.NewRedis(client, lock.WithTTL(time.Second), lock.WithKeyPrefix("test:"))

		Convey("When the locker is closed", func() {
			So(l.Close(), ShouldBeNil)

			Convey("Then its client should be closed too", func() {
				_, err := l.Lock(context.Background(), "loc-1")
				So(errors.Is(err, redis.ErrClosed), ShouldBeTrue)
				So(l.Close(), ShouldBeNil)
			})
		})

		Convey("Then Lock should surface the connection error", func() {
			_, err := l.Lock(context.Background(), "loc-1")
			So(err, ShouldNotBeNil)
			So(errors.Is(err, lock.ErrNotAcquired), ShouldBeFalse)
			So(err.Error(), ShouldContainSubstring, "test:loc-1")
		})
	})
}
