package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/okian/entalk/internal/adapters/lock"
	"github.com/okian/entalk/internal/config"
	"github.com/okian/entalk/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// countingLocker records how often it was closed.
type countingLocker struct {
	*lock.Local
	closes int
}

func (c *countingLocker) Close() error {
	c.closes++
	return nil
}

var codeLine = regexp.MustCompile(`Access code: ([A-Z2-9]{8})`)

// run executes the command tree with args and returns stdout.
func run(args ...string) (string, error) {
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func setenv(kv map[string]string) func() {
	for k, v := range kv {
		_ = os.Setenv(k, v)
	}
	return func() {
		for k := range kv {
			_ = os.Unsetenv(k)
		}
	}
}

func TestCommands(t *testing.T) {
	convey.Convey("Given a memory-backed configuration", t, func() {
		defer setenv(map[string]string{
			"ENTALK_STORE_DRIVER":      "memory",
			"ENTALK_GENERATOR_BACKEND": "template",
			"ENTALK_LOG_LEVEL":         "error",
		})()

		convey.Convey("When seed runs", func() {
			out, err := run("seed")

			convey.Convey("Then it should list the six venues", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Üsküdar")
				convey.So(out, convey.ShouldContainSubstring, "Saturday")
				convey.So(strings.Count(strings.TrimSpace(out), "\n"), convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When a deck is generated", func() {
			out, err := run("deck", "generate", "--location", "L1", "--occasion", "occ-1")

			convey.Convey("Then it should print the code and fifteen questions", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(codeLine.MatchString(out), convey.ShouldBeTrue)
				convey.So(out, convey.ShouldContainSubstring, "\n15 ")
			})
		})

		convey.Convey("When required flags are missing", func() {
			_, err := run("deck", "generate", "--location", "L1")

			convey.Convey("Then the command should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})

	convey.Convey("Given a sqlite-backed configuration", t, func() {
		dir, err := os.MkdirTemp("", "entalk-cmd")
		convey.So(err, convey.ShouldBeNil)
		defer os.RemoveAll(dir)
		defer setenv(map[string]string{
			"ENTALK_STORE_DRIVER":      "sqlite",
			"ENTALK_STORE_PATH":        filepath.Join(dir, "entalk.db"),
			"ENTALK_GENERATOR_BACKEND": "template",
			"ENTALK_LOG_LEVEL":         "error",
		})()

		convey.Convey("When a deck is generated and then shown by code", func() {
			out, err := run("deck", "generate", "--location", "L1", "--occasion", "occ-1")
			convey.So(err, convey.ShouldBeNil)
			code := codeLine.FindStringSubmatch(out)[1]

			shown, err := run("deck", "show", "--code", strings.ToLower(code), "--json")

			convey.Convey("Then the deck should survive across runs", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(shown, convey.ShouldContainSubstring, `"access_code": "`+code+`"`)
			})
		})

		convey.Convey("When an unknown code is shown", func() {
			_, err := run("deck", "show", "--code", "ZZZZZZZZ")

			convey.Convey("Then it should report it", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "no deck")
			})
		})
	})

	convey.Convey("Given an invalid configuration", t, func() {
		defer setenv(map[string]string{"ENTALK_STORE_DRIVER": "postgres"})()

		convey.Convey("Then every command should fail before running", func() {
			_, err := run("seed")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestWiring(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New(ctx)

		convey.Convey("When openai is selected without a key", func() {
			cfg.GeneratorBackend = config.GeneratorOpenAI
			cfg.GeneratorAPIKey = ""

			convey.Convey("Then templates should be used", func() {
				convey.So(newGenerator(ctx, cfg, logger.Get()).Name(), convey.ShouldEqual, "template")
			})
		})

		convey.Convey("When openai is selected with a key", func() {
			cfg.GeneratorAPIKey = "sk-test"

			convey.Convey("Then the openai backend should be used", func() {
				convey.So(newGenerator(ctx, cfg, logger.Get()).Name(), convey.ShouldEqual, "openai")
			})
		})

		convey.Convey("When the redis lock points at nothing", func() {
			cfg.LockDriver = config.LockRedis
			cfg.RedisAddr = "127.0.0.1:1"
			_, err := newService(ctx, cfg)

			convey.Convey("Then wiring should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "redis")
			})
		})

		convey.Convey("When the store cannot be opened", func() {
			blocker := filepath.Join(t.TempDir(), "not-a-dir")
			convey.So(os.WriteFile(blocker, []byte("x"), 0o600), convey.ShouldBeNil)
			cfg.StoreDriver = config.StoreSQLite
			cfg.StorePath = filepath.Join(blocker, "entalk.db")
			locker := &countingLocker{Local: lock.NewLocal()}
			_, err := assemble(ctx, cfg, locker)

			convey.Convey("Then the locker should be released", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(locker.closes, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When an assembled service stops", func() {
			locker := &countingLocker{Local: lock.NewLocal()}
			svc, err := assemble(ctx, cfg, locker)
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			svc.Stop()

			convey.Convey("Then it should close the locker", func() {
				convey.So(locker.closes, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When the service is built", func() {
			svc, err := newService(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then metric updaters should run without error", func() {
				updateSystemMetrics()
				updateServiceMetrics(ctx, svc)
			})
		})
	})

	convey.Convey("Given a periodic task", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ticks := make(chan struct{}, 1)
		done := make(chan struct{})
		go func() {
			every(ctx, time.Millisecond, func() {
				select {
				case ticks <- struct{}{}:
				default:
				}
			})
			close(done)
		}()

		convey.Convey("Then it should tick until cancelled", func() {
			<-ticks
			cancel()
			select {
			case <-done:
			case <-time.After(time.Second):
				convey.So("every did not return", convey.ShouldBeEmpty)
			}
		})
	})
}
