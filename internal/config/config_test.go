package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/entalk/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should carry the engine defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.CooldownDays, convey.ShouldEqual, 28)
			convey.So(cfg.CrossLocationLimit, convey.ShouldEqual, 5)
			convey.So(cfg.CoverageQuota, convey.ShouldEqual, 7)
			convey.So(cfg.NoveltyQuota, convey.ShouldEqual, 3)
			convey.So(cfg.DeckTarget, convey.ShouldEqual, 15)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.LockDriver, convey.ShouldEqual, config.LockLocal)
			convey.So(cfg.SeedLocations, convey.ShouldBeTrue)
			convey.So(cfg.FeedbackDedupeSize, convey.ShouldEqual, 50_000)
		})

		convey.Convey("Then durations should be derived from the millisecond fields", func() {
			convey.So(cfg.Cooldown(), convey.ShouldEqual, 28*24*time.Hour)
			convey.So(cfg.GeneratorTimeout(), convey.ShouldEqual, 4*time.Second)
			convey.So(cfg.LockTTL(), convey.ShouldEqual, 30*time.Second)
		})

		convey.Convey("Then it should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := []struct {
			name   string
			mutate func(c *config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"unknown format", func(c *config.Config) { c.LogFormat = "xml" }},
			{"unknown store", func(c *config.Config) { c.StoreDriver = "mongo" }},
			{"sqlite no path", func(c *config.Config) { c.StoreDriver = config.StoreSQLite; c.StorePath = "" }},
			{"unknown lock", func(c *config.Config) { c.LockDriver = "etcd" }},
			{"redis no addr", func(c *config.Config) { c.LockDriver = config.LockRedis; c.RedisAddr = "" }},
			{"unknown generator", func(c *config.Config) { c.GeneratorBackend = "bard" }},
			{"negative cooldown", func(c *config.Config) { c.CooldownDays = -1 }},
			{"zero target", func(c *config.Config) { c.DeckTarget = 0 }},
			{"negative quota", func(c *config.Config) { c.NoveltyQuota = -2 }},
			{"zero timeout", func(c *config.Config) { c.GeneratorTimeoutMS = 0 }},
		}

		for _, tc := range cases {
			cfg := config.New(context.Background())
			tc.mutate(cfg)

			convey.Convey("Then "+tc.name+" should be rejected", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
