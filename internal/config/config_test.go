package config_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/vists/internal/config"
	"github.com/okian/vists/internal/domain/model"
	"github.com/okian/vists/pkg/metrics"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 1024)
			convey.So(cfg.RosterMin, convey.ShouldEqual, 2)
			convey.So(cfg.RosterMax, convey.ShouldEqual, 0)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.Settings(), convey.ShouldResemble, model.Settings{InitialRating: 1500, KFactor: 32, DifferenceDivisor: 400})
		})

		convey.Convey("Then the schema falls back to the default labels", func() {
			cfg.ColumnPlayer = "Player"
			schema := cfg.Schema()
			convey.So(schema.Label(model.FieldPlayer), convey.ShouldEqual, "Player")
			convey.So(schema.Label(model.FieldVists), convey.ShouldEqual, model.DefaultSchema().Label(model.FieldVists))
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one invalid value", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"zero queue", func(c *config.Config) { c.QueueSize = 0 }},
			{"zero dedupe", func(c *config.Config) { c.DedupeSize = 0 }},
			{"zero limit", func(c *config.Config) { c.MaxLeaderboardLimit = 0 }},
			{"zero divisor", func(c *config.Config) { c.DifferenceDivisor = 0 }},
			{"roster min of one", func(c *config.Config) { c.RosterMin = 1 }},
			{"roster max too low", func(c *config.Config) { c.RosterMin = 3; c.RosterMax = 2 }},
			{"unordered buckets", func(c *config.Config) { c.MetricsBuckets = []float64{5, 5} }},
		}
		for _, tc := range cases {
			cfg := config.New()
			tc.mutate(cfg)
			convey.Convey("Then "+tc.name+" is rejected", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func TestConfig_MetricsOptions(t *testing.T) {
	convey.Convey("Given a config naming its metrics", t, func() {
		cfg := config.New()
		cfg.MetricsNamespace = "elo"
		cfg.MetricsInstance = "east"
		cfg.MetricsBuckets = []float64{1, 10}

		registry := prometheus.NewRegistry()
		metrics.NewManager(append(cfg.MetricsOptions(), metrics.WithPrometheusRegistry(registry))...)

		convey.Convey("Then the collectors use the namespace and instance label", func() {
			families, err := registry.Gather()
			convey.So(err, convey.ShouldBeNil)
			found := false
			for _, f := range families {
				if f.GetName() != "elo_ratings_queue_size" {
					continue
				}
				found = true
				labels := f.GetMetric()[0].GetLabel()
				convey.So(labels, convey.ShouldHaveLength, 1)
				convey.So(labels[0].GetName(), convey.ShouldEqual, "instance")
				convey.So(labels[0].GetValue(), convey.ShouldEqual, "east")
			}
			convey.So(found, convey.ShouldBeTrue)
		})
	})
}

func TestParseSettings(t *testing.T) {
	base := model.Settings{InitialRating: 1500, KFactor: 32, DifferenceDivisor: 400}

	convey.Convey("Given a settings sheet", t, func() {
		convey.Convey("When every key is present", func() {
			got, err := config.ParseSettings(base, map[string]string{
				model.SettingInitialRating:     "1200,5",
				model.SettingKFactor:           "24.5",
				model.SettingDifferenceDivisor: " 300 ",
				"comment":                      "ignored",
			})

			convey.Convey("Then values are parsed and integers rounded half up", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.InitialRating, convey.ShouldEqual, 1200.5)
				convey.So(got.KFactor, convey.ShouldEqual, 25)
				convey.So(got.DifferenceDivisor, convey.ShouldEqual, 300)
			})
		})

		convey.Convey("When a value lies halfway between integers", func() {
			cases := map[string]int{"-2.5": -2, "-3.5": -3, "2.5": 3, "-2.6": -3, "0.49": 0}
			for raw, want := range cases {
				got, err := config.ParseSettings(base, map[string]string{model.SettingKFactor: raw})
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.KFactor, convey.ShouldEqual, want)
			}

			got, err := config.ParseSettings(base, map[string]string{model.SettingDifferenceDivisor: "399,5"})
			convey.So(err, convey.ShouldBeNil)
			convey.So(got.DifferenceDivisor, convey.ShouldEqual, 400)
		})

		convey.Convey("When values are blank", func() {
			got, err := config.ParseSettings(base, map[string]string{model.SettingKFactor: ""})

			convey.Convey("Then the base is kept", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldResemble, base)
			})
		})

		convey.Convey("When a value is not a number", func() {
			_, err := config.ParseSettings(base, map[string]string{model.SettingKFactor: "many"})

			convey.Convey("Then an error is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidSettings), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the divisor rounds to zero", func() {
			_, err := config.ParseSettings(base, map[string]string{model.SettingDifferenceDivisor: "0.4"})

			convey.Convey("Then an error is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidSettings), convey.ShouldBeTrue)
			})
		})
	})
}
