package cli

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/okian/vists/internal/config"
	"github.com/okian/vists/internal/domain/types"
	"github.com/okian/vists/internal/ledgergen"
	"github.com/okian/vists/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServe(t *testing.T) {
	Convey("Given a running server", t, func() {
		So(logger.Init(logger.WithWriter(io.Discard)), ShouldBeNil)
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		cfg := config.New()
		cfg.MetricsNamespace = "elo"
		cfg.MetricsInstance = "serve-test"
		go func() { done <- serve(ctx, cfg, ln) }()

		base := "http://" + ln.Addr().String()
		resp, err := http.Get(base + "/healthz")
		So(err, ShouldBeNil)
		_ = resp.Body.Close()
		So(resp.StatusCode, ShouldEqual, http.StatusOK)

		Convey("When metrics are scraped", func() {
			resp, err := http.Get(base + "/metrics")
			So(err, ShouldBeNil)
			body, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			So(err, ShouldBeNil)

			Convey("Then they use the configured namespace and instance", func() {
				So(string(body), ShouldContainSubstring, `elo_ratings_queue_size{instance="serve-test"}`)
			})
		})

		Convey("When a generated ledger is submitted", func() {
			gen := ledgergen.DefaultConfig()
			gen.Games = 20
			gen.Players = 6
			table, err := ledgergen.Generate(gen)
			So(err, ShouldBeNil)

			client := ledgergen.NewClient(base, 5*time.Second)
			sub, err := client.Submit(ctx, table)
			So(err, ShouldBeNil)
			run, err := client.WaitRun(ctx, sub.RunID)
			So(err, ShouldBeNil)

			Convey("Then the standings are published and consistent", func() {
				So(run.State, ShouldEqual, types.RunDone)
				So(run.Games, ShouldEqual, 20)

				entries, err := client.Leaderboard(ctx, run.Players)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, run.Players)
				So(ledgergen.VerifyLeaderboard(entries), ShouldBeNil)
				So(ledgergen.VerifyConservation(entries, 1500, 1e-4), ShouldBeNil)
			})

			Convey("Then resubmitting is reported as a duplicate", func() {
				again, err := client.Submit(ctx, table)
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(again.RunID, ShouldEqual, sub.RunID)
			})
		})

		Reset(func() {
			cancel()
			So(<-done, ShouldBeNil)
		})
	})
}
