package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/vists/internal/app"
	"github.com/okian/vists/internal/adapters/repository"
	"github.com/okian/vists/internal/domain/model"
	"github.com/okian/vists/internal/domain/types"
	"github.com/okian/vists/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(&bytes.Buffer{})); err != nil {
		panic(err)
	}
}

func waitForRun(svc *service.Service, id string) types.Run {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		r, err := svc.Run(context.Background(), id)
		if err == nil && (r.State == types.RunDone || r.State == types.RunFailed) {
			return r
		}
		time.Sleep(5 * time.Millisecond)
	}
	return types.Run{}
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service that is not started", t, func() {
		svc := service.New()

		Convey("Then submissions and reads are refused", func() {
			_, err := svc.Submit(context.Background(), threePlayerTable(), nil)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.TopN(context.Background(), 1)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})
}

func TestServiceSubmit(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		svc := service.New(service.WithQueueSize(4), service.WithDedupeSize(16))
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		Convey("When a valid table is submitted", func() {
			sub, err := svc.Submit(ctx, threePlayerTable(), nil)
			So(err, ShouldBeNil)
			So(sub.RunID, ShouldNotBeEmpty)
			So(sub.Duplicate, ShouldBeFalse)

			run := waitForRun(svc, sub.RunID)

			Convey("Then the run completes and standings are published", func() {
				So(run.State, ShouldEqual, types.RunDone)
				So(run.Games, ShouldEqual, 2)
				So(run.Players, ShouldEqual, 3)

				top, err := svc.TopN(ctx, 3)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 3)
				So(top[0].Rank, ShouldEqual, 1)

				c, err := svc.Rank(ctx, "C")
				So(err, ShouldBeNil)
				So(c.Games, ShouldEqual, 2)
			})

			Convey("Then the same table is reported as a duplicate", func() {
				again, err := svc.Submit(ctx, threePlayerTable(), nil)
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeTrue)
				So(again.RunID, ShouldEqual, sub.RunID)
			})

			Convey("Then different settings make a new run", func() {
				settings := model.Settings{InitialRating: 1000, KFactor: 16, DifferenceDivisor: 400}
				other, err := svc.Submit(ctx, threePlayerTable(), &settings)
				So(err, ShouldBeNil)
				So(other.Duplicate, ShouldBeFalse)
				So(waitForRun(svc, other.RunID).State, ShouldEqual, types.RunDone)

				b, err := svc.Rank(ctx, "B")
				So(err, ShouldBeNil)
				So(b.Rating, ShouldEqual, 1000)
			})
		})

		Convey("When an invalid table is submitted", func() {
			bad := append(threePlayerTable(), row("2", "A", "9"))
			sub, err := svc.Submit(ctx, bad, nil)
			So(err, ShouldBeNil)

			run := waitForRun(svc, sub.RunID)

			Convey("Then the run fails and standings are untouched", func() {
				So(run.State, ShouldEqual, types.RunFailed)
				So(run.Error, ShouldContainSubstring, "duplicate")
				_, err := svc.Rank(ctx, "A")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then it may be submitted again", func() {
				again, err := svc.Submit(ctx, bad, nil)
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeFalse)
			})
		})

		Convey("When an unknown run is requested", func() {
			_, err := svc.Run(ctx, "nope")
			So(errors.Is(err, service.ErrRunNotFound), ShouldBeTrue)
		})

		Convey("When stats are requested", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["queueSize"], ShouldEqual, 4)
		})
	})
}

func TestServiceEviction(t *testing.T) {
	Convey("Given a service that remembers two runs", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		svc := service.New(service.WithQueueSize(4), service.WithDedupeSize(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(context.Background()) }()

		good := threePlayerTable()
		bad := append(threePlayerTable(), row("2", "A", "9"))

		first, err := svc.Submit(ctx, good, nil)
		So(err, ShouldBeNil)
		So(waitForRun(svc, first.RunID).State, ShouldEqual, types.RunDone)

		failed, err := svc.Submit(ctx, bad, nil)
		So(err, ShouldBeNil)
		So(waitForRun(svc, failed.RunID).State, ShouldEqual, types.RunFailed)

		Convey("When the failed table is resubmitted and evicts the first run", func() {
			retry, err := svc.Submit(ctx, bad, nil)
			So(err, ShouldBeNil)
			So(retry.Duplicate, ShouldBeFalse)
			So(waitForRun(svc, retry.RunID).State, ShouldEqual, types.RunFailed)

			_, err = svc.Run(ctx, first.RunID)
			So(errors.Is(err, service.ErrRunNotFound), ShouldBeTrue)

			Convey("Then the first table is queued again under a new run id", func() {
				again, err := svc.Submit(ctx, good, nil)
				So(err, ShouldBeNil)
				So(again.Duplicate, ShouldBeFalse)
				So(again.RunID, ShouldNotBeEmpty)
				So(again.RunID, ShouldNotEqual, first.RunID)
				So(waitForRun(svc, again.RunID).State, ShouldEqual, types.RunDone)
			})
		})
	})
}

func TestServiceStop(t *testing.T) {
	Convey("Given a service with several runs submitted", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		svc := service.New(service.WithQueueSize(8))
		So(svc.Start(ctx), ShouldBeNil)

		var ids []string
		for k := 10; k <= 50; k += 10 {
			settings := model.Settings{InitialRating: 1500, KFactor: k, DifferenceDivisor: 400}
			sub, err := svc.Submit(ctx, threePlayerTable(), &settings)
			So(err, ShouldBeNil)
			ids = append(ids, sub.RunID)
		}

		Convey("When it is stopped", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)

			Convey("Then no run is left queued or running", func() {
				for _, id := range ids {
					r, err := svc.Run(ctx, id)
					So(err, ShouldBeNil)
					So(r.State, ShouldBeIn, types.RunDone, types.RunFailed)
					if r.State == types.RunFailed {
						So(r.Error, ShouldContainSubstring, "shut down")
					}
				}
			})
		})
	})
}
