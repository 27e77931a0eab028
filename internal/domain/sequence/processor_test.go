package sequence_test

import (
	"errors"
	"testing"

	"github.com/okian/vists/internal/domain/game"
	"github.com/okian/vists/internal/domain/ledger"
	"github.com/okian/vists/internal/domain/model"
	"github.com/okian/vists/internal/domain/sequence"
	. "github.com/smartystreets/goconvey/convey"
)

func newLedger() *ledger.Ledger {
	s := model.DefaultSchema()
	head := make([]string, 0, len(model.Fields))
	for _, f := range model.Fields {
		head = append(head, s.Label(f))
	}
	l, err := ledger.New(model.Table{
		head,
		{"5", "d", "A", "1", "", "", "", ""},
		{"5", "d", "B", "2", "", "", "", ""},
		{"1", "d", "A", "3", "", "", "", ""},
		{"1", "d", "B", "3", "", "", "", ""},
	})
	if err != nil {
		panic(err)
	}
	return l
}

func fill(snap *game.Snapshot) {
	updates := make(map[string]game.Update)
	for _, p := range snap.Players() {
		updates[p] = game.Full(game.Values{RatingBefore: 1, ExpectedResult: 0.5, Result: 0.5, RatingAfter: 1})
	}
	if err := snap.Merge(updates); err != nil {
		panic(err)
	}
}

func TestProcessorProtocol(t *testing.T) {
	Convey("Given a processor over two games", t, func() {
		p := sequence.New(newLedger())

		Convey("Then it starts idle and unfinished", func() {
			So(p.IsFinished(), ShouldBeFalse)
			So(p.Len(), ShouldEqual, 2)
			So(p.Pending(), ShouldBeNil)
		})

		Convey("When requesting the first game", func() {
			snap, err := p.Next()
			So(err, ShouldBeNil)

			Convey("Then the lowest id comes first", func() {
				So(snap.ID(), ShouldEqual, 1)
				So(p.Pending(), ShouldEqual, snap)
			})

			Convey("Then asking again before commit fails", func() {
				_, err := p.Next()
				So(errors.Is(err, sequence.ErrPendingCommit), ShouldBeTrue)
			})

			Convey("Then committing an incomplete snapshot fails and keeps the game pending", func() {
				err := p.Commit(snap)
				So(errors.Is(err, game.ErrIncompleteSnapshot), ShouldBeTrue)
				So(p.Committed(), ShouldEqual, 0)
				_, err = p.Next()
				So(errors.Is(err, sequence.ErrPendingCommit), ShouldBeTrue)
			})

			Convey("Then committing a foreign snapshot fails", func() {
				other, err := game.New(5, []game.Participant{{Player: "A"}, {Player: "B"}})
				So(err, ShouldBeNil)
				fill(other)
				So(errors.Is(p.Commit(other), sequence.ErrNotCurrentGame), ShouldBeTrue)
				So(errors.Is(p.Commit(nil), sequence.ErrNotCurrentGame), ShouldBeTrue)
			})

			Convey("And the full sequence is walked with commits", func() {
				fill(snap)
				So(p.Commit(snap), ShouldBeNil)
				So(p.IsFinished(), ShouldBeFalse)

				second, err := p.Next()
				So(err, ShouldBeNil)
				So(second.ID(), ShouldEqual, 5)
				fill(second)
				So(p.Commit(second), ShouldBeNil)

				Convey("Then the processor is done", func() {
					So(p.IsFinished(), ShouldBeTrue)
					So(p.Committed(), ShouldEqual, 2)
					_, err := p.Next()
					So(errors.Is(err, sequence.ErrSequenceExhausted), ShouldBeTrue)
				})

				Convey("Then recommitting a finished game fails", func() {
					So(errors.Is(p.Commit(second), sequence.ErrNotCurrentGame), ShouldBeTrue)
				})
			})
		})

		Convey("When committing without a pending game", func() {
			snap, err := game.New(1, []game.Participant{{Player: "A"}, {Player: "B"}})
			So(err, ShouldBeNil)
			fill(snap)

			Convey("Then it fails as not current", func() {
				So(errors.Is(p.Commit(snap), sequence.ErrNotCurrentGame), ShouldBeTrue)
			})
		})
	})
}

type emptySource struct{}

func (emptySource) OrderedGameIDs() []model.GameID { return nil }
func (emptySource) GameView(model.GameID) (*game.Snapshot, error) { return nil, errors.New("unreachable") }
func (emptySource) Commit(game.Sealed) error { return nil }

type failingSource struct{ emptySource }

func (failingSource) OrderedGameIDs() []model.GameID { return []model.GameID{1} }
func (failingSource) GameView(id model.GameID) (*game.Snapshot, error) {
	return game.New(id, []game.Participant{{Player: "A"}, {Player: "B"}})
}
func (failingSource) Commit(game.Sealed) error { return errors.New("disk full") }

func TestProcessorEdges(t *testing.T) {
	Convey("Given an empty source", t, func() {
		p := sequence.New(emptySource{})

		Convey("Then it is finished immediately and next is exhausted", func() {
			So(p.IsFinished(), ShouldBeTrue)
			_, err := p.Next()
			So(errors.Is(err, sequence.ErrSequenceExhausted), ShouldBeTrue)
		})
	})

	Convey("Given a source whose commit fails", t, func() {
		p := sequence.New(failingSource{})
		snap, err := p.Next()
		So(err, ShouldBeNil)
		fill(snap)

		Convey("Then the error surfaces and the cursor does not advance", func() {
			err := p.Commit(snap)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "disk full")
			So(p.Committed(), ShouldEqual, 0)
			So(p.IsFinished(), ShouldBeFalse)
		})
	})
}
