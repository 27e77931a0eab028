package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/okian/vists/internal/adapters/sqlite"
	"github.com/okian/vists/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openTempStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "workbook.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen(t *testing.T) {
	Convey("Given an empty path", t, func() {
		_, err := sqlite.Open(" ")
		So(err, ShouldNotBeNil)
	})
}

func TestSheetRoundTrip(t *testing.T) {
	ctx := context.Background()

	Convey("Given an imported games sheet", t, func() {
		store := openTempStore(t)
		table := model.Table{
			{"Номер игры", "Игрок", "Висты", "Рейтинг после"},
			{"1", "A", "10", ""},
			{"1", "B", "5"},
		}
		So(store.ImportTable(ctx, "Games", table), ShouldBeNil)

		sh, err := store.LoadSheet(ctx, "Games")
		So(err, ShouldBeNil)

		Convey("Then it loads in row order with padded cells", func() {
			So(sh.Name, ShouldEqual, "Games")
			So(sh.RowIDs, ShouldHaveLength, 2)
			So(sh.Table, ShouldResemble, model.Table{
				{"Номер игры", "Игрок", "Висты", "Рейтинг после"},
				{"1", "A", "10", ""},
				{"1", "B", "5", ""},
			})
		})

		Convey("When computed columns are flushed", func() {
			So(store.Flush(ctx, sh, map[string][]string{
				"Рейтинг после": {"1516", "1484"},
			}), ShouldBeNil)

			Convey("Then only those columns change", func() {
				again, err := store.LoadSheet(ctx, "Games")
				So(err, ShouldBeNil)
				So(again.Table[1], ShouldResemble, []string{"1", "A", "10", "1516"})
				So(again.Table[2], ShouldResemble, []string{"1", "B", "5", "1484"})
			})
		})

		Convey("When a flushed column has a different number of rows", func() {
			err := store.Flush(ctx, sh, map[string][]string{"Рейтинг после": {"1516"}})
			So(errors.Is(err, sqlite.ErrRowMismatch), ShouldBeTrue)
		})

		Convey("When a flushed column does not exist", func() {
			err := store.Flush(ctx, sh, map[string][]string{"Rating": {"1", "2"}})
			So(errors.Is(err, sqlite.ErrColumnMissing), ShouldBeTrue)
		})

		Convey("When the sheet is imported again", func() {
			So(store.ImportTable(ctx, "Games", model.Table{{"x"}, {"1"}}), ShouldBeNil)

			Convey("Then it is replaced", func() {
				again, err := store.LoadSheet(ctx, "Games")
				So(err, ShouldBeNil)
				So(again.Table, ShouldResemble, model.Table{{"x"}, {"1"}})
			})
		})
	})

	Convey("Given a settings sheet", t, func() {
		store := openTempStore(t)
		So(store.ImportTable(ctx, "Settings", model.Table{
			{"key", "value"},
			{"initialRating", "1500"},
			{"k-factor", "32"},
		}), ShouldBeNil)

		kv, err := store.LoadSettings(ctx, "Settings")

		Convey("Then the header is skipped", func() {
			So(err, ShouldBeNil)
			So(kv, ShouldResemble, map[string]string{"initialRating": "1500", "k-factor": "32"})
		})
	})

	Convey("Given a missing sheet", t, func() {
		store := openTempStore(t)
		_, err := store.LoadSheet(ctx, "Nope")
		So(errors.Is(err, sqlite.ErrSheetNotFound), ShouldBeTrue)
	})
}
