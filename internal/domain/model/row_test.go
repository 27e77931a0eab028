package model_test

import (
	"testing"

	model "github.com/okian/vists/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestSchema(t *testing.T) {
	convey.Convey("Given the default schema", t, func() {
		s := model.DefaultSchema()

		convey.Convey("Then every field has a label", func() {
			for _, f := range model.Fields {
				convey.So(s.Label(f), convey.ShouldNotBeEmpty)
			}
			convey.So(s.Label(model.FieldVists), convey.ShouldEqual, "Висты")
		})

		convey.Convey("When overriding some labels", func() {
			custom := model.NewSchema(map[model.Field]string{
				model.FieldPlayer: "player",
				model.FieldDate:   "",
			})

			convey.Convey("Then only non-empty overrides apply", func() {
				convey.So(custom.Label(model.FieldPlayer), convey.ShouldEqual, "player")
				convey.So(custom.Label(model.FieldDate), convey.ShouldEqual, s.Label(model.FieldDate))
			})
		})
	})
}

func TestFieldAndGameID(t *testing.T) {
	convey.Convey("Given fields and game ids", t, func() {
		convey.So(model.FieldRatingAfter.String(), convey.ShouldEqual, "rating_after")
		convey.So(model.Field(42).String(), convey.ShouldEqual, "field(42)")
		convey.So(model.GameID(17).String(), convey.ShouldEqual, "17")
		convey.So(len(model.ComputedFields), convey.ShouldEqual, 4)
	})
}

func TestTableClone(t *testing.T) {
	convey.Convey("Given a table", t, func() {
		tbl := model.Table{{"a", "b"}, {"1", "2"}}
		clone := tbl.Clone()
		clone[1][0] = "changed"

		convey.Convey("Then the clone does not share rows", func() {
			convey.So(tbl[1][0], convey.ShouldEqual, "1")
		})
	})
}
