package model_test

import (
	"errors"
	"strings"
	"testing"

	model "github.com/okian/scool/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func score(v int64) *int64 { return &v }
func progress(v int) *int  { return &v }

func TestSubmissionValidation(t *testing.T) {
	convey.Convey("Given score submissions", t, func() {
		convey.Convey("When every field is present", func() {
			err := model.Validate(model.Submission{Username: "alice", DisplayName: "Alice", Score: score(1200)})

			convey.Convey("Then it is valid", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the score is zero", func() {
			err := model.Validate(model.Submission{Username: "alice", DisplayName: "Alice", Score: score(0)})

			convey.Convey("Then it is still valid", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the score is missing", func() {
			err := model.Validate(model.Submission{Username: "alice", DisplayName: "Alice"})

			convey.Convey("Then the error names the score field", func() {
				convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "score is required")
			})
		})

		convey.Convey("When the score is negative", func() {
			err := model.Validate(model.Submission{Username: "alice", DisplayName: "Alice", Score: score(-1)})

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "score must be at least 0")
			})
		})

		convey.Convey("When the username is blank", func() {
			err := model.Validate(model.Submission{Username: "   ", DisplayName: "Alice", Score: score(5)})

			convey.Convey("Then it is rejected", func() {
				convey.So(err.Error(), convey.ShouldContainSubstring, "username is required")
			})
		})

		convey.Convey("When the display name is empty", func() {
			err := model.Validate(model.Submission{Username: "alice", Score: score(5)})

			convey.Convey("Then it is rejected by its JSON name", func() {
				convey.So(err.Error(), convey.ShouldContainSubstring, "name is required")
			})
		})

		convey.Convey("When identifiers carry whitespace", func() {
			s := model.Submission{Username: "  alice ", DisplayName: " Alice  ", Score: score(1)}
			s.Normalize()

			convey.Convey("Then Normalize trims them", func() {
				convey.So(s.Username, convey.ShouldEqual, "alice")
				convey.So(s.DisplayName, convey.ShouldEqual, "Alice")
			})
		})
	})
}

func TestRegistrationValidation(t *testing.T) {
	convey.Convey("Given registrations", t, func() {
		valid := model.Registration{Email: "Maria.K@school.ru", Password: "secret1", FullName: "Maria K.", ClassNumber: 7}

		convey.Convey("Then a complete one is valid", func() {
			convey.So(model.Validate(valid), convey.ShouldBeNil)
		})

		convey.Convey("Then the username defaults to the email local part", func() {
			convey.So(valid.DerivedUsername(), convey.ShouldEqual, "maria.k")
		})

		convey.Convey("Then an explicit username wins", func() {
			r := valid
			r.Username = "maria_k"
			convey.So(model.Validate(r), convey.ShouldBeNil)
			convey.So(r.DerivedUsername(), convey.ShouldEqual, "maria_k")
		})

		convey.Convey("Then a class outside 1..11 is rejected", func() {
			r := valid
			r.ClassNumber = 12
			err := model.Validate(r)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "classNumber must be at most 11")
		})

		convey.Convey("Then a malformed email is rejected", func() {
			r := valid
			r.Email = "not-an-email"
			err := model.Validate(r)
			convey.So(err.Error(), convey.ShouldContainSubstring, "email must be a valid email address")
		})

		convey.Convey("Then a short password is rejected", func() {
			r := valid
			r.Password = "123"
			convey.So(model.Validate(r), convey.ShouldNotBeNil)
		})

		convey.Convey("Then a username with spaces is rejected", func() {
			r := valid
			r.Username = "maria k"
			err := model.Validate(r)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "username may only contain")
		})

		convey.Convey("Then dots and dashes are part of the username alphabet", func() {
			r := valid
			r.Username = "maria.k-7"
			convey.So(model.Validate(r), convey.ShouldBeNil)
		})

		convey.Convey("Then a derived username only keeps the username alphabet", func() {
			r := valid
			r.Email = "Maria+Tests@school.ru"
			convey.So(model.Validate(r), convey.ShouldBeNil)
			convey.So(r.DerivedUsername(), convey.ShouldEqual, "maria_tests")
		})

		convey.Convey("Then an overlong derived username is rejected", func() {
			r := valid
			r.Email = strings.Repeat("m", 64) + ".k@school.ru"
			convey.So(errors.Is(model.Validate(r), model.ErrValidation), convey.ShouldBeTrue)
		})
	})
}

func TestSubjectProgressValidation(t *testing.T) {
	convey.Convey("Given subject progress updates", t, func() {
		convey.So(model.Validate(model.SubjectProgress{Name: "Physics", Class: 7, Progress: progress(0)}), convey.ShouldBeNil)
		convey.So(model.Validate(model.SubjectProgress{Name: "Physics", Class: 7, Progress: progress(100)}), convey.ShouldBeNil)
		convey.So(model.Validate(model.SubjectProgress{Name: "Physics", Class: 7, Progress: progress(101)}), convey.ShouldNotBeNil)
		convey.So(model.Validate(model.SubjectProgress{Name: "Physics", Class: 0, Progress: progress(10)}), convey.ShouldNotBeNil)
		convey.So(model.Validate(model.SubjectProgress{Name: "Physics", Class: 7}), convey.ShouldNotBeNil)
	})
}

func TestCredentialsValidation(t *testing.T) {
	convey.Convey("Given login credentials", t, func() {
		convey.So(model.Validate(model.Credentials{Email: "a@b.co", Password: "x"}), convey.ShouldBeNil)
		convey.So(model.Validate(model.Credentials{Email: "a@b.co"}), convey.ShouldNotBeNil)
	})
}
