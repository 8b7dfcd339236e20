package contest_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/neussi/comsas-uy1.com/core/contest"
	"github.com/neussi/comsas-uy1.com/tests"
)

func TestBallot(t *testing.T) {
	validate, _ := testutil.NewValidator()

	tests := []struct {
		name          string
		ballot        Ballot
		wantPresent   bool
		wantFmtFields []string
	}{
		{name: "empty", ballot: Ballot{}},
		{name: "blank matricule", ballot: Ballot{Email: "a@test.cm", Matricule: "  "}},
		{name: "plain", ballot: Ballot{Email: "A@Test.cm ", Matricule: "20u1234"}, wantPresent: true},
		{name: "dash", ballot: Ballot{Email: "a@test.cm", Matricule: "20U-1234"}, wantPresent: true},
		{name: "slash", ballot: Ballot{Email: "a@test.cm", Matricule: "20/INF/001"}, wantPresent: true},
		{name: "malformed email", ballot: Ballot{Email: "nope", Matricule: "20U1"}, wantPresent: true, wantFmtFields: []string{"Email"}},
		{name: "underscore", ballot: Ballot{Email: "a@test.cm", Matricule: "20U_1"}, wantPresent: true, wantFmtFields: []string{"Matricule"}},
		{name: "trailing dash", ballot: Ballot{Email: "a@test.cm", Matricule: "20U-"}, wantPresent: true, wantFmtFields: []string{"Matricule"}},
		{name: "too long", ballot: Ballot{Email: "a@test.cm", Matricule: "123456789012345678901"}, wantPresent: true, wantFmtFields: []string{"Matricule"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.ballot
			err := b.Validate()
			if !tt.wantPresent {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)

			err = b.ValidateFormat(validate)
			if len(tt.wantFmtFields) == 0 {
				assert.NoError(t, err)
				return
			}
			var fields []string
			if assert.IsType(t, validator.ValidationErrors{}, err) {
				for _, fe := range err.(validator.ValidationErrors) {
					fields = append(fields, fe.StructField())
				}
			}
			assert.Equal(t, tt.wantFmtFields, fields)
		})
	}
}
