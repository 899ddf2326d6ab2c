package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp-hack/server/internal/api/problem"
)

type member struct {
	Email       string    `json:"email" validate:"required,email"`
	DateOfBirth time.Time `json:"dateOfBirth" validate:"minage=12,maxage=35"`
}

type signup struct {
	Name    string   `json:"name" validate:"required,min=3,max=40"`
	Team    *string  `json:"commandName" validate:"omitempty,min=3"`
	Members []member `json:"members" validate:"min=1,dive"`
	Consent bool     `json:"consent" validate:"eq=true"`
}

func (signup) ValidationMessages() map[string]string {
	return map[string]string{
		"name.min":           "Имя слишком короткое!",
		"name.type":          "Имя не является строкой!",
		"email.email":        "Неверный email!",
		"consent.eq":         "Не дано согласие на обработку данных!",
		"dateOfBirth.minage": "Слишком молод!",
	}
}

func fixedValidator(now time.Time) *Validator {
	v := New()
	v.now = func() time.Time { return now }
	return v
}

func validSignup(now time.Time) signup {
	return signup{
		Name:    "Анна",
		Members: []member{{Email: "a@example.com", DateOfBirth: now.AddDate(-20, 0, 0)}},
		Consent: true,
	}
}

func asProblem(t *testing.T, err error) *problem.Error {
	t.Helper()
	var pe *problem.Error
	require.True(t, errors.As(err, &pe), "expected *problem.Error, got %T", err)
	return pe
}

func TestStruct_Valid(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	in := validSignup(now)
	assert.NoError(t, fixedValidator(now).Struct(&in))
}

func TestStruct_CustomMessageAndFirstField(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	in := validSignup(now)
	in.Name = "Ан"
	in.Consent = false

	pe := asProblem(t, fixedValidator(now).Struct(&in))
	assert.Equal(t, problem.CodeBadRequest, pe.Code)
	assert.Equal(t, "Имя слишком короткое!", pe.Message)
	assert.Equal(t, []string{"Имя слишком короткое!"}, pe.Validation.FieldErrors["name"])
	assert.Equal(t, []string{"Не дано согласие на обработку данных!"}, pe.Validation.FieldErrors["consent"])
	assert.Empty(t, pe.Validation.FormErrors)
}

func TestStruct_NestedErrorsGroupedUnderTopLevelField(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	in := validSignup(now)
	in.Members = append(in.Members, member{Email: "broken", DateOfBirth: now.AddDate(-5, 0, 0)})

	pe := asProblem(t, fixedValidator(now).Struct(&in))
	assert.Equal(t, []string{"Неверный email!", "Слишком молод!"}, pe.Validation.FieldErrors["members"])
}

func TestStruct_AgeBounds(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	v := fixedValidator(now)

	for _, tc := range []struct {
		dob   time.Time
		valid bool
	}{
		{now.AddDate(-12, 0, 0), true},
		{now.AddDate(-35, 0, 0), true},
		{now.AddDate(-12, 0, 1), false},
		{now.AddDate(-35, 0, -1), false},
	} {
		in := validSignup(now)
		in.Members[0].DateOfBirth = tc.dob
		err := v.Struct(&in)
		if tc.valid {
			assert.NoError(t, err, tc.dob)
		} else {
			assert.Error(t, err, tc.dob)
		}
	}
}

func TestStruct_FallsBackToRussianTranslation(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	in := validSignup(now)
	short := "ab"
	in.Team = &short

	pe := asProblem(t, fixedValidator(now).Struct(&in))
	require.Len(t, pe.Validation.FieldErrors["commandName"], 1)
	assert.NotEmpty(t, pe.Validation.FieldErrors["commandName"][0])
	assert.NotContains(t, pe.Validation.FieldErrors["commandName"][0], "Key:")
}

func TestDecode_TypeMismatch(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name": 42}`))
	var in signup

	pe := asProblem(t, New().Decode(req, &in))
	assert.Equal(t, "Имя не является строкой!", pe.Message)
	assert.Equal(t, []string{"Имя не является строкой!"}, pe.Validation.FieldErrors["name"])
}

func TestDecode_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	var in signup

	pe := asProblem(t, New().Decode(req, &in))
	assert.Equal(t, problem.CodeBadRequest, pe.Code)
	assert.Equal(t, []string{"Неверный ввод!"}, pe.Validation.FormErrors)
}

func TestDecode_EmptyBodyStillValidated(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var in signup

	pe := asProblem(t, New().Decode(req, &in))
	assert.Contains(t, pe.Validation.FieldErrors, "name")
}

func TestTopLevelField(t *testing.T) {
	assert.Equal(t, "participants", topLevelField("participants[1].email"))
	assert.Equal(t, "participants", topLevelField("participants.email"))
	assert.Equal(t, "name", topLevelField("name"))
	assert.Equal(t, "name", topLevelField(withoutRoot("signup.name")))
}
