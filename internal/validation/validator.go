package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales/ru"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	ru_translations "github.com/go-playground/validator/v10/translations/ru"

	"github.com/sp-hack/server/internal/api/problem"
)

// Messages is implemented by input types that want their own wording for
// individual rules. Keys are "<json field>.<tag>", e.g. "email.email".
// The pseudo tag "type" covers JSON type mismatches.
type Messages interface {
	ValidationMessages() map[string]string
}

// Validator checks decoded inputs and renders failures as the flattened
// field breakdown clients expect.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
	now      func() time.Time
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}

	locale := ru.New()
	uni := ut.New(locale, locale)
	v.trans, _ = uni.GetTranslator("ru")
	_ = ru_translations.RegisterDefaultTranslations(v.validate, v.trans)

	v.validate.RegisterTagNameFunc(jsonFieldName)
	_ = v.validate.RegisterValidation("minage", v.minAge)
	_ = v.validate.RegisterValidation("maxage", v.maxAge)
	return v
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// minAge passes when the time.Time field lies at least N years in the past.
func (v *Validator) minAge(fl validator.FieldLevel) bool {
	years, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !t.After(v.now().AddDate(-years, 0, 0))
}

// maxAge passes when the time.Time field lies at most N years in the past.
func (v *Validator) maxAge(fl validator.FieldLevel) bool {
	years, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return !t.Before(v.now().AddDate(-years, 0, 0))
}

// Struct validates input. It returns nil or a BadInput *problem.Error whose
// message is the first offending field's message.
func (v *Validator) Struct(input any) error {
	err := v.validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return problem.Internal(fmt.Errorf("validate input: %w", err))
	}

	custom := messagesOf(input)
	out := &problem.ValidationErrors{FormErrors: []string{}, FieldErrors: map[string][]string{}}
	var order []string
	for _, fe := range verrs {
		key := topLevelField(withoutRoot(fe.Namespace()))
		msg, ok := custom[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Translate(v.trans)
		}
		if _, seen := out.FieldErrors[key]; !seen {
			order = append(order, key)
		}
		out.FieldErrors[key] = append(out.FieldErrors[key], msg)
	}
	return problem.Invalid(out, order)
}

// Decode reads a JSON body into dst and validates it. Malformed JSON and
// type mismatches are reported as BadInput like rule violations.
func (v *Validator) Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return v.Struct(dst)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return decodeError(err, messagesOf(dst))
	}
	return v.Struct(dst)
}

func decodeError(err error, custom map[string]string) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		key := topLevelField(typeErr.Field)
		leaf := typeErr.Field[strings.LastIndex(typeErr.Field, ".")+1:]
		msg, ok := custom[leaf+".type"]
		if !ok {
			msg = fmt.Sprintf("%s имеет неверный тип!", leaf)
		}
		return problem.Invalid(&problem.ValidationErrors{
			FormErrors:  []string{},
			FieldErrors: map[string][]string{key: {msg}},
		}, []string{key}).WithCause(err)
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return problem.BadInput("Слишком большой запрос!").WithCause(err)
	}

	var timeErr *time.ParseError
	if errors.As(err, &timeErr) {
		return problem.BadInput("Неверный формат даты!").WithCause(err)
	}

	return problem.Invalid(&problem.ValidationErrors{
		FormErrors:  []string{"Неверный ввод!"},
		FieldErrors: map[string][]string{},
	}, nil).WithCause(err)
}

func messagesOf(input any) map[string]string {
	if m, ok := input.(Messages); ok {
		return m.ValidationMessages()
	}
	return nil
}

// withoutRoot drops the struct type name validator puts in front of every
// namespace.
func withoutRoot(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// topLevelField maps "participants[1].email" or "participants.email" to
// "participants".
func topLevelField(path string) string {
	head, _, _ := strings.Cut(path, ".")
	if i := strings.IndexByte(head, '['); i >= 0 {
		head = head[:i]
	}
	return head
}
