package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/FrancoisMichell/seirin-sub000/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

var timeOfDay = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)

// customTags maps each domain tag to its check and English message.
var customTags = []struct {
	tag     string
	fn      govalidator.Func
	message string
}{
	{"belt", func(fl govalidator.FieldLevel) bool {
		return model.Belt(fl.Field().String()).Valid()
	}, "{0} must be one of White, Yellow, Orange, Green, Blue, Purple, Brown, Black"},
	{"weekday", func(fl govalidator.FieldLevel) bool {
		day := fl.Field().String()
		for _, d := range model.Weekdays {
			if d == day {
				return true
			}
		}
		return false
	}, "{0} must be a lowercase weekday name"},
	{"timeofday", func(fl govalidator.FieldLevel) bool {
		return timeOfDay.MatchString(fl.Field().String())
	}, "{0} must be a time formatted as HH:MM or HH:MM:SS"},
	{"attendancestatus", func(fl govalidator.FieldLevel) bool {
		return model.AttendanceStatus(fl.Field().String()).Valid()
	}, "{0} must be one of pending, present, late, absent, excused"},
}

// Setup registers the validator with English translations and the domain
// tags on Gin's binding engine. Call once during application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		Register(v)
	}
}

// Register configures v. Exposed for callers that validate outside Gin.
func Register(v *govalidator.Validate) {
	// JSON tag names in messages, falling back to form tags for query structs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	// Optional fields validate as their inner value; absent and null skip.
	v.RegisterCustomTypeFunc(unwrapOptional[string], model.Optional[string]{})
	v.RegisterCustomTypeFunc(unwrapOptional[int], model.Optional[int]{})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	en_translations.RegisterDefaultTranslations(v, trans)

	for _, ct := range customTags {
		v.RegisterValidation(ct.tag, ct.fn)
		message := ct.message
		v.RegisterTranslation(ct.tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(ct.tag, message, true)
			},
			func(ut ut.Translator, fe govalidator.FieldError) string {
				t, _ := ut.T(fe.Tag(), fe.Field())
				return t
			},
		)
	}
}

func unwrapOptional[T any](field reflect.Value) interface{} {
	o, ok := field.Interface().(model.Optional[T])
	if !ok || !o.Set || o.Value == nil {
		return nil
	}
	return *o.Value
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fieldPath(fe)] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// fieldPath keeps slice indexes ("daysOfWeek[1]") but drops the struct name.
func fieldPath(fe govalidator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// BindQuery binds and validates the query string into dst.
func BindQuery(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindQuery(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
