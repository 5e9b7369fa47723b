// Package inputval validates decoded request bodies with waffle/pantry/validate
// and collects failures per JSON field.
//
//	type subscribeInput struct {
//	    BlogID string `json:"blogId" validate:"required,objectid" label:"Blog ID"`
//	    Email  string `json:"email" validate:"required,subemail" label:"Email"`
//	}
//
//	if res := inputval.Validate(in); res.HasErrors() {
//	    jsonutil.ValidationError(w, res.Fields())
//	    return
//	}
//
// Checks that don't fit a tag are recorded with Result.Add.
package inputval

import (
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/dalemusser/stratablog/internal/app/system/apperr"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldError is one failed check.
type FieldError struct {
	Field   string
	Message string
}

// Result collects field errors in the order they were found.
type Result struct {
	Errors []FieldError
}

// Add records message against field.
func (r *Result) Add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Fields maps each failed field to its first message.
func (r *Result) Fields() map[string]string {
	if !r.HasErrors() {
		return nil
	}
	out := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

// Err is nil without errors, otherwise an apperr validation error carrying
// Fields.
func (r *Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return apperr.Validation(r.Fields())
}

// rule is a custom validation tag and the message shown when it fails.
type rule struct {
	check   func(string) bool
	message func(label string) string
}

var rules = map[string]rule{
	"httpurl": {IsValidHTTPURL, func(l string) string {
		return l + " must be a valid URL starting with http:// or https://."
	}},
	"objectid": {IsValidObjectID, func(l string) string {
		return l + " is not a valid ID."
	}},
	"subemail": {IsSubscriptionEmail, func(string) string {
		return "Invalid email format"
	}},
	"currency": {IsValidCurrency, func(l string) string {
		return l + " must be a three-letter currency code."
	}},
}

var validator = sync.OnceValue(func() *validate.Validator {
	v := validate.New(validate.WithStopOnFirstError())
	for name, r := range rules {
		check := r.check
		v.RegisterRuleFunc(name, func(value any) bool {
			s, ok := value.(string)
			return ok && check(s)
		}, name)
	}
	return v
})

// Validate runs the struct's validate tags. Messages use the field's label
// tag, falling back to its JSON name.
//
// Besides the pantry/validate built-ins (required, email, oneof, min, max)
// the tags httpurl, objectid, subemail and currency are available.
func Validate(s any) *Result {
	res := &Result{}
	errs, ok := validator().Struct(s).(validate.Errors)
	if !ok {
		return res
	}

	labels := fieldLabels(s)
	for _, e := range errs {
		label := labels[e.Field]
		if label == "" {
			label = e.Field
		}
		res.Add(e.Field, message(label, e.Rule, e.Param))
	}
	return res
}

func fieldLabels(s any) map[string]string {
	labels := map[string]string{}
	v := reflect.Indirect(reflect.ValueOf(s))
	if v.Kind() != reflect.Struct {
		return labels
	}
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		label := f.Tag.Get("label")
		if label == "" {
			continue
		}
		name := f.Name
		if j, _, _ := strings.Cut(f.Tag.Get("json"), ","); j != "" && j != "-" {
			name = j
		}
		labels[name] = label
	}
	return labels
}

func message(label, tag, param string) string {
	if r, ok := rules[tag]; ok {
		return r.message(label)
	}
	switch tag {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	default:
		return label + " is invalid."
	}
}

// IsValidHTTPURL reports whether s parses as an http or https URL with a host.
func IsValidHTTPURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsValidObjectID reports whether s is a MongoDB ObjectID in hex.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

var subscriptionEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsSubscriptionEmail reports whether s has the local@domain.tld shape
// accepted for blog subscriptions.
func IsSubscriptionEmail(s string) bool {
	return subscriptionEmail.MatchString(strings.TrimSpace(s))
}

var currencyCode = regexp.MustCompile(`^[A-Za-z]{3}$`)

// IsValidCurrency reports whether s is a three-letter currency code.
func IsValidCurrency(s string) bool {
	return currencyCode.MatchString(strings.TrimSpace(s))
}
