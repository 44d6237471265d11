package listedit

import (
	"errors"
	"fmt"
	"strings"

	"placeholder-cli/internal/resource"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnknownField = errors.New("unknown field")
	ErrNoSelection  = errors.New("no selection")
)

// Problem is one rejected field.
type Problem struct {
	Field   string
	Message string
}

// ValidationError is returned before any network call when submitted fields are
// unacceptable. State is never touched.
type ValidationError struct {
	Resource string
	Problems []Problem
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		msgs = append(msgs, p.Message)
	}
	return e.Resource + ": " + strings.Join(msgs, "; ")
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// notblank is required that also rejects whitespace-only text.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func label(fd resource.Field) string {
	if fd.Label != "" {
		return fd.Label
	}
	return fd.Name
}

func ruleMessage(fd resource.Field, tag, param string) string {
	switch tag {
	case "notblank":
		return label(fd) + " cannot be empty"
	case "email":
		return label(fd) + " must be a valid email address"
	case "url":
		return label(fd) + " must be a valid URL"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label(fd), param)
	default:
		return fmt.Sprintf("%s failed %s validation", label(fd), tag)
	}
}

// checkRule runs the field's validator tag against a text value.
func checkRule(fd resource.Field, s string) []Problem {
	tag := fd.Tag()
	if tag == "" {
		return nil
	}
	err := validate.Var(s, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Problem{{Field: fd.Name, Message: fmt.Sprintf("%s: %v", label(fd), err)}}
	}
	out := make([]Problem, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, Problem{Field: fd.Name, Message: ruleMessage(fd, fe.Tag(), fe.Param())})
	}
	return out
}

// checkKinds rejects unknown names and values of the wrong kind.
func checkKinds(spec resource.Spec, fields resource.Fields) []Problem {
	var out []Problem
	for _, name := range fields.Names() {
		fd, ok := spec.Field(name)
		if !ok {
			out = append(out, Problem{Field: name, Message: fmt.Sprintf("%s is not an editable field", name)})
			continue
		}
		switch fd.Kind {
		case resource.KindBool:
			if _, ok := fields[name].(bool); !ok {
				out = append(out, Problem{Field: name, Message: fmt.Sprintf("%s must be true or false", name)})
			}
		default:
			if _, ok := fields[name].(string); !ok {
				out = append(out, Problem{Field: name, Message: fmt.Sprintf("%s must be text", name)})
			}
		}
	}
	return out
}

// validateCreate requires every required field, runs field rules and checks
// unique fields against the loaded entries.
func validateCreate(spec resource.Spec, fields resource.Fields, existing map[int]resource.Fields) error {
	problems := checkKinds(spec, fields)
	for _, fd := range spec.Fields {
		if fd.Kind == resource.KindBool {
			continue
		}
		s, isText := fields[fd.Name].(string)
		if !isText {
			if fd.Required {
				problems = append(problems, Problem{Field: fd.Name, Message: ruleMessage(fd, "notblank", "")})
			}
			continue
		}
		if p := checkRule(fd, s); len(p) > 0 {
			problems = append(problems, p...)
			continue
		}
		if fd.Unique && s != "" {
			for _, entry := range existing {
				if entry.String(fd.Name) == s {
					problems = append(problems, Problem{Field: fd.Name, Message: label(fd) + " must be unique"})
					break
				}
			}
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Resource: spec.Name, Problems: problems}
	}
	return nil
}

// validateUpdate only checks the submitted fields: a partial update (e.g. a
// completion toggle) does not need to resend the title.
func validateUpdate(spec resource.Spec, fields resource.Fields) error {
	problems := checkKinds(spec, fields)
	if len(fields) == 0 {
		problems = append(problems, Problem{Message: "nothing to update"})
	}
	for _, name := range fields.Names() {
		fd, ok := spec.Field(name)
		if !ok {
			continue
		}
		if s, isText := fields[name].(string); isText && fd.Kind != resource.KindBool {
			problems = append(problems, checkRule(fd, s)...)
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Resource: spec.Name, Problems: problems}
	}
	return nil
}
