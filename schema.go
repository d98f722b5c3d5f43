package authform

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// Schema validates the fields of one mode. It is derived deterministically from the
// mode and the schema config and holds no per-form state, so one Schema is shared by
// every form of that mode.
type Schema struct {
	mode        Mode
	cfg         SchemaConfig
	validate    *validator.Validate
	descriptors []FieldDescriptor
	rules       map[string]string
}

var registrationDescriptors = []FieldDescriptor{
	{Name: FieldFirstName, Label: "First Name", Placeholder: "Enter Your First Name"},
	{Name: FieldLastName, Label: "Last Name", Placeholder: "Enter Your Last Name"},
	{Name: FieldAddress1, Label: "Address", Placeholder: "Enter Your Specific Address"},
	{Name: FieldCity, Label: "City", Placeholder: "Enter Your City"},
	{Name: FieldState, Label: "State", Placeholder: "Ex : Bihar"},
	{Name: FieldPostalCode, Label: "Pin Code", Placeholder: "Ex : 11100110"},
	{Name: FieldDateOfBirth, Label: "Date Of Birth", Placeholder: "Ex : DD/MM/YYYY"},
	{Name: FieldSSN, Label: "SSN", Placeholder: "Ex : 1234", Secret: true},
	{Name: FieldEmail, Label: "Email", Placeholder: "Enter Your email"},
	{Name: FieldPassword, Label: "Password", Placeholder: "Enter Your password", Secret: true},
}

var defaultSchemas = sync.OnceValue(func() map[Mode]*Schema {
	cfg := defaultSchemaConfig()
	return map[Mode]*Schema{
		ModeRegistration: newSchema(ModeRegistration, cfg),
		ModeLogin:        newSchema(ModeLogin, cfg),
	}
})

// SchemaFor returns the default-configured schema for mode, or nil for an invalid mode.
func SchemaFor(mode Mode) *Schema {
	return defaultSchemas()[mode]
}

func newSchema(mode Mode, cfg SchemaConfig) *Schema {
	if !mode.Valid() {
		return nil
	}
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = defaultSchemaConfig().PasswordMinLength
	}
	if len(cfg.DateLayouts) == 0 {
		cfg.DateLayouts = defaultSchemaConfig().DateLayouts
	}

	s := &Schema{
		mode:     mode,
		cfg:      cfg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	// Registration of static tags cannot fail; a failure here is a programming error.
	mustRegister(s.validate, "dob", s.validDateOfBirth)
	mustRegister(s.validate, "postal", validPostalCode)
	mustRegister(s.validate, "ssn", validSSN)

	password := "required,min=" + strconv.Itoa(cfg.PasswordMinLength) + ",max=128"

	switch mode {
	case ModeRegistration:
		s.descriptors = registrationDescriptors
		s.rules = map[string]string{
			FieldFirstName:   "required,min=3,max=50",
			FieldLastName:    "required,min=3,max=50",
			FieldAddress1:    "required,max=50",
			FieldCity:        "required,max=50",
			FieldState:       "required,min=2,max=50",
			FieldPostalCode:  "required,min=3,max=10,postal",
			FieldDateOfBirth: "required,dob",
			FieldSSN:         "required,ssn",
			FieldEmail:       "required,email,max=254",
			FieldPassword:    password,
		}
	case ModeLogin:
		s.descriptors = registrationDescriptors[len(registrationDescriptors)-2:]
		s.rules = map[string]string{
			FieldEmail:    "required,email,max=254",
			FieldPassword: password,
		}
	}

	return s
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("authform: register validation " + tag + ": " + err.Error())
	}
}

// Mode returns the mode the schema was derived from.
func (s *Schema) Mode() Mode {
	return s.mode
}

// Descriptors returns the fields of the mode in render order.
func (s *Schema) Descriptors() []FieldDescriptor {
	out := make([]FieldDescriptor, len(s.descriptors))
	copy(out, s.descriptors)
	return out
}

// Defines reports whether name is a field of the schema's mode.
func (s *Schema) Defines(name string) bool {
	_, ok := s.rules[name]
	return ok
}

// Required returns the names of every required field in render order.
func (s *Schema) Required() []string {
	out := make([]string, 0, len(s.descriptors))
	for _, d := range s.descriptors {
		out = append(out, d.Name)
	}
	return out
}

// Validate checks fields against the schema. Fields the mode does not define are
// ignored. It returns nil or a *ValidationError listing every rejected field.
func (s *Schema) Validate(fields Fields) error {
	var out []FieldError
	for _, d := range s.descriptors {
		value := normalizeField(d.Name, fields[d.Name])
		err := s.validate.Var(value, s.rules[d.Name])
		if err == nil {
			continue
		}

		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			out = append(out, FieldError{Field: d.Name, Rule: "invalid", Message: d.Label + " is invalid"})
			continue
		}
		fe := verrs[0]
		out = append(out, FieldError{
			Field:   d.Name,
			Rule:    fe.Tag(),
			Message: fieldMessage(d.Label, fe.Tag(), fe.Param()),
		})
	}

	if len(out) == 0 {
		return nil
	}
	return &ValidationError{Fields: out}
}

func (s *Schema) registrationPayload(fields Fields) RegistrationPayload {
	return RegistrationPayload{
		FirstName:   normalizeField(FieldFirstName, fields[FieldFirstName]),
		LastName:    normalizeField(FieldLastName, fields[FieldLastName]),
		Address1:    normalizeField(FieldAddress1, fields[FieldAddress1]),
		City:        normalizeField(FieldCity, fields[FieldCity]),
		State:       normalizeField(FieldState, fields[FieldState]),
		PostalCode:  normalizeField(FieldPostalCode, fields[FieldPostalCode]),
		DateOfBirth: normalizeField(FieldDateOfBirth, fields[FieldDateOfBirth]),
		SSN:         normalizeField(FieldSSN, fields[FieldSSN]),
		Email:       normalizeField(FieldEmail, fields[FieldEmail]),
		Password:    fields[FieldPassword],
	}
}

func (s *Schema) credentials(fields Fields) Credentials {
	return Credentials{
		Email:    normalizeField(FieldEmail, fields[FieldEmail]),
		Password: fields[FieldPassword],
	}
}

// Passwords are taken verbatim; every other field is trimmed and emails are lower-cased.
func normalizeField(name, value string) string {
	switch name {
	case FieldPassword:
		return value
	case FieldEmail:
		return strings.ToLower(strings.TrimSpace(value))
	default:
		return strings.TrimSpace(value)
	}
}

func (s *Schema) validDateOfBirth(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, layout := range s.cfg.DateLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		return t.Before(time.Now()) && t.Year() >= 1900
	}
	return false
}

func validPostalCode(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && r != '-' {
			return false
		}
	}
	return true
}

func validSSN(fl validator.FieldLevel) bool {
	digits := 0
	for _, r := range fl.Field().String() {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-':
		default:
			return false
		}
	}
	return digits >= 4 && digits <= 9
}

func fieldMessage(label, tag, param string) string {
	switch tag {
	case "required":
		return label + " is required"
	case "min":
		return label + " must be at least " + param + " characters"
	case "max":
		return label + " must be at most " + param + " characters"
	case "email":
		return label + " must be a valid email address"
	case "dob":
		return label + " must be a past date like DD/MM/YYYY"
	case "postal":
		return label + " may contain only letters, digits, spaces and hyphens"
	case "ssn":
		return label + " must contain 4 to 9 digits"
	default:
		return label + " is invalid"
	}
}
