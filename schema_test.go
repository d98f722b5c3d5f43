package authform

import (
	"errors"
	"testing"
)

func TestSchemaForIsDeterministic(t *testing.T) {
	if SchemaFor(ModeLogin) != SchemaFor(ModeLogin) {
		t.Fatal("expected the same schema instance per mode")
	}
	if SchemaFor(Mode(0)) != nil {
		t.Fatal("expected nil schema for invalid mode")
	}
}

func TestSchemaRequiredFieldsPerMode(t *testing.T) {
	login := SchemaFor(ModeLogin).Required()
	if len(login) != 2 || login[0] != FieldEmail || login[1] != FieldPassword {
		t.Fatalf("unexpected login fields %v", login)
	}

	reg := SchemaFor(ModeRegistration).Required()
	want := []string{
		FieldFirstName, FieldLastName, FieldAddress1, FieldCity, FieldState,
		FieldPostalCode, FieldDateOfBirth, FieldSSN, FieldEmail, FieldPassword,
	}
	if len(reg) != len(want) {
		t.Fatalf("expected %d registration fields, got %v", len(want), reg)
	}
	for i := range want {
		if reg[i] != want[i] {
			t.Fatalf("field %d: expected %s, got %s", i, want[i], reg[i])
		}
	}
}

func TestSchemaValidRegistrationPasses(t *testing.T) {
	if err := SchemaFor(ModeRegistration).Validate(validRegistrationFields()); err != nil {
		t.Fatalf("expected valid fields, got %v", err)
	}
}

func TestSchemaLoginIgnoresUndefinedFields(t *testing.T) {
	fields := validLoginFields()
	fields[FieldSSN] = "not-a-number"
	if err := SchemaFor(ModeLogin).Validate(fields); err != nil {
		t.Fatalf("expected undefined fields to be ignored, got %v", err)
	}
}

func TestSchemaFieldRules(t *testing.T) {
	cases := []struct {
		field string
		value string
		rule  string
	}{
		{FieldFirstName, "Al", "min"},
		{FieldFirstName, "   ", "required"},
		{FieldLastName, "", "required"},
		{FieldAddress1, "123456789012345678901234567890123456789012345678901", "max"},
		{FieldState, "X", "min"},
		{FieldPostalCode, "12", "min"},
		{FieldPostalCode, "12$45", "postal"},
		{FieldDateOfBirth, "31-12-1990", "dob"},
		{FieldDateOfBirth, "01/01/2999", "dob"},
		{FieldSSN, "12a4", "ssn"},
		{FieldSSN, "123", "ssn"},
		{FieldEmail, "not-an-email", "email"},
		{FieldPassword, "short", "min"},
	}

	for _, tc := range cases {
		t.Run(tc.field+"="+tc.value, func(t *testing.T) {
			fields := validRegistrationFields()
			fields[tc.field] = tc.value

			err := SchemaFor(ModeRegistration).Validate(fields)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("expected one field error, got %+v", verr.Fields)
			}
			fe, ok := verr.Field(tc.field)
			if !ok || fe.Rule != tc.rule {
				t.Fatalf("expected %s/%s, got %+v", tc.field, tc.rule, verr.Fields)
			}
			if fe.Message == "" {
				t.Fatal("expected message")
			}
		})
	}
}

func TestSchemaAcceptsISODateOfBirth(t *testing.T) {
	fields := validRegistrationFields()
	fields[FieldDateOfBirth] = "1985-12-10"
	if err := SchemaFor(ModeRegistration).Validate(fields); err != nil {
		t.Fatalf("expected ISO date to pass, got %v", err)
	}
}

func TestSchemaReportsEveryFieldInOrder(t *testing.T) {
	err := SchemaFor(ModeRegistration).Validate(Fields{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Fields) != 10 {
		t.Fatalf("expected 10 field errors, got %d", len(verr.Fields))
	}
	if verr.Fields[0].Field != FieldFirstName || verr.Fields[9].Field != FieldPassword {
		t.Fatalf("expected descriptor order, got %+v", verr.Fields)
	}
	if !errors.Is(err, ErrInvalidFields) {
		t.Fatal("expected ErrInvalidFields sentinel")
	}
}

func TestEngineSchemaHonorsPasswordMinLength(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Schema.PasswordMinLength = 12
	engine := newTestEngine(t, &stubIdentity{}, nil, func(b *Builder) { b.WithConfig(cfg) })

	fields := validLoginFields()
	fields[FieldPassword] = "eleven-char"
	if err := engine.Schema(ModeLogin).Validate(fields); err == nil {
		t.Fatal("expected configured minimum to reject an 11 character password")
	}
	if err := SchemaFor(ModeLogin).Validate(fields); err != nil {
		t.Fatalf("default schema should accept it, got %v", err)
	}
}

func TestDescriptorsCarryLabels(t *testing.T) {
	d := SchemaFor(ModeRegistration).Descriptors()
	if d[0].Label != "First Name" || d[6].Placeholder != "Ex : DD/MM/YYYY" {
		t.Fatalf("unexpected descriptors %+v", d)
	}
	if !d[7].Secret || !d[9].Secret {
		t.Fatal("ssn and password must be marked secret")
	}

	d[0].Label = "mutated"
	if SchemaFor(ModeRegistration).Descriptors()[0].Label != "First Name" {
		t.Fatal("Descriptors must return a copy")
	}
}
