package prometheus

import (
	"context"

	"github.com/MrEthical07/authform"
)

type nopIdentity struct{}

func (nopIdentity) CreateAccount(context.Context, authform.RegistrationPayload) (*authform.AccountRecord, error) {
	return &authform.AccountRecord{UserID: "u-1"}, nil
}

func (nopIdentity) Authenticate(context.Context, authform.Credentials) (*authform.SessionResult, error) {
	return &authform.SessionResult{Authenticated: true}, nil
}
