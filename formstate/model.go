package formstate

// Snapshot is the persisted part of a form instance: enough to rebuild the view
// on another request or replica. Field input is deliberately absent.
type Snapshot struct {
	FormID string
	Mode   uint8
	View   uint8

	AccountUserID    string
	AccountEmail     string
	AccountFirstName string
	AccountLastName  string

	LinkTokenID        string
	LinkTokenValue     string
	LinkTokenExpiresAt int64

	CreatedAt int64
	UpdatedAt int64
}

// HasAccount reports whether the snapshot carries a linked-account candidate.
func (s *Snapshot) HasAccount() bool {
	return s != nil && s.AccountUserID != ""
}
