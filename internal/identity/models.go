// Package identity tracks trusted verification sources, submitted user
// information, and per-user verification status.
package identity

import (
	id "trustledger/pkg/domain"
)

// TrustedSource is an admin-controlled label allowed to back identity
// submissions. Deactivation is non-destructive: past submissions referencing
// the source stay readable and verifiable.
type TrustedSource struct {
	SourceID  id.SourceID
	Active    bool
	UpdatedAt id.Height
}

// UserInformation is the latest identity submission for a user. Resubmission
// overwrites; there is no version history. The source reference is validated
// at submission time only.
type UserInformation struct {
	User         id.Principal
	Name         string
	DocumentHash id.DocumentHash
	Source       id.SourceID
}

// VerificationStatus records that the admin verified a user. Verified is only
// ever set to true; there is no unverify operation.
type VerificationStatus struct {
	User     id.Principal
	Verified bool
	// Timestamp is the ledger height at which verification was recorded.
	Timestamp id.Height
}
