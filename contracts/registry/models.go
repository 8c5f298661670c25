// Package registry defines the wire-level response models shared between the
// trustledger service and its clients. It is dependency-free on purpose so
// consumers can vendor the contract without pulling the service.
package registry

// ContractVersion identifies the schema for registry records shared across services.
const ContractVersion = "v0.1.0"

// ValidityResult is the answer to a validity-predicate query. Absence of a
// record is reported as Valid=false, never as an error.
type ValidityResult struct {
	Valid  bool   `json:"valid"`
	Height uint64 `json:"height"`
}

// VerificationRecord mirrors a user's verification status.
type VerificationRecord struct {
	User     string `json:"user"`
	Verified bool   `json:"verified"`
	// Timestamp is the ledger height at which verification was recorded.
	Timestamp uint64 `json:"timestamp"`
}

// UserInformationRecord mirrors the latest identity submission for a user.
type UserInformationRecord struct {
	User         string `json:"user"`
	Name         string `json:"name"`
	DocumentHash string `json:"document_hash"`
	Source       string `json:"source"`
}

// CredentialRecord mirrors a stored credential.
type CredentialRecord struct {
	User         string `json:"user"`
	CredentialID string `json:"credential_id"`
	Issuer       string `json:"issuer"`
	Data         string `json:"data"`
	IssuedAt     uint64 `json:"issued_at"`
	ExpiresAt    uint64 `json:"expires_at"`
	Revoked      bool   `json:"revoked"`
}

// ConsentRecord mirrors a stored consent grant.
type ConsentRecord struct {
	User       string `json:"user"`
	DataType   string `json:"data_type"`
	Recipient  string `json:"recipient"`
	Granted    bool   `json:"granted"`
	Timestamp  uint64 `json:"timestamp"`
	Expiration uint64 `json:"expiration"`
	Purpose    string `json:"purpose"`
}
