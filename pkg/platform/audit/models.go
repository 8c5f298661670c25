package audit

import "time"

// Event is emitted from registry logic to capture privileged mutations. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	// Actor is the authenticated principal the mutation is attributed to.
	Actor    string `json:"actor"`
	Registry string `json:"registry"`
	Action   Action `json:"action"`
	// Subject is the principal the mutated record belongs to.
	Subject string `json:"subject,omitempty"`
	// RecordKey identifies the mutated record within the registry.
	RecordKey string `json:"record_key,omitempty"`
	// Height is the ledger height observed when the mutation committed.
	Height uint64 `json:"height"`
	// Request correlation fields, filled from the HTTP context when present.
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Device    string `json:"device,omitempty"`
}

// Action names a privileged registry mutation.
type Action string

const (
	ActionAdminTransferred     Action = "admin_transferred"
	ActionSourceAdded          Action = "source_added"
	ActionSourceRemoved        Action = "source_removed"
	ActionInformationSubmitted Action = "information_submitted"
	ActionUserVerified         Action = "user_verified"
	ActionIssuerAuthorized     Action = "issuer_authorized"
	ActionIssuerRevoked        Action = "issuer_revoked"
	ActionCredentialIssued     Action = "credential_issued"
	ActionCredentialRevoked    Action = "credential_revoked"
	ActionConsentGranted       Action = "consent_granted"
	ActionConsentRevoked       Action = "consent_revoked"
	ActionConsentsBulkRevoked  Action = "consents_bulk_revoked"
)

// Registry labels for event attribution.
const (
	RegistryIdentity   = "identity"
	RegistryCredential = "credential"
	RegistryConsent    = "consent"
)
