package types

import (
	"encoding/json"

	goerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
)

// PostSessionPayload opens a threshold signing session
type PostSessionPayload struct {
	// Id of the approved human approval backing this session
	ApprovalID string `json:"approval_id,omitempty"`

	// Hex encoded 32 byte hash that will be signed
	// Required: true
	MessageHash *string `json:"message_hash"`

	// Event template the final signature is merged into before publication
	EventTemplate json.RawMessage `json:"event_template,omitempty"`

	// Participant ids eligible to contribute, 2 to 7 entries
	// Required: true
	Participants []string `json:"participants"`

	// Number of signers required to produce the signature
	// Required: true
	Threshold *int64 `json:"threshold"`

	// Hex encoded x-only group public key the signature must verify against
	// Required: true
	GroupPublicKey *string `json:"group_public_key"`

	// Session lifetime in seconds, server default when omitted
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`
}

// Validate validates this post session payload
func (p *PostSessionPayload) Validate(_ strfmt.Registry) error {
	var res []error
	if p.MessageHash == nil {
		res = append(res, goerrors.Required("message_hash", "body", nil))
	}
	if len(p.Participants) == 0 {
		res = append(res, goerrors.Required("participants", "body", nil))
	}
	if p.Threshold == nil {
		res = append(res, goerrors.Required("threshold", "body", nil))
	}
	if p.GroupPublicKey == nil {
		res = append(res, goerrors.Required("group_public_key", "body", nil))
	}
	if len(res) > 0 {
		return goerrors.CompositeValidationError(res...)
	}
	return nil
}

// PostNonceCommitmentPayload submits a round 1 nonce commitment
type PostNonceCommitmentPayload struct {
	// Id of the submitting participant
	// Required: true
	ParticipantID *string `json:"participant_id"`

	// Hex encoded compressed hiding commitment point
	// Required: true
	Hiding *string `json:"hiding"`

	// Hex encoded compressed binding commitment point
	// Required: true
	Binding *string `json:"binding"`
}

// Validate validates this post nonce commitment payload
func (p *PostNonceCommitmentPayload) Validate(_ strfmt.Registry) error {
	var res []error
	if p.ParticipantID == nil {
		res = append(res, goerrors.Required("participant_id", "body", nil))
	}
	if p.Hiding == nil {
		res = append(res, goerrors.Required("hiding", "body", nil))
	}
	if p.Binding == nil {
		res = append(res, goerrors.Required("binding", "body", nil))
	}
	if len(res) > 0 {
		return goerrors.CompositeValidationError(res...)
	}
	return nil
}

// PostPartialSignaturePayload submits a round 2 partial signature
type PostPartialSignaturePayload struct {
	// Id of the submitting participant
	// Required: true
	ParticipantID *string `json:"participant_id"`

	// Hex encoded partial signature scalar
	// Required: true
	PartialSignature *string `json:"partial_signature"`
}

// Validate validates this post partial signature payload
func (p *PostPartialSignaturePayload) Validate(_ strfmt.Registry) error {
	var res []error
	if p.ParticipantID == nil {
		res = append(res, goerrors.Required("participant_id", "body", nil))
	}
	if p.PartialSignature == nil {
		res = append(res, goerrors.Required("partial_signature", "body", nil))
	}
	if len(res) > 0 {
		return goerrors.CompositeValidationError(res...)
	}
	return nil
}

// NonceCommitmentView is the public view of a recorded round 1 commitment
type NonceCommitmentView struct {
	Hiding  string `json:"hiding"`
	Binding string `json:"binding"`
}

// AggregatedSignatureView is the public view of the final signature
type AggregatedSignatureView struct {
	R string `json:"r"`
	S string `json:"s"`
}

// SessionResponse is the public view of a signing session
type SessionResponse struct {
	// Required: true
	SessionID *string `json:"session_id"`

	ApprovalID string `json:"approval_id,omitempty"`

	// Required: true
	MessageHash *string `json:"message_hash"`

	// Required: true
	Status *string `json:"status"`

	Participants []string `json:"participants"`

	// Required: true
	Threshold *int64 `json:"threshold"`

	GroupPublicKey string `json:"group_public_key,omitempty"`

	// Commitments recorded in round 1, keyed by participant id
	NonceCommitments map[string]NonceCommitmentView `json:"nonce_commitments,omitempty"`

	// Participants whose round 2 partial signatures have been recorded
	PartialsReceived []string `json:"partials_received,omitempty"`

	AggregatedSignature *AggregatedSignatureView `json:"aggregated_signature,omitempty"`

	FinalArtifactID string `json:"final_artifact_id,omitempty"`

	Error string `json:"error,omitempty"`

	CreatedAt strfmt.DateTime `json:"created_at"`
	UpdatedAt strfmt.DateTime `json:"updated_at"`
	ExpiresAt strfmt.DateTime `json:"expires_at"`
}

// Validate validates this session response
func (r *SessionResponse) Validate(_ strfmt.Registry) error {
	var res []error
	if r.SessionID == nil {
		res = append(res, goerrors.Required("session_id", "body", nil))
	}
	if r.MessageHash == nil {
		res = append(res, goerrors.Required("message_hash", "body", nil))
	}
	if r.Status == nil {
		res = append(res, goerrors.Required("status", "body", nil))
	}
	if r.Threshold == nil {
		res = append(res, goerrors.Required("threshold", "body", nil))
	}
	if len(res) > 0 {
		return goerrors.CompositeValidationError(res...)
	}
	return nil
}
