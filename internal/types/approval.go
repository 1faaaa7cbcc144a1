package types

import (
	goerrors "github.com/go-openapi/errors"
	"github.com/go-openapi/strfmt"
)

// PostApprovalPayload opens a human approval ahead of a signing session
type PostApprovalPayload struct {
	// Hex encoded 32 byte hash of the operation being approved
	// Required: true
	OperationHash *string `json:"operation_hash"`

	// Human readable description shown to the approvers
	Description string `json:"description,omitempty"`

	// Participant ids eligible to vote
	// Required: true
	Approvers []string `json:"approvers"`

	// Number of yes votes required for approval
	// Required: true
	Threshold *int64 `json:"threshold"`

	// Approval lifetime in seconds, server default when omitted
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`
}

// Validate validates this post approval payload
func (p *PostApprovalPayload) Validate(_ strfmt.Registry) error {
	var res []error
	if p.OperationHash == nil {
		res = append(res, goerrors.Required("operation_hash", "body", nil))
	}
	if len(p.Approvers) == 0 {
		res = append(res, goerrors.Required("approvers", "body", nil))
	}
	if p.Threshold == nil {
		res = append(res, goerrors.Required("threshold", "body", nil))
	}
	if len(res) > 0 {
		return goerrors.CompositeValidationError(res...)
	}
	return nil
}

// PostApprovalResponsePayload records a single approver vote
type PostApprovalResponsePayload struct {
	// Id of the voting approver
	// Required: true
	ApproverID *string `json:"approver_id"`

	// True approves the operation, false vetoes it immediately
	// Required: true
	Approve *bool `json:"approve"`
}

// Validate validates this post approval response payload
func (p *PostApprovalResponsePayload) Validate(_ strfmt.Registry) error {
	var res []error
	if p.ApproverID == nil {
		res = append(res, goerrors.Required("approver_id", "body", nil))
	}
	if p.Approve == nil {
		res = append(res, goerrors.Required("approve", "body", nil))
	}
	if len(res) > 0 {
		return goerrors.CompositeValidationError(res...)
	}
	return nil
}

// ApprovalResponse is the public view of an approval request
type ApprovalResponse struct {
	// Required: true
	ApprovalID *string `json:"approval_id"`

	// Required: true
	OperationHash *string `json:"operation_hash"`

	Description string `json:"description,omitempty"`

	// Required: true
	Approvers []string `json:"approvers"`

	// Required: true
	Threshold *int64 `json:"threshold"`

	// Required: true
	Status *string `json:"status"`

	// Number of yes votes recorded so far
	Approvals int64 `json:"approvals"`

	// Number of no votes recorded so far
	Rejections int64 `json:"rejections"`

	CreatedAt  strfmt.DateTime  `json:"created_at"`
	ExpiresAt  strfmt.DateTime  `json:"expires_at"`
	ResolvedAt *strfmt.DateTime `json:"resolved_at,omitempty"`
}

// Validate validates this approval response
func (r *ApprovalResponse) Validate(_ strfmt.Registry) error {
	var res []error
	if r.ApprovalID == nil {
		res = append(res, goerrors.Required("approval_id", "body", nil))
	}
	if r.OperationHash == nil {
		res = append(res, goerrors.Required("operation_hash", "body", nil))
	}
	if r.Threshold == nil {
		res = append(res, goerrors.Required("threshold", "body", nil))
	}
	if r.Status == nil {
		res = append(res, goerrors.Required("status", "body", nil))
	}
	if len(res) > 0 {
		return goerrors.CompositeValidationError(res...)
	}
	return nil
}
