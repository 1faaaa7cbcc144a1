package approvals

import (
	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/approval"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
)

func approvalResponse(req *approval.Request) *types.ApprovalResponse {
	approvals := int64(req.Approvals())

	response := &types.ApprovalResponse{
		ApprovalID:    swag.String(req.ApprovalID),
		OperationHash: swag.String(req.OperationHash),
		Description:   req.Description,
		Approvers:     req.EligibleApprovers,
		Threshold:     swag.Int64(int64(req.Threshold)),
		Status:        swag.String(string(req.Status)),
		Approvals:     approvals,
		Rejections:    int64(len(req.Votes)) - approvals,
		CreatedAt:     strfmt.DateTime(req.CreatedAt),
		ExpiresAt:     strfmt.DateTime(req.ExpiresAt),
	}

	if req.ResolvedAt != nil {
		resolvedAt := strfmt.DateTime(*req.ResolvedAt)
		response.ResolvedAt = &resolvedAt
	}

	return response
}
