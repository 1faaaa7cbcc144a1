package sessions

import (
	"sort"

	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/samber/lo"

	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/session"
	"github.com/OV1-Kenobi/satnam-pub-sub005/internal/types"
)

func sessionResponse(sess *session.Session) *types.SessionResponse {
	response := &types.SessionResponse{
		SessionID:       swag.String(sess.SessionID),
		ApprovalID:      sess.ApprovalID,
		MessageHash:     swag.String(sess.MessageHash),
		Status:          swag.String(string(sess.Status)),
		Participants:    sess.Participants,
		Threshold:       swag.Int64(int64(sess.Threshold)),
		GroupPublicKey:  sess.GroupPublicKey,
		FinalArtifactID: sess.FinalArtifactID,
		Error:           sess.ErrorReason,
		CreatedAt:       strfmt.DateTime(sess.CreatedAt),
		UpdatedAt:       strfmt.DateTime(sess.UpdatedAt),
		ExpiresAt:       strfmt.DateTime(sess.ExpiresAt),
	}

	if len(sess.NonceCommitments) > 0 {
		commitments := make(map[string]types.NonceCommitmentView, len(sess.NonceCommitments))
		for id, commitment := range sess.NonceCommitments {
			commitments[id] = types.NonceCommitmentView{
				Hiding:  commitment.Hiding,
				Binding: commitment.Binding,
			}
		}
		response.NonceCommitments = commitments
	}

	if len(sess.PartialSignatures) > 0 {
		received := lo.Keys(sess.PartialSignatures)
		sort.Strings(received)
		response.PartialsReceived = received
	}

	if sess.Aggregated != nil {
		response.AggregatedSignature = &types.AggregatedSignatureView{
			R: sess.Aggregated.R,
			S: sess.Aggregated.S,
		}
	}

	return response
}
