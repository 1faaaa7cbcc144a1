package approval

import "github.com/pkg/errors"

// 审批门哨兵错误
var (
	ErrNotFound             = errors.New("approval request not found")
	ErrUnauthorizedApprover = errors.New("approver is not eligible for this request")
	ErrDuplicateVote        = errors.New("approver has already voted")
	ErrAlreadyResolved      = errors.New("approval request is already resolved")
	ErrExpired              = errors.New("approval request has expired")
)
