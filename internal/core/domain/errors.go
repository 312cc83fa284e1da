package domain

import "errors"

var (
	ErrBlocked          = errors.New("client is blocked")
	ErrNotFound         = errors.New("record not found")
	ErrInvalidRule      = errors.New("invalid rule value")
	ErrInvalidIP        = errors.New("invalid ip address")
	ErrAuditUnavailable = errors.New("audit log unavailable")
)

func IsBlockedError(err error) bool {
	return errors.Is(err, ErrBlocked)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
