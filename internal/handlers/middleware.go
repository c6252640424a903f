package handlers

import (
	"errors"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"

	"club-system/internal/status"
	"club-system/models"
)

// requireAuth admits any signed in account. Calendar reads stay open to
// pending members so applicants can see what the club runs before approval.
func requireAuth(e *core.RequestEvent) error {
	if e.Auth == nil && !e.HasSuperuserAuth() {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	return nil
}

// requireActiveMember gates the member API. Pending and rejected accounts
// only ever see their approval thread, superusers pass so operators can act
// through the same surface.
func requireActiveMember(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	if e.HasSuperuserAuth() {
		return nil
	}
	if e.Auth.GetString("status") != models.AccountActive {
		return apis.NewForbiddenError("Membership is not approved yet", nil)
	}
	return nil
}

func requireAdmin(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}
	if e.HasSuperuserAuth() {
		return nil
	}
	if e.Auth.GetString("role") != models.RoleAdmin || e.Auth.GetString("status") != models.AccountActive {
		return apis.NewForbiddenError("Admin access required", nil)
	}
	return nil
}

// apiError maps service errors onto HTTP responses. Errors that already
// carry a status, like the ones raised by record hooks, pass through.
func apiError(err error) error {
	var routed *router.ApiError
	if errors.As(err, &routed) {
		return routed
	}

	switch {
	case errors.Is(err, status.ErrEventNotFound),
		errors.Is(err, status.ErrAttendeeNotFound),
		errors.Is(err, status.ErrFamilyNotFound),
		errors.Is(err, status.ErrRequestNotFound),
		errors.Is(err, status.ErrPaymentNotFound),
		errors.Is(err, status.ErrNotOnWaitlist):
		return apis.NewNotFoundError(err.Error(), nil)

	case errors.Is(err, status.ErrEventNotOpen),
		errors.Is(err, status.ErrEventFull),
		errors.Is(err, status.ErrRSVPLocked),
		errors.Is(err, status.ErrPrimaryNotGoing),
		errors.Is(err, status.ErrInvalidStatus),
		errors.Is(err, status.ErrRequestClosed),
		errors.Is(err, status.ErrInvalidDecision),
		errors.Is(err, status.ErrNothingToPay),
		errors.Is(err, status.ErrPaymentNotPending),
		errors.Is(err, status.ErrFailedPayment):
		return apis.NewBadRequestError(err.Error(), nil)

	case errors.Is(err, status.ErrNotApproved):
		return apis.NewForbiddenError(err.Error(), nil)
	}

	return apis.NewInternalServerError("internal error", err)
}
