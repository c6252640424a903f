package status

import "errors"

var (
	ErrEventNotOpen      = errors.New("event: not open for rsvp")
	ErrEventFull         = errors.New("event: event is full")
	ErrEventNotFound     = errors.New("event: event not found")
	ErrRSVPLocked        = errors.New("rsvp: family members are still attending")
	ErrPrimaryNotGoing   = errors.New("rsvp: primary member is not going")
	ErrInvalidStatus     = errors.New("rsvp: invalid status")
	ErrAttendeeNotFound  = errors.New("rsvp: no attendance record")
	ErrFamilyNotFound    = errors.New("rsvp: family member not found")
	ErrNotOnWaitlist     = errors.New("waitlist: attendee not on waitlist")
	ErrNotApproved       = errors.New("approval: account not approved")
	ErrRequestNotFound   = errors.New("approval: request not found")
	ErrRequestClosed     = errors.New("approval: request already decided")
	ErrInvalidDecision   = errors.New("approval: invalid decision")
	ErrNothingToPay      = errors.New("payment: nothing to pay")
	ErrPaymentNotFound   = errors.New("payment: payment not found")
	ErrPaymentNotPending = errors.New("payment: payment is not pending")
	ErrFailedPayment     = errors.New("payment: payment failed")
	ErrRefCodeNotFound   = errors.New("ref code: ref code not found")
)
