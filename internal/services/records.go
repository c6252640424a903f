package services

import (
	"github.com/pocketbase/pocketbase/core"

	"club-system/models"
)

// Record to model mappers. The services hand models to the handlers so the
// response shapes stay stable even when collection fields move around.

func eventFromRecord(r *core.Record) *models.Event {
	return &models.Event{
		ID:          r.Id,
		Title:       r.GetString("title"),
		Description: r.GetString("description"),
		Location:    r.GetString("location"),
		StartTime:   r.GetDateTime("start").Time(),
		EndTime:     r.GetDateTime("end").Time(),
		AllDay:      r.GetBool("all_day"),
		Capacity:    r.GetInt("capacity"),
		Fee:         r.GetString("fee"),
		Status:      r.GetString("status"),
		Rule:        r.GetString("rrule"),
		ExDates:     r.GetStringSlice("exdates"),
	}
}

func attendeeFromRecord(r *core.Record) models.Attendee {
	a := models.Attendee{
		ID:               r.Id,
		EventID:          r.GetString("event"),
		UserID:           r.GetString("user"),
		FamilyMemberID:   r.GetString("family_member"),
		DisplayName:      r.GetString("display_name"),
		Status:           r.GetString("status"),
		WaitlistPosition: r.GetInt("waitlist_position"),
		Paid:             r.GetBool("paid"),
	}
	if promoted := r.GetDateTime("promoted_at"); !promoted.IsZero() {
		t := promoted.Time()
		a.PromotedAt = &t
	}
	return a
}

func requestFromRecord(r *core.Record) models.AccountRequest {
	req := models.AccountRequest{
		ID:        r.Id,
		UserID:    r.GetString("user"),
		RefCode:   r.GetString("reference"),
		Status:    r.GetString("status"),
		Note:      r.GetString("note"),
		CreatedAt: r.GetDateTime("created").Time(),
		DecidedBy: r.GetString("decided_by"),
	}
	if decided := r.GetDateTime("decided_at"); !decided.IsZero() {
		t := decided.Time()
		req.DecidedAt = &t
	}
	return req
}

func messageFromRecord(r *core.Record) models.ApprovalMessage {
	return models.ApprovalMessage{
		ID:        r.Id,
		RequestID: r.GetString("request"),
		AuthorID:  r.GetString("author"),
		FromAdmin: r.GetBool("from_admin"),
		Body:      r.GetString("body"),
		CreatedAt: r.GetDateTime("created").Time(),
	}
}

func paymentFromRecord(r *core.Record) *models.Payment {
	p := &models.Payment{
		ID:        r.Id,
		UserID:    r.GetString("user"),
		EventID:   r.GetString("event"),
		RefCode:   r.GetString("reference"),
		Amount:    r.GetString("amount"),
		Currency:  r.GetString("currency"),
		Status:    r.GetString("status"),
		QRCode:    r.GetString("qr_code"),
		CreatedAt: r.GetDateTime("created").Time(),
		ExpiresAt: r.GetDateTime("expires_at").Time(),
	}
	_ = r.UnmarshalJSONField("breakdown", &p.Items)
	if completed := r.GetDateTime("completed_at"); !completed.IsZero() {
		t := completed.Time()
		p.CompletedAt = &t
	}
	return p
}
