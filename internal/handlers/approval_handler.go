package handlers

import (
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"club-system/internal/services"
)

type ApprovalHandler struct {
	app      *pocketbase.PocketBase
	approval *services.ApprovalService
}

func NewApprovalHandler(app *pocketbase.PocketBase, approval *services.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{
		app:      app,
		approval: approval,
	}
}

// GetMyRequest returns the caller's account request and its message thread.
// Deliberately open to pending accounts: this is the only part of the API
// they can reach.
func (h *ApprovalHandler) GetMyRequest(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	request, messages, err := h.approval.Get(e.Request.Context(), e.Auth.Id)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"request": request, "messages": messages})
}

// PostMyMessage adds a member reply to the thread. Replying to a
// clarification request moves it back into the admins' pending pile.
func (h *ApprovalHandler) PostMyMessage(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if strings.TrimSpace(req.Body) == "" {
		return apis.NewBadRequestError("Message body required", nil)
	}

	message, err := h.approval.PostMemberMessage(e.Request.Context(), e.Auth.Id, req.Body)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, message)
}

// ListRequests lists account requests for the admin review queue, optionally
// narrowed by status.
func (h *ApprovalHandler) ListRequests(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	requests, err := h.approval.List(e.Request.Context(), e.Request.URL.Query().Get("status"))
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"requests": requests})
}

// GetThread returns the full message thread of one request.
func (h *ApprovalHandler) GetThread(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	requestID := e.Request.PathValue("requestId")
	messages, err := h.approval.Thread(e.Request.Context(), requestID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"messages": messages})
}

// PostAdminMessage adds an admin message, typically a clarification
// question, to a request thread.
func (h *ApprovalHandler) PostAdminMessage(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if strings.TrimSpace(req.Body) == "" {
		return apis.NewBadRequestError("Message body required", nil)
	}

	authorID := ""
	if !e.HasSuperuserAuth() {
		authorID = e.Auth.Id
	}

	message, err := h.approval.PostAdminMessage(e.Request.Context(), authorID, e.Request.PathValue("requestId"), req.Body)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, message)
}

// Decide moves a request to a new status. Approving or rejecting is final
// and flips the member account in the same transaction.
func (h *ApprovalHandler) Decide(e *core.RequestEvent) error {
	if err := requireAdmin(e); err != nil {
		return err
	}

	var req struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	adminID := ""
	if !e.HasSuperuserAuth() {
		adminID = e.Auth.Id
	}

	request, err := h.approval.Decide(e.Request.Context(), adminID, e.Request.PathValue("requestId"), req.Status, req.Note)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, request)
}
