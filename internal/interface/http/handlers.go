package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/campus-hub/college-hub/internal/application/command"
	"github.com/campus-hub/college-hub/internal/application/query"
	"github.com/campus-hub/college-hub/internal/domain/library"
	"github.com/campus-hub/college-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":    "College Hub API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":        "/health",
			"loans":         "/api/v1/loans",
			"students":      "/api/v1/students/{id}",
			"conversations": "/api/v1/conversations",
			"websocket":     "/ws",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// LIBRARY CIRCULATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleBorrowBook handles POST /api/v1/loans
func (s *Server) handleBorrowBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string `json:"student_id"`
		BookID    string `json:"book_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.BorrowBookHandler.Handle(r.Context(), command.BorrowBookCommand{
		StudentID: req.StudentID,
		BookID:    req.BookID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"loan_id":    result.Loan.ID,
		"book_title": result.BookTitle,
		"due_date":   result.DueDate,
		"daily_fine": result.DailyFine,
	})
}

// handleReturnBook handles POST /api/v1/loans/return
func (s *Server) handleReturnBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string `json:"student_id"`
		BookID    string `json:"book_id"`
		Condition string `json:"condition,omitempty"`
		Notes     string `json:"notes,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.ReturnBookHandler.Handle(r.Context(), command.ReturnBookCommand{
		StudentID: req.StudentID,
		BookID:    req.BookID,
		Condition: library.Condition(req.Condition),
		Notes:     req.Notes,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loan_id":          result.Loan.ID,
		"days_overdue":     result.DaysOverdue,
		"fine_amount":      result.FineAmount,
		"replacement_cost": result.ReplacementCost,
		"total_due":        result.TotalDue,
		"payment_required": result.TotalDue > 0,
	})
}

// handleRenewLoan handles POST /api/v1/loans/renew
func (s *Server) handleRenewLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string `json:"student_id"`
		BookID    string `json:"book_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.RenewLoanHandler.Handle(r.Context(), command.RenewLoanCommand{
		StudentID: req.StudentID,
		BookID:    req.BookID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loan_id":      result.Loan.ID,
		"new_due_date": result.NewDueDate,
		"renew_count":  result.Loan.RenewCount,
	})
}

// handleOverdueSweep handles POST /api/v1/admin/overdue-sweep
func (s *Server) handleOverdueSweep(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.MarkOverdueHandler.Handle(r.Context(), command.MarkOverdueCommand{})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"marked":   result.Marked,
		"swept_at": result.SweptAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT HANDLERS: FINES, CLEARANCE, NOC, SUMMARY
// ══════════════════════════════════════════════════════════════════════════════

// handlePayFines handles POST /api/v1/students/{id}/fines/pay
func (s *Server) handlePayFines(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")

	var req struct {
		Amount      float64 `json:"amount"`
		PaymentMode string  `json:"payment_mode,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.PayFinesHandler.Handle(r.Context(), command.PayFinesCommand{
		StudentID:   studentID,
		Amount:      req.Amount,
		PaymentMode: req.PaymentMode,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"paid_amount":    result.PaidAmount,
		"loan_count":     result.LoanCount,
		"receipt_number": result.ReceiptNumber,
	})
}

// handleCheckClearance handles GET /api/v1/students/{id}/clearance?semester=N
func (s *Server) handleCheckClearance(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.CheckClearanceHandler.Handle(r.Context(), query.CheckClearanceQuery{
		StudentID:      r.PathValue("id"),
		TargetSemester: getQueryParamInt(r, "semester", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleNOCEligibility handles GET /api/v1/students/{id}/noc/eligibility
func (s *Server) handleNOCEligibility(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.CheckNOCEligibilityHandler.Handle(r.Context(), query.CheckNOCEligibilityQuery{
		StudentID:      r.PathValue("id"),
		TargetSemester: getQueryParamInt(r, "target_semester", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleIssueNOC handles POST /api/v1/students/{id}/noc/issue
func (s *Server) handleIssueNOC(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IssuerID string `json:"issuer_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.IssueNOCHandler.Handle(r.Context(), command.IssueNOCCommand{
		StudentID: r.PathValue("id"),
		IssuerID:  req.IssuerID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"student_id": result.StudentID,
		"issuer_id":  result.IssuerID,
		"issued_at":  result.IssuedAt,
	})
}

// handleRejectNOC handles POST /api/v1/students/{id}/noc/reject
func (s *Server) handleRejectNOC(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}

	if err := s.deps.RejectNOCHandler.Handle(r.Context(), command.RejectNOCCommand{
		StudentID: r.PathValue("id"),
		Reason:    req.Reason,
	}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"noc_status": "rejected"})
}

// handleReopenNOC handles POST /api/v1/students/{id}/noc/reopen
func (s *Server) handleReopenNOC(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.ReopenNOCHandler.Handle(r.Context(), command.ReopenNOCCommand{
		StudentID: r.PathValue("id"),
	}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"noc_status": "pending"})
}

// handleLibrarySummary handles GET /api/v1/students/{id}/library-summary
func (s *Server) handleLibrarySummary(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetLibrarySummaryHandler.Handle(r.Context(), query.GetLibrarySummaryQuery{
		StudentID:   r.PathValue("id"),
		BypassCache: getQueryParamBool(r, "fresh"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONVERSATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleStartConversation handles POST /api/v1/conversations
func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitiatorID string `json:"initiator_id"`
		PeerID      string `json:"peer_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.StartConversationHandler.Handle(r.Context(), command.StartConversationCommand{
		InitiatorID: req.InitiatorID,
		PeerID:      req.PeerID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}

	writeJSON(w, status, map[string]interface{}{
		"conversation_id": result.Conversation.ID,
		"participants":    result.Conversation.Participants,
		"created":         result.Created,
	})
}

// handleListConversations handles GET /api/v1/conversations?identity=
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListConversationsHandler.Handle(r.Context(), query.ListConversationsQuery{
		Identity: getQueryParam(r, "identity", ""),
		Limit:    getQueryParamInt(r, "limit", 0),
		Offset:   getQueryParamInt(r, "offset", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleMessageHistory handles GET /api/v1/conversations/{id}/messages?identity=
func (s *Server) handleMessageHistory(w http.ResponseWriter, r *http.Request) {
	var before time.Time
	if raw := getQueryParam(r, "before", ""); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "before must be an RFC 3339 timestamp")
			return
		}
		before = parsed
	}

	result, err := s.deps.GetMessageHistoryHandler.Handle(r.Context(), query.GetMessageHistoryQuery{
		ConversationID: r.PathValue("id"),
		Identity:       getQueryParam(r, "identity", ""),
		Limit:          getQueryParamInt(r, "limit", 0),
		Before:         before,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleLeaveConversation handles POST /api/v1/conversations/{id}/leave
func (s *Server) handleLeaveConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParticipantID string `json:"participant_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.LeaveConversationHandler.Handle(r.Context(), command.LeaveConversationCommand{
		ConversationID: r.PathValue("id"),
		ParticipantID:  req.ParticipantID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": result.Deleted,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError translates application-layer errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrValidation):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, shared.ErrPreconditionFailed):
		writeJSONError(w, http.StatusConflict, "precondition_failed", err.Error())
	case errors.Is(err, shared.ErrConflict), errors.Is(err, shared.ErrStateTransition), errors.Is(err, shared.ErrInvalidState):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	default:
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", requestIDFrom(r.Context()),
			"error", err,
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "The operation could not be completed")
	}
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dest); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}
