package api

import (
	"net/http"
	"strings"

	"github.com/harunnryd/libradesk/internal/classifier"
	"github.com/harunnryd/libradesk/internal/conversation"
	deskErrors "github.com/harunnryd/libradesk/internal/errors"
	"github.com/harunnryd/libradesk/internal/feedback"
	"github.com/harunnryd/libradesk/internal/librarian"
)

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toMessages(history []historyEntry) []conversation.Message {
	out := make([]conversation.Message, 0, len(history))
	for _, h := range history {
		out = append(out, conversation.Message{Role: conversation.Role(h.Role), Content: h.Content})
	}
	return out
}

type chatRequest struct {
	SessionID string         `json:"sessionId"`
	Message   string         `json:"message"`
	History   []historyEntry `json:"history"`
}

type chatResponse struct {
	Success  bool                `json:"success"`
	Response *string             `json:"response"`
	Status   conversation.Status `json:"status"`
	Filtered classifier.Verdict  `json:"filtered,omitempty"`
	Degraded bool                `json:"degraded,omitempty"`
}

// history in the body is accepted for compatibility; the server's own log
// is what feeds the bot.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.router.Route(r.Context(), req.SessionID, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Success:  true,
		Response: out.Response,
		Status:   out.Status,
		Filtered: out.Filtered,
		Degraded: out.Degraded,
	})
}

type requestLibrarianRequest struct {
	SessionID string         `json:"sessionId"`
	History   []historyEntry `json:"history"`
}

type requestLibrarianResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Status  conversation.Status `json:"status"`
}

func (s *Server) handleRequestLibrarian(w http.ResponseWriter, r *http.Request) {
	var req requestLibrarianRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	out, err := s.router.RequestLibrarian(r.Context(), req.SessionID, toMessages(req.History))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requestLibrarianResponse{Success: true, Message: *out.Response, Status: out.Status})
}

type conversationView struct {
	*conversation.Conversation
	Countdown *int            `json:"countdown"`
	Feedback  feedback.Counts `json:"feedback"`
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	skipView := r.URL.Query().Get("skipView") == "true"

	conv, err := s.desk.View(r.Context(), sessionID, skipView)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conversationView{
		Conversation: conv,
		Countdown:    s.desk.Countdown(conv),
		Feedback:     s.feedback.Counts(conv.SessionID),
	})
}

type statusResponse struct {
	Status       conversation.Status `json:"status"`
	MessageCount int                 `json:"messageCount"`
}

func (s *Server) handleConversationStatus(w http.ResponseWriter, r *http.Request) {
	status, count := s.desk.Status(r.PathValue("sessionId"))
	writeJSON(w, http.StatusOK, statusResponse{Status: status, MessageCount: count})
}

type pollingResponse struct {
	DashboardMs int64 `json:"dashboardMs"`
	ChatMs      int64 `json:"chatMs"`
}

func (s *Server) handlePolling(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pollingResponse{
		DashboardMs: DashboardPollInterval.Milliseconds(),
		ChatMs:      ChatPollInterval.Milliseconds(),
	})
}

type respondRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

type successStatus struct {
	Success bool                `json:"success"`
	Status  conversation.Status `json:"status"`
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	conv, err := s.desk.Respond(r.Context(), req.SessionID, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successStatus{Success: true, Status: conv.Status})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	conv, err := s.desk.EndSession(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successStatus{Success: true, Status: conv.Status})
}

type countdownRequest struct {
	SessionID string `json:"sessionId"`
	Countdown *int   `json:"countdown"`
}

type countdownResponse struct {
	Success   bool `json:"success"`
	Countdown *int `json:"countdown"`
}

func (s *Server) handleSetCountdown(w http.ResponseWriter, r *http.Request) {
	var req countdownRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	left, err := s.desk.SetCountdown(r.Context(), req.SessionID, req.Countdown)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countdownResponse{Success: true, Countdown: left})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.desk.Dashboard())
}

func (s *Server) handleCanned(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.canned)
}

type messageFeedbackRequest struct {
	SessionID string        `json:"sessionId"`
	MessageID string        `json:"messageId"`
	Type      feedback.Vote `json:"type"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleMessageFeedback(w http.ResponseWriter, r *http.Request) {
	var req messageFeedbackRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	conv, err := s.desk.View(r.Context(), req.SessionID, true)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.feedback.RecordVote(conv.SessionID, req.MessageID, req.Type); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type conversationFeedbackRequest struct {
	SessionID       string                   `json:"sessionId"`
	Rating          int                      `json:"rating"`
	Comment         string                   `json:"comment"`
	MessageFeedback map[string]feedback.Vote `json:"messageFeedback"`
}

func (s *Server) handleConversationFeedback(w http.ResponseWriter, r *http.Request) {
	var req conversationFeedbackRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	conv, err := s.desk.View(r.Context(), req.SessionID, true)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.feedback.RecordRating(conv.SessionID, req.Rating, req.Comment, req.MessageFeedback); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type librariansResponse struct {
	Authorized []string                   `json:"authorized"`
	Pending    []librarian.PendingRequest `json:"pending"`
	Keyword    string                     `json:"keyword"`
}

func (s *Server) handleListLibrarians(w http.ResponseWriter, r *http.Request) {
	if s.access == nil {
		writeError(w, r, deskErrors.Internal("librarian registry not configured"))
		return
	}
	writeJSON(w, http.StatusOK, librariansResponse{
		Authorized: s.access.Registry().Authorized(),
		Pending:    s.access.Pending(),
		Keyword:    s.access.Keyword(),
	})
}

// PSID is the field name older dashboards send.
type librarianIDRequest struct {
	ID   string `json:"id"`
	PSID string `json:"psid"`
}

func (req librarianIDRequest) value() string {
	if id := strings.TrimSpace(req.ID); id != "" {
		return id
	}
	return strings.TrimSpace(req.PSID)
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.handleLibrarianChange(w, r, func(id string) (string, error) {
		return s.access.Approve(r.Context(), id)
	})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	s.handleLibrarianChange(w, r, func(id string) (string, error) {
		return s.access.Remove(id)
	})
}

func (s *Server) handleLibrarianChange(w http.ResponseWriter, r *http.Request, change func(id string) (string, error)) {
	if s.access == nil {
		writeError(w, r, deskErrors.Internal("librarian registry not configured"))
		return
	}
	var req librarianIDRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := change(req.value())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: msg})
}
