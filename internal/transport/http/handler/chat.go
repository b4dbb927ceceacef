package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medtree/internal/app"
	"medtree/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type StartChatRequest struct {
	Topic     string `json:"topic" form:"topic"`
	SessionID string `json:"sessionId" form:"sessionId"`
}

type SendMessageRequest struct {
	SessionID string `json:"sessionId" form:"sessionId"`
	Message   string `json:"message" form:"message"`
}

type EndChatRequest struct {
	SessionID string `json:"sessionId" form:"sessionId"`
}

type StartChatResponse struct {
	Success bool `json:"success"`
	*app.StartChatResult
}

type SendMessageResponse struct {
	Success bool `json:"success"`
	*app.SendMessageResult
}

type EndChatResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) StartChat(c *gin.Context) {
	var req StartChatRequest
	_ = c.ShouldBind(&req)

	result, err := h.chatService.StartChat(c.Request.Context(), app.StartChatInput{
		Topic:     req.Topic,
		SessionID: req.SessionID,
	})
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "Topic required", "Please provide a topic parameter")
		default:
			response.Error(c, http.StatusInternalServerError, "Failed to start chat", err.Error())
		}
		return
	}

	response.OK(c, StartChatResponse{Success: true, StartChatResult: result})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	_ = c.ShouldBind(&req)

	result, err := h.chatService.SendMessage(c.Request.Context(), app.SendMessageInput{
		SessionID: req.SessionID,
		Message:   req.Message,
	})
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "SessionId and message required", "")
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, "Session not found", "Please start a new chat session")
		default:
			response.Error(c, http.StatusInternalServerError, "Failed to process message", err.Error())
		}
		return
	}

	response.OK(c, SendMessageResponse{Success: true, SendMessageResult: result})
}

func (h *ChatHandler) EndChat(c *gin.Context) {
	var req EndChatRequest
	_ = c.ShouldBind(&req)

	if err := h.chatService.EndChat(c.Request.Context(), req.SessionID); err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "SessionId required", "")
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, "Session not found", "Please start a new chat session")
		default:
			response.Error(c, http.StatusInternalServerError, "Failed to end chat", err.Error())
		}
		return
	}

	response.OK(c, EndChatResponse{Success: true, SessionID: req.SessionID})
}
