package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medtree/internal/app"
	"medtree/internal/transport/http/response"
)

type ExplainHandler struct {
	explainService *app.ExplainService
}

type TopicRequest struct {
	Topic string `json:"topic" form:"topic"`
}

type AnalogyResponse struct {
	Success bool   `json:"success"`
	Topic   string `json:"topic"`
	Analogy string `json:"analogy"`
}

type ClinicalResponse struct {
	Success  bool   `json:"success"`
	Topic    string `json:"topic"`
	Clinical string `json:"clinical"`
}

func NewExplainHandler(explainService *app.ExplainService) *ExplainHandler {
	return &ExplainHandler{explainService: explainService}
}

func (h *ExplainHandler) GetAnalogy(c *gin.Context) {
	topic, text, ok := h.explain(c, h.explainService.Analogy, "Failed to generate analogy")
	if !ok {
		return
	}
	response.OK(c, AnalogyResponse{Success: true, Topic: topic, Analogy: text})
}

func (h *ExplainHandler) GetClinical(c *gin.Context) {
	topic, text, ok := h.explain(c, h.explainService.Clinical, "Failed to generate clinical relevance")
	if !ok {
		return
	}
	response.OK(c, ClinicalResponse{Success: true, Topic: topic, Clinical: text})
}

func (h *ExplainHandler) explain(
	c *gin.Context,
	generate func(ctx context.Context, topic string) (string, error),
	failureTitle string,
) (string, string, bool) {
	var req TopicRequest
	_ = c.ShouldBind(&req)

	text, err := generate(c.Request.Context(), req.Topic)
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "Topic required", "Please provide a topic parameter")
		default:
			response.Error(c, http.StatusInternalServerError, failureTitle, err.Error())
		}
		return "", "", false
	}
	return req.Topic, text, true
}
