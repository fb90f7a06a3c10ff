package controller

import (
	"strconv"

	"codejudge/internal/common/http/middleware"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/service"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JudgeController handles submission, status and rejudge requests.
type JudgeController struct {
	svc       *service.Service
	languages service.LanguageLookup
	trigger   service.Trigger
}

// NewJudgeController creates a new controller.
func NewJudgeController(svc *service.Service, languages service.LanguageLookup, trigger service.Trigger) *JudgeController {
	return &JudgeController{svc: svc, languages: languages, trigger: trigger}
}

// Submit creates a pending submission and starts judging it.
func (h *JudgeController) Submit(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.ErrorWithCode(c, appErr.Unauthorized, "")
		return
	}
	if !user.CanSubmit() {
		response.ErrorWithCode(c, appErr.Forbidden, "role cannot submit")
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	ctx := c.Request.Context()
	sub, err := h.svc.CreateSubmission(ctx, h.languages, service.SubmitRequest{
		UserID:    user.ID,
		ProblemID: req.ProblemID,
		Language:  req.Language,
		Code:      req.Code,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.trigger.Trigger(ctx, model.JudgeMessage{SubmissionID: sub.ID, Reason: model.ReasonSubmit}); err != nil {
		logger.Warn(ctx, "trigger judging failed", zap.Int64("submission_id", sub.ID), zap.Error(err))
		response.Error(c, withSubmissionID(err, sub.ID))
		return
	}
	response.Accepted(c, SubmitResponse{SubmissionID: sub.ID, Status: string(sub.Status)})
}

// GetStatus returns the status of one submission to its owner or a judge.
func (h *JudgeController) GetStatus(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.ErrorWithCode(c, appErr.Unauthorized, "")
		return
	}
	submissionID, ok := parseID(c)
	if !ok {
		return
	}
	snap, err := h.svc.GetStatus(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if snap.UserID != user.ID && !user.IsJudge() {
		response.ErrorWithCode(c, appErr.Forbidden, "not the owner of this submission")
		return
	}
	response.Success(c, StatusResponse{
		Status:        string(snap.Status),
		Score:         snap.Score,
		ExecutionTime: snap.ExecutionTime,
		MemoryUsed:    snap.MemoryUsed,
		JudgeMessage:  snap.JudgeMessage,
	})
}

// Rejudge judges an existing submission again.
func (h *JudgeController) Rejudge(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok || !user.IsJudge() {
		response.ErrorWithCode(c, appErr.Forbidden, "rejudge requires judge role")
		return
	}
	submissionID, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sub, err := h.svc.GetSubmission(ctx, submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.trigger.Trigger(ctx, model.JudgeMessage{SubmissionID: sub.ID, Reason: model.ReasonRejudge}); err != nil {
		response.Error(c, withSubmissionID(err, sub.ID))
		return
	}
	logger.Info(ctx, "rejudge requested", zap.Int64("submission_id", sub.ID), zap.Int64("by", user.ID))
	response.Accepted(c, SubmitResponse{SubmissionID: sub.ID, Status: string(sub.Status)})
}

// Report returns the archived per-test report of a submission.
func (h *JudgeController) Report(c *gin.Context) {
	submissionID, ok := parseID(c)
	if !ok {
		return
	}
	report, err := h.svc.GetReport(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid submission id")
		return 0, false
	}
	return id, true
}

func withSubmissionID(err error, submissionID int64) error {
	if e := appErr.GetError(err); e != nil {
		return e.WithDetail("submission_id", submissionID)
	}
	return err
}

// SubmitRequest defines the submission payload.
type SubmitRequest struct {
	ProblemID int64  `json:"problem_id" binding:"required"`
	Language  string `json:"language" binding:"required"`
	Code      string `json:"code" binding:"required"`
}

// SubmitResponse acknowledges a submit or rejudge.
type SubmitResponse struct {
	SubmissionID int64  `json:"submission_id"`
	Status       string `json:"status"`
}

// StatusResponse is the poller view of a submission.
type StatusResponse struct {
	Status        string `json:"status"`
	Score         int    `json:"score"`
	ExecutionTime int64  `json:"execution_time"`
	MemoryUsed    int64  `json:"memory_used"`
	JudgeMessage  string `json:"judge_message"`
}
