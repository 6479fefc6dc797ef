package controller

import (
	"errors"
	"time"

	"learnhub_backend/internal/llm"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AIController AI辅助相关接口
type AIController struct {
	assistant *service.AssistantService
	quiz      *service.QuizService
}

func NewAIController(assistant *service.AssistantService, quiz *service.QuizService) *AIController {
	return &AIController{assistant: assistant, quiz: quiz}
}

type chatRequest struct {
	Message  string        `json:"message" binding:"required"`
	CourseID uint          `json:"courseId"`
	History  []llm.Message `json:"history"`
}

type chatResponse struct {
	Response  string    `json:"response"`
	Tier      string    `json:"tier"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat AI问答
// @Summary 课程智能问答
// @Tags AI
// @Accept json
// @Produce json
// @Param request body chatRequest true "问题内容，courseId可选"
// @Success 200 {object} util.Response
// @Router /api/ai/chat [post]
func (ctl *AIController) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "message is required")
		return
	}

	result, err := ctl.assistant.Chat(c.Request.Context(), req.Message, req.CourseID, req.History)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(c)
			return
		}
		util.LogInternalError(c, err)
		return
	}

	util.Success(c, chatResponse{
		Response:  result.Content,
		Tier:      result.Tier,
		Timestamp: time.Now(),
	})
}

type analyzeVideoRequest struct {
	VideoURL string `json:"videoUrl" binding:"required"`
	CourseID uint   `json:"courseId" binding:"required"`
}

// AnalyzeVideo 视频内容分析
// @Summary 生成视频学习指引
// @Tags AI
// @Accept json
// @Produce json
// @Param request body analyzeVideoRequest true "视频地址与所属课程"
// @Success 200 {object} util.Response
// @Router /api/ai/analyze-video [post]
func (ctl *AIController) AnalyzeVideo(c *gin.Context) {
	var req analyzeVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "videoUrl and courseId are required")
		return
	}

	result, err := ctl.assistant.AnalyzeVideo(c.Request.Context(), req.VideoURL, req.CourseID)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(c)
			return
		}
		util.LogInternalError(c, err)
		return
	}

	util.Success(c, gin.H{
		"analysis":  result.Content,
		"tier":      result.Tier,
		"timestamp": time.Now(),
	})
}

type studyQuestionsRequest struct {
	CourseID uint `json:"courseId" binding:"required"`
}

// StudyQuestions 生成自测问题
// @Summary 根据课程生成自测问题
// @Tags AI
// @Accept json
// @Produce json
// @Param request body studyQuestionsRequest true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/ai/study-questions [post]
func (ctl *AIController) StudyQuestions(c *gin.Context) {
	var req studyQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "courseId is required")
		return
	}

	result, err := ctl.assistant.GenerateStudyQuestions(c.Request.Context(), req.CourseID)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(c)
			return
		}
		util.LogInternalError(c, err)
		return
	}

	util.Success(c, gin.H{
		"questions": result.Content,
		"tier":      result.Tier,
		"timestamp": time.Now(),
	})
}

type generateQuizRequest struct {
	CourseID uint `json:"courseId" binding:"required"`
}

// GenerateQuiz 生成课程测验
// @Summary 为课程生成5题选择题测验
// @Tags AI
// @Accept json
// @Produce json
// @Param request body generateQuizRequest true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/ai/quiz/generate [post]
func (ctl *AIController) GenerateQuiz(c *gin.Context) {
	var req generateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "courseId is required")
		return
	}

	quiz, err := ctl.quiz.GenerateQuiz(c.Request.Context(), req.CourseID)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) {
			util.NotFound(c)
			return
		}
		util.LogInternalError(c, err)
		return
	}

	util.Success(c, quiz)
}

type submitQuizRequest struct {
	CourseID uint           `json:"courseId"`
	QuizID   string         `json:"quizId"`
	Answers  map[int]string `json:"answers" binding:"required"`
}

// SubmitQuiz 提交测验答案
// @Summary 判分并生成反馈，成绩并入学习进度
// @Tags AI
// @Accept json
// @Produce json
// @Param request body submitQuizRequest true "按题目ID给出的答案"
// @Success 200 {object} util.Response
// @Router /api/ai/quiz/submit [post]
func (ctl *AIController) SubmitQuiz(c *gin.Context) {
	var req submitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "answers are required")
		return
	}

	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	result, err := ctl.quiz.SubmitQuiz(c.Request.Context(), claims.UserID, req.CourseID, req.QuizID, req.Answers)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}

	util.Success(c, result)
}
