package controller

import (
	"errors"
	"strconv"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ProgressController 学习进度相关接口
type ProgressController struct {
	progress *service.ProgressService
}

func NewProgressController(progress *service.ProgressService) *ProgressController {
	return &ProgressController{progress: progress}
}

func (ctl *ProgressController) handleProgressError(c *gin.Context, err error) {
	if errors.Is(err, util.ErrCourseNotFound) {
		util.NotFound(c)
		return
	}
	util.LogInternalError(c, err)
}

// MyProgress 当前学生的全部课程进度
// @Summary 我的学习进度列表
// @Tags Progress
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/progress/my-progress [get]
func (ctl *ProgressController) MyProgress(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	records, err := ctl.progress.MyProgress(c.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, records)
}

// CourseProgress 单门课程的进度，首次查询即建档
// @Summary 查询某门课程的进度
// @Tags Progress
// @Produce json
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/progress/course/{courseId} [get]
func (ctl *ProgressController) CourseProgress(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	courseID, err := strconv.ParseUint(c.Param("courseId"), 10, 64)
	if err != nil {
		util.BadRequest(c, "invalid course id")
		return
	}

	record, err := ctl.progress.GetProgress(c.Request.Context(), claims.UserID, uint(courseID))
	if err != nil {
		ctl.handleProgressError(c, err)
		return
	}
	util.Success(c, record)
}

type videoProgressRequest struct {
	CourseID uint `json:"courseId" binding:"required"`
	model.VideoEvent
}

// RecordVideo 上报视频观看进度
// @Summary 记录视频观看时长
// @Tags Progress
// @Accept json
// @Produce json
// @Param request body videoProgressRequest true "观看进度"
// @Success 200 {object} util.Response
// @Router /api/progress/video [post]
func (ctl *ProgressController) RecordVideo(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	var req videoProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "courseId, videoId and totalDurationSeconds are required")
		return
	}

	record, err := ctl.progress.RecordVideoProgress(c.Request.Context(), claims.UserID, req.CourseID, req.VideoEvent)
	if err != nil {
		ctl.handleProgressError(c, err)
		return
	}
	util.Success(c, record)
}

type lessonProgressRequest struct {
	CourseID uint `json:"courseId" binding:"required"`
	model.LessonEvent
}

// RecordLesson 标记课时完成
// @Summary 记录课时完成
// @Tags Progress
// @Accept json
// @Produce json
// @Param request body lessonProgressRequest true "课时信息"
// @Success 200 {object} util.Response
// @Router /api/progress/lesson [post]
func (ctl *ProgressController) RecordLesson(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	var req lessonProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "courseId and lessonId are required")
		return
	}

	record, err := ctl.progress.RecordLessonCompletion(c.Request.Context(), claims.UserID, req.CourseID, req.LessonEvent)
	if err != nil {
		ctl.handleProgressError(c, err)
		return
	}
	util.Success(c, record)
}

type quizResultRequest struct {
	CourseID       uint   `json:"courseId" binding:"required"`
	QuizID         string `json:"quizId" binding:"required"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	CorrectAnswers int    `json:"correctAnswers"`
	Feedback       string `json:"feedback"`
}

// RecordQuizResult 直接上报测验成绩
// @Summary 记录测验成绩
// @Tags Progress
// @Accept json
// @Produce json
// @Param request body quizResultRequest true "测验成绩"
// @Success 200 {object} util.Response
// @Router /api/progress/quiz-result [post]
func (ctl *ProgressController) RecordQuizResult(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	var req quizResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "courseId and quizId are required")
		return
	}
	if req.Score < 0 || req.Score > 100 {
		util.BadRequest(c, "score must be between 0 and 100")
		return
	}

	record, err := ctl.progress.RecordQuizResult(c.Request.Context(), claims.UserID, req.CourseID, model.QuizResult{
		QuizID:         req.QuizID,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		CorrectAnswers: req.CorrectAnswers,
		Feedback:       req.Feedback,
	})
	if err != nil {
		ctl.handleProgressError(c, err)
		return
	}
	util.Success(c, record)
}

type overrideProgressRequest struct {
	StudentID uint `json:"studentId" binding:"required"`
	CourseID  uint `json:"courseId" binding:"required"`
	Progress  *int `json:"progress" binding:"required"`
}

// OverrideProgress 管理覆写进度值，唯一允许下调进度的入口
// @Summary 管理员/教师覆写学生进度
// @Tags Progress
// @Accept json
// @Produce json
// @Param request body overrideProgressRequest true "目标学生、课程与进度值"
// @Success 200 {object} util.Response
// @Router /api/progress [put]
func (ctl *ProgressController) OverrideProgress(c *gin.Context) {
	var req overrideProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, "studentId, courseId and progress are required")
		return
	}

	record, err := ctl.progress.SetProgress(c.Request.Context(), req.StudentID, req.CourseID, *req.Progress)
	if err != nil {
		ctl.handleProgressError(c, err)
		return
	}
	util.Success(c, record)
}

// Statistics 当前学生的学习统计
// @Summary 学习进度统计
// @Tags Progress
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/progress/statistics [get]
func (ctl *ProgressController) Statistics(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}

	stats, err := ctl.progress.Statistics(c.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(c, err)
		return
	}
	util.Success(c, stats)
}
