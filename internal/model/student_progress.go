package model

import (
	"database/sql/driver"
	"encoding/json"
	"math"
	"time"
)

// videoCompletionRatio 观看时长达到总时长的该比例即视为看完
const videoCompletionRatio = 0.8

// maxQuizContribution 测验成绩对进度的贡献上限（测验是补充，不是主要驱动）
const maxQuizContribution = 20

type CompletedLesson struct {
	LessonID         string    `json:"lessonId"`
	Title            string    `json:"title"`
	CompletedAt      time.Time `json:"completedAt"`
	TimeSpentMinutes int       `json:"timeSpentMinutes"`
}

type QuizResult struct {
	QuizID         string    `json:"quizId"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
	CompletedAt    time.Time `json:"completedAt"`
	Feedback       string    `json:"feedback"`
}

type VideoProgress struct {
	VideoID              string    `json:"videoId"`
	Title                string    `json:"title"`
	WatchTimeSeconds     int       `json:"watchTimeSeconds"`
	TotalDurationSeconds int       `json:"totalDurationSeconds"`
	LastWatchedAt        time.Time `json:"lastWatchedAt"`
	IsCompleted          bool      `json:"isCompleted"`
}

type CompletedLessonList []CompletedLesson

func (l CompletedLessonList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *CompletedLessonList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

type QuizResultList []QuizResult

func (l QuizResultList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *QuizResultList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

type VideoProgressList []VideoProgress

func (l VideoProgressList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *VideoProgressList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// StudentProgress 学生在一门课程中的进度记录，(student_id, course_id) 唯一。
// 所有变更方法只改内存值，持久化由仓储层的乐观锁写回完成
type StudentProgress struct {
	BaseModel
	StudentID             uint                `gorm:"uniqueIndex:idx_student_course;not null" json:"studentId"`
	CourseID              uint                `gorm:"uniqueIndex:idx_student_course;not null" json:"courseId"`
	EnrollmentDate        time.Time           `json:"enrollmentDate"`
	Progress              int                 `gorm:"default:0" json:"progress"`
	CompletedLessons      CompletedLessonList `gorm:"type:json" json:"completedLessons"`
	QuizResults           QuizResultList      `gorm:"type:json" json:"quizResults"`
	VideoProgress         VideoProgressList   `gorm:"type:json" json:"videoProgress"`
	LastActivity          time.Time           `json:"lastActivity"`
	CourseCompleted       bool                `gorm:"default:false" json:"courseCompleted"`
	CompletionDate        *time.Time          `json:"completionDate"`
	TotalTimeSpentMinutes int                 `gorm:"default:0" json:"totalTimeSpentMinutes"`
	Version               int                 `gorm:"not null;default:0" json:"-"` // 乐观锁版本号
}

func (StudentProgress) TableName() string {
	return "student_progress"
}

// LessonEvent 课时完成事件
type LessonEvent struct {
	LessonID         string `json:"lessonId" binding:"required"`
	Title            string `json:"title"`
	TimeSpentMinutes int    `json:"timeSpentMinutes"`
}

// VideoEvent 视频观看进度上报
type VideoEvent struct {
	VideoID              string `json:"videoId" binding:"required"`
	Title                string `json:"title"`
	WatchTimeSeconds     int    `json:"watchTimeSeconds"`
	TotalDurationSeconds int    `json:"totalDurationSeconds" binding:"required"`
}

// RecomputeFromLessonsAndVideos 按课时和视频重新计算进度贡献值。
// L个已完成课时、V个跟踪中的视频、C个看完的视频：
// 课时份额 = L/max(L,V)×50，视频份额 = C/V×50，二者皆空时贡献为0
func (p *StudentProgress) RecomputeFromLessonsAndVideos() int {
	totalLessons := len(p.CompletedLessons)
	totalVideos := len(p.VideoProgress)

	if totalLessons == 0 && totalVideos == 0 {
		return 0
	}

	completedVideos := 0
	for _, v := range p.VideoProgress {
		if v.IsCompleted {
			completedVideos++
		}
	}

	lessonShare := 0.0
	if totalLessons > 0 {
		denom := totalLessons
		if totalVideos > denom {
			denom = totalVideos
		}
		lessonShare = float64(totalLessons) / float64(denom) * 50
	}

	videoShare := 0.0
	if totalVideos > 0 {
		videoShare = float64(completedVideos) / float64(totalVideos) * 50
	}

	contribution := int(math.Round(lessonShare + videoShare))
	if contribution > 100 {
		contribution = 100
	}
	return contribution
}

// merge 合并规则：进度只增不减，取当前值与贡献值的较大者
func (p *StudentProgress) merge(contribution int) {
	if contribution > p.Progress {
		p.Progress = contribution
	}
}

// ApplyLessonEvent 记录课时完成（按lessonId幂等）并重算进度
func (p *StudentProgress) ApplyLessonEvent(ev LessonEvent) {
	exists := false
	for _, l := range p.CompletedLessons {
		if l.LessonID == ev.LessonID {
			exists = true
			break
		}
	}

	if !exists {
		p.CompletedLessons = append(p.CompletedLessons, CompletedLesson{
			LessonID:         ev.LessonID,
			Title:            ev.Title,
			CompletedAt:      time.Now(),
			TimeSpentMinutes: ev.TimeSpentMinutes,
		})
		p.TotalTimeSpentMinutes += ev.TimeSpentMinutes
	}

	p.merge(p.RecomputeFromLessonsAndVideos())
	p.MaybeCompleteCourse()
	p.Touch()
}

// ApplyVideoEvent 按videoId更新观看记录并重算进度
func (p *StudentProgress) ApplyVideoEvent(ev VideoEvent) {
	completed := ev.TotalDurationSeconds > 0 &&
		float64(ev.WatchTimeSeconds) >= float64(ev.TotalDurationSeconds)*videoCompletionRatio

	found := false
	for i := range p.VideoProgress {
		if p.VideoProgress[i].VideoID == ev.VideoID {
			p.VideoProgress[i].WatchTimeSeconds = ev.WatchTimeSeconds
			p.VideoProgress[i].TotalDurationSeconds = ev.TotalDurationSeconds
			p.VideoProgress[i].LastWatchedAt = time.Now()
			p.VideoProgress[i].IsCompleted = completed
			found = true
			break
		}
	}

	if !found {
		p.VideoProgress = append(p.VideoProgress, VideoProgress{
			VideoID:              ev.VideoID,
			Title:                ev.Title,
			WatchTimeSeconds:     ev.WatchTimeSeconds,
			TotalDurationSeconds: ev.TotalDurationSeconds,
			LastWatchedAt:        time.Now(),
			IsCompleted:          completed,
		})
	}

	p.merge(p.RecomputeFromLessonsAndVideos())
	p.MaybeCompleteCourse()
	p.Touch()
}

// ApplyQuizResult 追加测验结果；成绩贡献封顶20分
func (p *StudentProgress) ApplyQuizResult(r QuizResult) {
	if r.CompletedAt.IsZero() {
		r.CompletedAt = time.Now()
	}
	p.QuizResults = append(p.QuizResults, r)

	contribution := r.Score
	if contribution > maxQuizContribution {
		contribution = maxQuizContribution
	}
	p.merge(contribution)
	p.MaybeCompleteCourse()
	p.Touch()
}

// SetProgress 管理覆写：唯一允许降低进度的入口，范围钳制到[0,100]
func (p *StudentProgress) SetProgress(value int) {
	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}
	p.Progress = value
	p.MaybeCompleteCourse()
	p.Touch()
}

// MaybeCompleteCourse 进度首次到100时单向标记课程完成
func (p *StudentProgress) MaybeCompleteCourse() {
	if p.Progress == 100 && !p.CourseCompleted {
		now := time.Now()
		p.CourseCompleted = true
		p.CompletionDate = &now
	}
}

func (p *StudentProgress) Touch() {
	p.LastActivity = time.Now()
}

// ProgressStatistics 学生维度的进度汇总
type ProgressStatistics struct {
	TotalCourses     int     `json:"totalCourses"`
	CompletedCourses int     `json:"completedCourses"`
	AverageProgress  float64 `json:"averageProgress"`
	TotalTimeSpent   int     `json:"totalTimeSpent"`
	TotalQuizzes     int     `json:"totalQuizzes"`
	AverageQuizScore float64 `json:"averageQuizScore"`
}
