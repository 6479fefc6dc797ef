package service

import (
	"context"
	"errors"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
)

// 版本冲突时的写入重试上限。合并规则可交换，重放不会改变语义
const maxSaveAttempts = 3

// ProgressStore 进度记录的持久化访问
type ProgressStore interface {
	GetOrCreate(studentID, courseID uint) (*model.StudentProgress, error)
	GetByKey(studentID, courseID uint) (*model.StudentProgress, error)
	Save(record *model.StudentProgress) error
	ListByStudent(studentID uint) ([]model.StudentProgress, error)
}

// ProgressService 进度聚合：所有进度事件都经由它读-改-写落库。
// 读失败直接报错；写失败降级为"已计算未落库"，学生看到的进度值仍然正确
type ProgressService struct {
	store   ProgressStore
	courses CourseFinder
}

func NewProgressService(store ProgressStore, courses CourseFinder) *ProgressService {
	return &ProgressService{store: store, courses: courses}
}

// applyAndSave 读-改-写核心循环：版本冲突时取回最新记录重放事件再写，
// 最多重试maxSaveAttempts次。写入始终失败时记警告并返回已计算的记录
func (s *ProgressService) applyAndSave(studentID, courseID uint, apply func(*model.StudentProgress)) (*model.StudentProgress, error) {
	record, err := s.store.GetOrCreate(studentID, courseID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		// 重试轮次先取回最新记录再重放；降级返回的记录必须带有本次事件的贡献，
		// 所以重放在轮次开头做，最后一次apply之后不再覆盖record
		if attempt > 0 {
			fresh, ferr := s.store.GetByKey(studentID, courseID)
			if ferr != nil {
				err = ferr
				break
			}
			record = fresh
		}

		apply(record)

		err = s.store.Save(record)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, util.ErrVersionConflict) {
			break
		}
	}

	logger.Log.Warn("progress computed but not persisted",
		zap.Uint("student_id", studentID),
		zap.Uint("course_id", courseID),
		zap.Error(err),
	)
	return record, nil
}

func (s *ProgressService) ensureCourse(courseID uint) error {
	_, err := s.courses.FindByID(courseID)
	return err
}

// RecordVideoProgress 上报视频观看进度
func (s *ProgressService) RecordVideoProgress(ctx context.Context, studentID, courseID uint, ev model.VideoEvent) (*model.StudentProgress, error) {
	if err := s.ensureCourse(courseID); err != nil {
		return nil, err
	}
	return s.applyAndSave(studentID, courseID, func(p *model.StudentProgress) {
		p.ApplyVideoEvent(ev)
	})
}

// RecordLessonCompletion 标记课时完成
func (s *ProgressService) RecordLessonCompletion(ctx context.Context, studentID, courseID uint, ev model.LessonEvent) (*model.StudentProgress, error) {
	if err := s.ensureCourse(courseID); err != nil {
		return nil, err
	}
	return s.applyAndSave(studentID, courseID, func(p *model.StudentProgress) {
		p.ApplyLessonEvent(ev)
	})
}

// RecordQuizResult 把测验成绩并入进度
func (s *ProgressService) RecordQuizResult(ctx context.Context, studentID, courseID uint, result model.QuizResult) (*model.StudentProgress, error) {
	if err := s.ensureCourse(courseID); err != nil {
		return nil, err
	}
	return s.applyAndSave(studentID, courseID, func(p *model.StudentProgress) {
		p.ApplyQuizResult(result)
	})
}

// GetProgress 查询单门课程的进度，首次查询即创建空记录
func (s *ProgressService) GetProgress(ctx context.Context, studentID, courseID uint) (*model.StudentProgress, error) {
	if err := s.ensureCourse(courseID); err != nil {
		return nil, err
	}
	return s.store.GetOrCreate(studentID, courseID)
}

// SetProgress 管理覆写进度值，允许下调
func (s *ProgressService) SetProgress(ctx context.Context, studentID, courseID uint, value int) (*model.StudentProgress, error) {
	if err := s.ensureCourse(courseID); err != nil {
		return nil, err
	}
	return s.applyAndSave(studentID, courseID, func(p *model.StudentProgress) {
		p.SetProgress(value)
	})
}

// MyProgress 学生全部课程的进度列表，按最近活动排序
func (s *ProgressService) MyProgress(ctx context.Context, studentID uint) ([]model.StudentProgress, error) {
	return s.store.ListByStudent(studentID)
}

// Statistics 学生维度的进度统计
func (s *ProgressService) Statistics(ctx context.Context, studentID uint) (*model.ProgressStatistics, error) {
	records, err := s.store.ListByStudent(studentID)
	if err != nil {
		return nil, err
	}

	stats := &model.ProgressStatistics{TotalCourses: len(records)}
	progressSum := 0
	quizScoreSum := 0

	for _, r := range records {
		if r.CourseCompleted {
			stats.CompletedCourses++
		}
		progressSum += r.Progress
		stats.TotalTimeSpent += r.TotalTimeSpentMinutes
		for _, q := range r.QuizResults {
			stats.TotalQuizzes++
			quizScoreSum += q.Score
		}
	}

	if len(records) > 0 {
		stats.AverageProgress = float64(progressSum) / float64(len(records))
	}
	if stats.TotalQuizzes > 0 {
		stats.AverageQuizScore = float64(quizScoreSum) / float64(stats.TotalQuizzes)
	}
	return stats, nil
}
