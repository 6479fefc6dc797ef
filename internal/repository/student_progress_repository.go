package repository

import (
	"errors"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

const mysqlDuplicateEntry = 1062

type StudentProgressRepository struct {
	DB *gorm.DB
}

func NewStudentProgressRepository(db *gorm.DB) *StudentProgressRepository {
	return &StudentProgressRepository{DB: db}
}

// GetOrCreate 返回已有记录，不存在则插入零值记录。
// 并发首次访问依赖(student_id, course_id)唯一索引：
// 插入撞到1062重复键说明别人先建好了，重新查询即可
func (r *StudentProgressRepository) GetOrCreate(studentID, courseID uint) (*model.StudentProgress, error) {
	record, err := r.GetByKey(studentID, courseID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, util.ErrProgressNotFound) {
		return nil, err
	}

	now := time.Now()
	fresh := &model.StudentProgress{
		StudentID:        studentID,
		CourseID:         courseID,
		EnrollmentDate:   now,
		LastActivity:     now,
		CompletedLessons: model.CompletedLessonList{},
		QuizResults:      model.QuizResultList{},
		VideoProgress:    model.VideoProgressList{},
	}

	if err := r.DB.Create(fresh).Error; err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return r.GetByKey(studentID, courseID)
		}
		return nil, err
	}

	return fresh, nil
}

func (r *StudentProgressRepository) GetByKey(studentID, courseID uint) (*model.StudentProgress, error) {
	var record model.StudentProgress
	err := r.DB.Where("student_id = ? AND course_id = ?", studentID, courseID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrProgressNotFound
		}
		return nil, err
	}
	return &record, nil
}

// Save 乐观锁写回：version不匹配说明有并发写入，报ErrVersionConflict，
// 调用方重新读取、重放规则后重试（合并规则是max，重放可交换）
func (r *StudentProgressRepository) Save(record *model.StudentProgress) error {
	result := r.DB.Model(&model.StudentProgress{}).
		Where("id = ? AND version = ?", record.ID, record.Version).
		Updates(map[string]interface{}{
			"progress":                 record.Progress,
			"completed_lessons":        record.CompletedLessons,
			"quiz_results":             record.QuizResults,
			"video_progress":           record.VideoProgress,
			"last_activity":            record.LastActivity,
			"course_completed":         record.CourseCompleted,
			"completion_date":          record.CompletionDate,
			"total_time_spent_minutes": record.TotalTimeSpentMinutes,
			"version":                  record.Version + 1,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return util.ErrVersionConflict
	}

	record.Version++
	return nil
}

// ListByStudent 学生的全部进度记录，按最近活跃时间倒序
func (r *StudentProgressRepository) ListByStudent(studentID uint) ([]model.StudentProgress, error) {
	var records []model.StudentProgress
	err := r.DB.Where("student_id = ?", studentID).
		Order("last_activity DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
