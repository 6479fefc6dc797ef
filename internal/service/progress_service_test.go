package service

import (
	"context"
	"errors"
	"testing"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProgressStore 内存版进度存储，可注入版本冲突和写入故障
type fakeProgressStore struct {
	records       map[[2]uint]*model.StudentProgress
	saveCalls     int
	conflictTimes int   // 前N次Save报版本冲突
	saveErr       error // 恒定写入故障
	getErr        error
	byKeyErr      error
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{records: map[[2]uint]*model.StudentProgress{}}
}

func key(studentID, courseID uint) [2]uint {
	return [2]uint{studentID, courseID}
}

func (s *fakeProgressStore) GetOrCreate(studentID, courseID uint) (*model.StudentProgress, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if r, ok := s.records[key(studentID, courseID)]; ok {
		cp := *r
		return &cp, nil
	}
	r := &model.StudentProgress{
		StudentID:        studentID,
		CourseID:         courseID,
		CompletedLessons: model.CompletedLessonList{},
		QuizResults:      model.QuizResultList{},
		VideoProgress:    model.VideoProgressList{},
	}
	s.records[key(studentID, courseID)] = r
	cp := *r
	return &cp, nil
}

func (s *fakeProgressStore) GetByKey(studentID, courseID uint) (*model.StudentProgress, error) {
	if s.byKeyErr != nil {
		return nil, s.byKeyErr
	}
	if r, ok := s.records[key(studentID, courseID)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, util.ErrProgressNotFound
}

func (s *fakeProgressStore) Save(record *model.StudentProgress) error {
	s.saveCalls++
	if s.saveErr != nil {
		return s.saveErr
	}
	if s.conflictTimes > 0 {
		s.conflictTimes--
		return util.ErrVersionConflict
	}
	cp := *record
	s.records[key(record.StudentID, record.CourseID)] = &cp
	return nil
}

func (s *fakeProgressStore) ListByStudent(studentID uint) ([]model.StudentProgress, error) {
	var out []model.StudentProgress
	for _, r := range s.records {
		if r.StudentID == studentID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func newProgressService(store *fakeProgressStore) *ProgressService {
	return NewProgressService(store, newTestCourses())
}

func TestRecordLessonCompletion_Persists(t *testing.T) {
	store := newFakeProgressStore()
	svc := newProgressService(store)

	record, err := svc.RecordLessonCompletion(context.Background(), 1, 10, model.LessonEvent{LessonID: "l1", TimeSpentMinutes: 12})

	require.NoError(t, err)
	assert.Equal(t, 50, record.Progress)

	persisted, err := store.GetByKey(1, 10)
	require.NoError(t, err)
	assert.Equal(t, 50, persisted.Progress)
	assert.Equal(t, 12, persisted.TotalTimeSpentMinutes)
}

func TestRecordVideoProgress_UnknownCourse(t *testing.T) {
	svc := newProgressService(newFakeProgressStore())

	_, err := svc.RecordVideoProgress(context.Background(), 1, 404, model.VideoEvent{VideoID: "v1", WatchTimeSeconds: 10, TotalDurationSeconds: 100})

	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestVersionConflict_ReplayPreservesBothWriters(t *testing.T) {
	store := newFakeProgressStore()
	svc := newProgressService(store)

	// 另一个写入方先落了一条视频记录
	_, err := svc.RecordVideoProgress(context.Background(), 1, 10, model.VideoEvent{VideoID: "v1", WatchTimeSeconds: 600, TotalDurationSeconds: 600})
	require.NoError(t, err)

	// 本次写入第一次因版本冲突失败，重放后成功
	store.conflictTimes = 1
	record, err := svc.RecordLessonCompletion(context.Background(), 1, 10, model.LessonEvent{LessonID: "l1"})
	require.NoError(t, err)

	// 两个写入方的贡献都在
	assert.Len(t, record.VideoProgress, 1)
	assert.Len(t, record.CompletedLessons, 1)
	assert.Equal(t, 100, record.Progress)
	assert.GreaterOrEqual(t, store.saveCalls, 2)
}

func TestVersionConflict_RetriesAreBounded(t *testing.T) {
	store := newFakeProgressStore()
	store.conflictTimes = 100
	svc := newProgressService(store)

	record, err := svc.RecordLessonCompletion(context.Background(), 1, 10, model.LessonEvent{LessonID: "l1"})

	// 重试耗尽后降级返回已计算的记录：本次事件的贡献必须在
	require.NoError(t, err)
	assert.Equal(t, 50, record.Progress)
	assert.Len(t, record.CompletedLessons, 1)
	assert.Equal(t, maxSaveAttempts, store.saveCalls)
}

func TestWriteFailure_AfterConflict_KeepsAppliedEvent(t *testing.T) {
	store := newFakeProgressStore()
	store.conflictTimes = 1
	store.byKeyErr = errors.New("connection reset")
	svc := newProgressService(store)

	// 第一次冲突、重放途中读取失败，降级记录仍带有已应用的事件
	record, err := svc.RecordLessonCompletion(context.Background(), 1, 10, model.LessonEvent{LessonID: "l1"})

	require.NoError(t, err)
	assert.Len(t, record.CompletedLessons, 1)
	assert.Equal(t, 50, record.Progress)
}

func TestWriteFailure_ReturnsComputedRecord(t *testing.T) {
	store := newFakeProgressStore()
	store.saveErr = errors.New("disk full")
	svc := newProgressService(store)

	record, err := svc.RecordLessonCompletion(context.Background(), 1, 10, model.LessonEvent{LessonID: "l1"})

	require.NoError(t, err)
	assert.Equal(t, 50, record.Progress)
}

func TestReadFailure_IsFatal(t *testing.T) {
	store := newFakeProgressStore()
	store.getErr = errors.New("connection refused")
	svc := newProgressService(store)

	_, err := svc.RecordLessonCompletion(context.Background(), 1, 10, model.LessonEvent{LessonID: "l1"})
	assert.Error(t, err)
}

func TestGetProgress_CreatesOnFirstRead(t *testing.T) {
	store := newFakeProgressStore()
	svc := newProgressService(store)

	record, err := svc.GetProgress(context.Background(), 1, 10)

	require.NoError(t, err)
	assert.Zero(t, record.Progress)
	assert.False(t, record.CourseCompleted)

	// 再次读取拿到同一条记录
	again, err := svc.GetProgress(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, record.StudentID, again.StudentID)
}

func TestSetProgress_AdminOverrideCanDecrease(t *testing.T) {
	store := newFakeProgressStore()
	svc := newProgressService(store)

	_, err := svc.RecordLessonCompletion(context.Background(), 1, 10, model.LessonEvent{LessonID: "l1"})
	require.NoError(t, err)

	record, err := svc.SetProgress(context.Background(), 1, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, record.Progress)
}

func TestStatistics_Aggregation(t *testing.T) {
	store := newFakeProgressStore()
	completed := &model.StudentProgress{
		StudentID: 1, CourseID: 10, Progress: 100, CourseCompleted: true,
		TotalTimeSpentMinutes: 120,
		QuizResults:           model.QuizResultList{{QuizID: "q1", Score: 80}, {QuizID: "q2", Score: 60}},
	}
	inFlight := &model.StudentProgress{
		StudentID: 1, CourseID: 11, Progress: 40,
		TotalTimeSpentMinutes: 30,
	}
	store.records[key(1, 10)] = completed
	store.records[key(1, 11)] = inFlight

	svc := newProgressService(store)
	stats, err := svc.Statistics(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCourses)
	assert.Equal(t, 1, stats.CompletedCourses)
	assert.InDelta(t, 70.0, stats.AverageProgress, 0.001)
	assert.Equal(t, 150, stats.TotalTimeSpent)
	assert.Equal(t, 2, stats.TotalQuizzes)
	assert.InDelta(t, 70.0, stats.AverageQuizScore, 0.001)
}

func TestStatistics_EmptyStudent(t *testing.T) {
	svc := newProgressService(newFakeProgressStore())
	stats, err := svc.Statistics(context.Background(), 42)

	require.NoError(t, err)
	assert.Zero(t, stats.TotalCourses)
	assert.Zero(t, stats.AverageProgress)
	assert.Zero(t, stats.AverageQuizScore)
}
