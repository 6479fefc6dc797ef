package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList JSON数组列
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// Course 课程元数据。本服务只读：课程的增删改由课程管理服务负责
type Course struct {
	BaseModel
	Title              string          `gorm:"size:255;not null" json:"title"`
	Description        string          `gorm:"type:text" json:"description"`
	Category           string          `gorm:"size:100" json:"category"`
	Difficulty         string          `gorm:"size:50" json:"difficulty"` // beginner, intermediate, advanced
	DurationWeeks      int             `gorm:"default:0" json:"durationWeeks"`
	EducatorName       string          `gorm:"size:255" json:"educatorName"`
	Rating             float64         `gorm:"default:0" json:"rating"`
	LearningObjectives StringList      `gorm:"type:json" json:"learningObjectives"`
	Prerequisites      StringList      `gorm:"type:json" json:"prerequisites"`
	Contents           []CourseContent `gorm:"foreignKey:CourseID" json:"contents"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseContent 一节课的内容描述（视频/图文）
type CourseContent struct {
	BaseModel
	CourseID    uint   `gorm:"index;type:bigint unsigned" json:"courseId"`
	Title       string `gorm:"size:255" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	VideoURL    string `gorm:"size:512" json:"videoUrl"`
	ImageURL    string `gorm:"size:512" json:"imageUrl"`
	Order       int    `gorm:"default:0" json:"order"`
}

func (CourseContent) TableName() string {
	return "course_contents"
}

func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
}
