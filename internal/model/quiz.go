package model

// Quiz 测验试卷。由AI生成或按课程元数据兜底生成，不单独入库，
// 生成后短期缓存在Redis中供提交时按ID评分
type Quiz struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

type QuizQuestion struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  string   `json:"correct"`
}
