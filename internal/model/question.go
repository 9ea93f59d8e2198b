package model

// Option 选项，is_correct 和 explanation 只在服务端流转
type Option struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}

// OptionView 下发给答题端的选项，不携带答案信息
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question 完整题目（含正确答案标识）
type Question struct {
	QuestionID   string   `json:"question_id"`
	QuestionType string   `json:"question_type"`
	QuestionText string   `json:"question_text"`
	Options      []Option `json:"options"`
}

// QuestionView 答题端视图
type QuestionView struct {
	QuestionID   string       `json:"question_id"`
	QuestionType string       `json:"question_type"`
	QuestionText string       `json:"question_text"`
	Options      []OptionView `json:"options"`
}

func (q Question) View() QuestionView {
	options := make([]OptionView, 0, len(q.Options))
	for _, opt := range q.Options {
		options = append(options, OptionView{ID: opt.ID, Text: opt.Text})
	}
	return QuestionView{
		QuestionID:   q.QuestionID,
		QuestionType: q.QuestionType,
		QuestionText: q.QuestionText,
		Options:      options,
	}
}

// HideCorrectAnswers 批量转换成答题端视图
func HideCorrectAnswers(questions []Question) []QuestionView {
	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, q.View())
	}
	return views
}

// SubmittedAnswer 用户提交的单题作答
type SubmittedAnswer struct {
	QuestionID string      `json:"question_id" binding:"required"`
	UserAnswer AnswerValue `json:"user_answer"`
}

// QuestionAnalysis 单题判分和反馈结果
type QuestionAnalysis struct {
	QuestionID    string      `json:"question_id"`
	QuestionType  string      `json:"question_type"`
	QuestionText  string      `json:"question_text"`
	UserAnswer    AnswerValue `json:"user_answer"`
	IsCorrect     bool        `json:"is_correct"`
	Score         float64     `json:"score"`
	CorrectAnswer AnswerValue `json:"correct_answer"`
	Explanation   string      `json:"explanation"`
}
