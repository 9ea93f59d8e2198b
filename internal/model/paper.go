package model

import "time"

const (
	PaperStatusActive   = "active"
	PaperStatusInactive = "inactive"
)

// Paper 共享试题，题目内容以JSON文本整体存储
type Paper struct {
	PaperID    string    `gorm:"primaryKey;size:50" json:"paper_id"`
	Questions  string    `gorm:"type:text;not null" json:"questions"`
	TotalCount int       `gorm:"not null" json:"total_count"`
	AccessCode string    `gorm:"size:20;uniqueIndex;not null" json:"access_code"`
	UserID     string    `gorm:"size:100;index" json:"user_id"`
	Status     string    `gorm:"size:20;default:active" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Paper) TableName() string {
	return "papers"
}

// UserAnswer 用户答题记录，同一 (paper_id, user_id) 只保留最新一条
type UserAnswer struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PaperID         string    `gorm:"size:50;index:idx_paper_user" json:"paper_id"`
	UserID          string    `gorm:"size:100;index:idx_paper_user" json:"user_id"`
	Answers         string    `gorm:"type:text" json:"answers"`
	Score           float64   `gorm:"type:decimal(5,2)" json:"score"`
	CorrectCount    int       `json:"correct_count"`
	TotalCount      int       `json:"total_count"`
	AnalysisResults string    `gorm:"type:text" json:"analysis_results"`
	OverallFeedback string    `gorm:"type:text" json:"overall_feedback"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

func (UserAnswer) TableName() string {
	return "user_answers"
}
