package model

// FileInfo 参考文档在对象存储中的位置，桶名缺省时从下载地址推断
type FileInfo struct {
	FileLocation   string `json:"file_location" binding:"required"`
	FileName       string `json:"file_name" binding:"required"`
	FileBucketName string `json:"file_bucket_name"`
}

// CachedPaper 共享试题的缓存形态，题目带答案，仅服务端可见
type CachedPaper struct {
	PaperID       string     `json:"paper_id"`
	Questions     []Question `json:"questions"`
	TotalCount    int        `json:"total_count"`
	AccessCode    string     `json:"access_code"`
	UserID        string     `json:"user_id"`
	CreatedAt     string     `json:"created_at"`
	Documents     []string   `json:"documents"`
	DocumentCount int        `json:"document_count"`
}

// CachedResult 用户答题结果的缓存形态
type CachedResult struct {
	PaperID         string             `json:"paper_id"`
	UserID          string             `json:"user_id"`
	Answers         []SubmittedAnswer  `json:"answers"`
	AnalysisResults []QuestionAnalysis `json:"analysis_results"`
	TotalScore      float64            `json:"total_score"`
	CorrectCount    int                `json:"correct_count"`
	TotalCount      int                `json:"total_count"`
	OverallFeedback string             `json:"overall_feedback"`
	SubmittedAt     string             `json:"submitted_at"`
	Documents       []string           `json:"documents"`
	DocumentCount   int                `json:"document_count"`
}

// CachedGeneration 会话级生成试卷的临时缓存
type CachedGeneration struct {
	Questions  []Question `json:"questions"`
	TotalCount int        `json:"total_count"`
	UserID     string     `json:"user_id"`
	ChatID     string     `json:"chat_id"`
	CreatedAt  string     `json:"created_at"`
}
