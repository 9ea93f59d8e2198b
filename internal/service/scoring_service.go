package service

import (
	"ai_exam_backend/internal/model"
	"sort"
	"strings"
)

// 每题基础分数
const BaseQuestionScore = 10.0

// 多选题部分正确（无错选）的得分
const partialCreditScore = 5.0

// 题目类型
const (
	QuestionTypeSingleChoice   = "single_choice"
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeTrueFalse      = "true_false"
	QuestionTypeFillBlank      = "fill_blank"
)

// 解释生成失败时的占位反馈
const FallbackExplanation = "未能生成个性化反馈"

// AnalysisTask 单题分析任务：题目完整信息 + 用户答案
type AnalysisTask struct {
	QuestionID   string            `json:"question_id"`
	QuestionType string            `json:"question_type"`
	QuestionText string            `json:"question_text"`
	UserAnswer   model.AnswerValue `json:"user_answer"`
	Options      []model.Option    `json:"options"`
}

// ScoreOutcome 单题判分结果
type ScoreOutcome struct {
	IsCorrect     bool
	Score         float64
	CorrectAnswer model.AnswerValue
	Explanation   string
	DisplayType   string
}

var questionTypeLabels = map[string]string{
	QuestionTypeSingleChoice:   "单选题",
	QuestionTypeMultipleChoice: "多选题",
	QuestionTypeTrueFalse:      "判断题",
	QuestionTypeFillBlank:      "填空题",
	// 已经是中文类型时原样保留
	"单选题": "单选题",
	"多选题": "多选题",
	"判断题": "判断题",
	"填空题": "填空题",
}

// DisplayQuestionType 题目类型到展示标签的全映射，未知类型原样透传
func DisplayQuestionType(questionType string) string {
	if label, ok := questionTypeLabels[questionType]; ok {
		return label
	}
	return questionType
}

func isSingleChoice(questionType string) bool {
	return questionType == QuestionTypeSingleChoice || questionType == "单选题"
}

func isMultipleChoice(questionType string) bool {
	return questionType == QuestionTypeMultipleChoice || questionType == "多选题"
}

// ScoreQuestion 纯判分函数：一道题 + 一个用户答案 -> 正确性/得分/正确答案。
// 只有单选和多选有判分分支，其余类型一律走未识别分支得0分。
func ScoreQuestion(task AnalysisTask) ScoreOutcome {
	displayType := DisplayQuestionType(task.QuestionType)

	switch {
	case isSingleChoice(task.QuestionType):
		return scoreSingleChoice(task, displayType)
	case isMultipleChoice(task.QuestionType):
		return scoreMultipleChoice(task, displayType)
	default:
		return scoreUnknownType(task, displayType)
	}
}

func scoreSingleChoice(task AnalysisTask, displayType string) ScoreOutcome {
	userAnswer := task.UserAnswer.First()

	// 唯一的正确选项（假定单选题只标记一个）
	correctAnswer := ""
	for _, opt := range task.Options {
		if opt.IsCorrect {
			correctAnswer = opt.ID
			break
		}
	}

	for _, opt := range task.Options {
		if opt.ID == userAnswer {
			score := 0.0
			if opt.IsCorrect {
				score = BaseQuestionScore
			}
			return ScoreOutcome{
				IsCorrect:     opt.IsCorrect,
				Score:         score,
				CorrectAnswer: model.SingleAnswer(correctAnswer),
				Explanation:   opt.Explanation,
				DisplayType:   displayType,
			}
		}
	}

	// 用户答案不在选项中
	return ScoreOutcome{
		IsCorrect:     false,
		Score:         0,
		CorrectAnswer: model.SingleAnswer(correctAnswer),
		Explanation:   "答案格式错误",
		DisplayType:   displayType,
	}
}

func scoreMultipleChoice(task AnalysisTask, displayType string) ScoreOutcome {
	userSet := task.UserAnswer.OptionSet()

	correctSet := make(map[string]struct{})
	for _, opt := range task.Options {
		if opt.IsCorrect {
			correctSet[opt.ID] = struct{}{}
		}
	}

	correctIDs := make([]string, 0, len(correctSet))
	for id := range correctSet {
		correctIDs = append(correctIDs, id)
	}
	sort.Strings(correctIDs)

	hasWrong := false
	for id := range userSet {
		if _, ok := correctSet[id]; !ok {
			hasWrong = true
			break
		}
	}

	hitCount := 0
	for id := range userSet {
		if _, ok := correctSet[id]; ok {
			hitCount++
		}
	}

	var isCorrect bool
	var score float64
	switch {
	case hasWrong:
		// 有一个错就是错，得0分
	case hitCount == len(correctSet) && len(userSet) == len(correctSet):
		isCorrect = true
		score = BaseQuestionScore
	case hitCount > 0:
		// 答对部分且无错选，给一半分；计入正确题数是刻意保留的行为
		isCorrect = true
		score = partialCreditScore
	}

	return ScoreOutcome{
		IsCorrect:     isCorrect,
		Score:         score,
		CorrectAnswer: model.MultipleAnswer(correctIDs...),
		Explanation:   "正确答案包含选项：" + strings.Join(correctIDs, ", "),
		DisplayType:   displayType,
	}
}

func scoreUnknownType(task AnalysisTask, displayType string) ScoreOutcome {
	var correctIDs []string
	for _, opt := range task.Options {
		if opt.IsCorrect {
			correctIDs = append(correctIDs, opt.ID)
		}
	}

	return ScoreOutcome{
		IsCorrect:     false,
		Score:         0,
		CorrectAnswer: model.SingleAnswer(strings.Join(correctIDs, "")),
		Explanation:   "未知题目类型",
		DisplayType:   displayType,
	}
}

// OverallFeedback 按总分（各题得分之和，不是百分比）从高到低匹配评价档位
func OverallFeedback(totalScore float64) string {
	switch {
	case totalScore >= 90:
		return "专业功底扎实,细节把控近乎完美!"
	case totalScore >= 80:
		return "专业基础良好,对知识点掌握较为全面!"
	case totalScore >= 70:
		return "基本掌握相关知识,仍有提升空间!"
	case totalScore >= 60:
		return "部分知识点掌握,需要加强学习!"
	default:
		return "需要系统复习,建议重点关注错误题目!"
	}
}

// AnalysisSummary 整卷分析结果
type AnalysisSummary struct {
	AnalysisResults []model.QuestionAnalysis `json:"analysis_results"`
	TotalScore      float64                  `json:"total_score"`
	CorrectCount    int                      `json:"correct_count"`
	TotalCount      int                      `json:"total_count"`
	OverallFeedback string                   `json:"overall_feedback"`
}

// SummarizeAnalysis 逐题判分并合入 AI 生成的个性化反馈（按题目ID对齐，
// 缺失的题目回退到占位反馈），最后汇总总分、正确题数和整体评价。
func SummarizeAnalysis(tasks []AnalysisTask, explanations map[string]string) AnalysisSummary {
	results := make([]model.QuestionAnalysis, 0, len(tasks))
	totalScore := 0.0
	correctCount := 0

	for _, task := range tasks {
		outcome := ScoreQuestion(task)

		explanation, ok := explanations[task.QuestionID]
		if !ok || explanation == "" {
			explanation = FallbackExplanation
		}

		results = append(results, model.QuestionAnalysis{
			QuestionID:    task.QuestionID,
			QuestionType:  outcome.DisplayType,
			QuestionText:  task.QuestionText,
			UserAnswer:    task.UserAnswer,
			IsCorrect:     outcome.IsCorrect,
			Score:         outcome.Score,
			CorrectAnswer: outcome.CorrectAnswer,
			Explanation:   explanation,
		})

		totalScore += outcome.Score
		if outcome.IsCorrect {
			correctCount++
		}
	}

	return AnalysisSummary{
		AnalysisResults: results,
		TotalScore:      totalScore,
		CorrectCount:    correctCount,
		TotalCount:      len(tasks),
		OverallFeedback: OverallFeedback(totalScore),
	}
}
