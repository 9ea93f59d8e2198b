package service

import (
	"ai_exam_backend/internal/model"
	"testing"
)

func singleChoiceTask(userAnswer model.AnswerValue) AnalysisTask {
	return AnalysisTask{
		QuestionID:   "1",
		QuestionType: "single_choice",
		QuestionText: "单选测试题",
		UserAnswer:   userAnswer,
		Options: []model.Option{
			{ID: "A", Text: "甲", IsCorrect: false, Explanation: "甲不对"},
			{ID: "B", Text: "乙", IsCorrect: true, Explanation: "乙正确"},
			{ID: "C", Text: "丙", IsCorrect: false, Explanation: "丙不对"},
		},
	}
}

func multipleChoiceTask(userAnswer model.AnswerValue) AnalysisTask {
	return AnalysisTask{
		QuestionID:   "2",
		QuestionType: "multiple_choice",
		QuestionText: "多选测试题",
		UserAnswer:   userAnswer,
		Options: []model.Option{
			{ID: "A", Text: "甲", IsCorrect: true},
			{ID: "B", Text: "乙", IsCorrect: false},
			{ID: "C", Text: "丙", IsCorrect: true},
			{ID: "D", Text: "丁", IsCorrect: false},
		},
	}
}

func TestScoreSingleChoice(t *testing.T) {
	tests := []struct {
		name        string
		answer      model.AnswerValue
		wantCorrect bool
		wantScore   float64
		wantExplain string
	}{
		{"答对得满分", model.SingleAnswer("B"), true, 10, "乙正确"},
		{"答错得0分", model.SingleAnswer("A"), false, 0, "甲不对"},
		{"列表答案取第一项", model.MultipleAnswer("B", "C"), true, 10, "乙正确"},
		{"答案不在选项中", model.SingleAnswer("X"), false, 0, "答案格式错误"},
		{"空答案", model.SingleAnswer(""), false, 0, "答案格式错误"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := ScoreQuestion(singleChoiceTask(tt.answer))
			if outcome.IsCorrect != tt.wantCorrect {
				t.Errorf("IsCorrect = %v, want %v", outcome.IsCorrect, tt.wantCorrect)
			}
			if outcome.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v", outcome.Score, tt.wantScore)
			}
			if outcome.Explanation != tt.wantExplain {
				t.Errorf("Explanation = %q, want %q", outcome.Explanation, tt.wantExplain)
			}
			if outcome.CorrectAnswer.First() != "B" {
				t.Errorf("CorrectAnswer = %+v, want B", outcome.CorrectAnswer)
			}
			if outcome.DisplayType != "单选题" {
				t.Errorf("DisplayType = %q, want 单选题", outcome.DisplayType)
			}
		})
	}
}

func TestScoreMultipleChoice(t *testing.T) {
	tests := []struct {
		name        string
		answer      model.AnswerValue
		wantCorrect bool
		wantScore   float64
	}{
		{"完全答对得满分", model.MultipleAnswer("A", "C"), true, 10},
		{"部分答对无错选得一半分", model.MultipleAnswer("A"), true, 5},
		{"有错选直接0分", model.MultipleAnswer("A", "B"), false, 0},
		{"全部错选0分", model.MultipleAnswer("B", "D"), false, 0},
		{"空答案0分", model.MultipleAnswer(), false, 0},
		{"逗号分隔的旧格式字符串", model.SingleAnswer("A,C"), true, 10},
		{"多选但选齐还多选了0分", model.MultipleAnswer("A", "C", "D"), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := ScoreQuestion(multipleChoiceTask(tt.answer))
			if outcome.IsCorrect != tt.wantCorrect {
				t.Errorf("IsCorrect = %v, want %v", outcome.IsCorrect, tt.wantCorrect)
			}
			if outcome.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v", outcome.Score, tt.wantScore)
			}
		})
	}

	t.Run("正确答案按字典序排序", func(t *testing.T) {
		outcome := ScoreQuestion(multipleChoiceTask(model.MultipleAnswer("A", "C")))
		want := []string{"A", "C"}
		if len(outcome.CorrectAnswer.Multiple) != len(want) {
			t.Fatalf("CorrectAnswer = %+v, want %v", outcome.CorrectAnswer, want)
		}
		for i, id := range want {
			if outcome.CorrectAnswer.Multiple[i] != id {
				t.Errorf("CorrectAnswer[%d] = %q, want %q", i, outcome.CorrectAnswer.Multiple[i], id)
			}
		}
		if outcome.Explanation != "正确答案包含选项：A, C" {
			t.Errorf("Explanation = %q", outcome.Explanation)
		}
	})
}

func TestScoreUnknownType(t *testing.T) {
	// 判断题和填空题没有专门的判分分支，一律按未知类型0分处理
	for _, questionType := range []string{"true_false", "fill_blank", "essay", "判断题"} {
		t.Run(questionType, func(t *testing.T) {
			task := AnalysisTask{
				QuestionID:   "3",
				QuestionType: questionType,
				UserAnswer:   model.SingleAnswer("A"),
				Options: []model.Option{
					{ID: "A", IsCorrect: true},
					{ID: "B", IsCorrect: true},
				},
			}
			outcome := ScoreQuestion(task)
			if outcome.IsCorrect {
				t.Error("未知类型不应判对")
			}
			if outcome.Score != 0 {
				t.Errorf("未知类型应得0分，得到 %v", outcome.Score)
			}
			if outcome.Explanation != "未知题目类型" {
				t.Errorf("Explanation = %q", outcome.Explanation)
			}
			if outcome.CorrectAnswer.First() != "AB" {
				t.Errorf("未知类型正确答案应为拼接的选项ID，得到 %+v", outcome.CorrectAnswer)
			}
		})
	}
}

func TestDisplayQuestionType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"single_choice", "单选题"},
		{"multiple_choice", "多选题"},
		{"true_false", "判断题"},
		{"fill_blank", "填空题"},
		{"单选题", "单选题"},
		{"essay", "essay"},
	}

	for _, tt := range tests {
		if got := DisplayQuestionType(tt.input); got != tt.want {
			t.Errorf("DisplayQuestionType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestOverallFeedback(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "专业功底扎实,细节把控近乎完美!"},
		{90, "专业功底扎实,细节把控近乎完美!"},
		{85, "专业基础良好,对知识点掌握较为全面!"},
		{75, "基本掌握相关知识,仍有提升空间!"},
		{60, "部分知识点掌握,需要加强学习!"},
		{59.9, "需要系统复习,建议重点关注错误题目!"},
		{0, "需要系统复习,建议重点关注错误题目!"},
	}

	for _, tt := range tests {
		if got := OverallFeedback(tt.score); got != tt.want {
			t.Errorf("OverallFeedback(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestSummarizeAnalysis(t *testing.T) {
	tasks := []AnalysisTask{
		singleChoiceTask(model.SingleAnswer("B")),
		multipleChoiceTask(model.MultipleAnswer("A")),
	}

	t.Run("合并个性化反馈", func(t *testing.T) {
		summary := SummarizeAnalysis(tasks, map[string]string{
			"1": "这道题你掌握得很好",
		})

		if summary.TotalScore != 15 {
			t.Errorf("TotalScore = %v, want 15", summary.TotalScore)
		}
		if summary.CorrectCount != 2 {
			t.Errorf("CorrectCount = %v, want 2", summary.CorrectCount)
		}
		if summary.TotalCount != 2 {
			t.Errorf("TotalCount = %v, want 2", summary.TotalCount)
		}
		if summary.AnalysisResults[0].Explanation != "这道题你掌握得很好" {
			t.Errorf("第一题反馈 = %q", summary.AnalysisResults[0].Explanation)
		}
		// 没有拿到反馈的题目使用占位反馈
		if summary.AnalysisResults[1].Explanation != FallbackExplanation {
			t.Errorf("第二题反馈 = %q, want %q", summary.AnalysisResults[1].Explanation, FallbackExplanation)
		}
		// 档位按原始总分而不是百分比判定，15分落在最低档
		if summary.OverallFeedback != "需要系统复习,建议重点关注错误题目!" {
			t.Errorf("OverallFeedback = %q", summary.OverallFeedback)
		}
	})

	t.Run("反馈全部缺失时整卷降级", func(t *testing.T) {
		summary := SummarizeAnalysis(tasks, nil)
		for i, result := range summary.AnalysisResults {
			if result.Explanation != FallbackExplanation {
				t.Errorf("第%d题反馈 = %q, want %q", i+1, result.Explanation, FallbackExplanation)
			}
		}
		// 判分不受反馈缺失影响
		if summary.TotalScore != 15 {
			t.Errorf("TotalScore = %v, want 15", summary.TotalScore)
		}
	})
}
