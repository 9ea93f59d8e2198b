package service

import (
	"ai_exam_backend/internal/config"
	"ai_exam_backend/internal/model"
	"ai_exam_backend/pkg/logger"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const generatePaperPrompt = `你是一名专业的培训考试出题专家。请根据用户提供的参考文档生成培训测试题。
要求：
1. 共生成10道题目：6道单选题、4道多选题，全部来源于参考文档内容。
2. 每道题提供4~5个选项，选项ID使用大写字母（A、B、C...），正确选项标记 is_correct 为 true，并为每个选项给出 explanation 说明依据。
3. 只输出 JSON，不要输出任何其他文字，格式如下：
{"questions":[{"question_id":"1","question_type":"single_choice","question_text":"...","options":[{"id":"A","text":"...","is_correct":false,"explanation":"..."}]}]}`

const analyzePaperPrompt = `你是一名专业的培训考试阅卷专家。下面会给出学员的答卷，包含每道题的题目、选项、正确答案标识和学员的作答。
请针对每道题生成一段个性化反馈：答对的指出掌握点，答错的解释错在哪里并给出正确思路。
只输出 JSON，不要输出任何其他文字，格式如下：
{"results":[{"question_id":"1","explanation":"..."}]}`

type aiChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []aiChatMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message aiChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// AIService 调用 OpenAI 兼容接口完成出题和答卷反馈两类任务
type AIService struct {
	mu     sync.RWMutex
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &AIService{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// UpdateConfig 配置热更新入口，进行中的请求继续使用旧配置
func (s *AIService) UpdateConfig(cfg config.AIConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

func (s *AIService) snapshot() config.AIConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *AIService) chatCompletion(ctx context.Context, messages []aiChatMessage, temperature float64) (string, error) {
	cfg := s.snapshot()
	reqBody := chatCompletionRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		cfg.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("AI API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("AI returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}

// extractJSON 从模型输出中剥离 markdown 代码块标记和首尾杂质，
// 截取第一个 '{' 到最后一个 '}' 之间的内容
func extractJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return cleaned
	}
	return cleaned[start : end+1]
}

type generatedQuestions struct {
	Questions []model.Question `json:"questions"`
}

// GenerateQuestions 根据参考文档文本生成题目列表。调用或解析失败允许
// 重试一次，重试仍失败则上抛错误，绝不静默返回空卷。
func (s *AIService) GenerateQuestions(ctx context.Context, referenceText string) ([]model.Question, error) {
	messages := []aiChatMessage{
		{Role: "system", Content: generatePaperPrompt},
		{Role: "user", Content: "请根据以下参考文档生成培训测试题：\n\n" + referenceText},
	}

	questions, err := s.generateOnce(ctx, messages)
	if err != nil {
		logger.Log.Warn("题目生成失败，准备重试", zap.Error(err))
		questions, err = s.generateOnce(ctx, messages)
		if err != nil {
			logger.Log.Error("重试后题目生成仍然失败", zap.Error(err))
			return nil, err
		}
	}

	// 题目类型转换为中文展示标签
	for i := range questions {
		questions[i].QuestionType = DisplayQuestionType(questions[i].QuestionType)
	}

	logger.Log.Info("培训测试题生成完成", zap.Int("count", len(questions)))
	return questions, nil
}

func (s *AIService) generateOnce(ctx context.Context, messages []aiChatMessage) ([]model.Question, error) {
	start := time.Now()
	content, err := s.chatCompletion(ctx, messages, s.snapshot().GenerateTemperature)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("大模型出题调用完成", zap.Duration("elapsed", time.Since(start)))

	var parsed generatedQuestions
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("解析题目生成输出失败: %w", err)
	}
	return parsed.Questions, nil
}

type analyzeResults struct {
	Results []struct {
		QuestionID  string `json:"question_id"`
		Explanation string `json:"explanation"`
	} `json:"results"`
}

// AnalyzeAnswers 对整卷分析任务做一次批量调用，返回题目ID到
// 个性化反馈的映射。失败由调用方降级为占位反馈，不影响判分。
func (s *AIService) AnalyzeAnswers(ctx context.Context, tasks []AnalysisTask) (map[string]string, error) {
	input, err := json.Marshal(map[string]interface{}{"analysis_tasks": tasks})
	if err != nil {
		return nil, err
	}

	messages := []aiChatMessage{
		{Role: "system", Content: analyzePaperPrompt},
		{Role: "user", Content: "请分析以下学员的答卷：\n\n" + string(input)},
	}

	start := time.Now()
	content, err := s.chatCompletion(ctx, messages, s.snapshot().AnalyzeTemperature)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("大模型答卷分析调用完成", zap.Duration("elapsed", time.Since(start)))

	var parsed analyzeResults
	if err := json.Unmarshal([]byte(extractJSON(content)), &parsed); err != nil {
		return nil, fmt.Errorf("解析答卷分析输出失败: %w", err)
	}

	explanations := make(map[string]string, len(parsed.Results))
	for _, item := range parsed.Results {
		explanations[item.QuestionID] = item.Explanation
	}
	return explanations, nil
}
