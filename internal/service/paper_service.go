package service

import (
	"ai_exam_backend/internal/config"
	"ai_exam_backend/internal/model"
	"ai_exam_backend/internal/util"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PaperStore 持久层依赖。持久写失败是致命的，整个操作失败；
// 查不到记录返回 (nil, nil)。
type PaperStore interface {
	CreatePaper(paper *model.Paper) error
	GetPaperByID(paperID string) (*model.Paper, error)
	GetPaperByAccessCode(accessCode string) (*model.Paper, error)
	AccessCodeExists(accessCode string) (bool, error)
	GetPaperQuestions(paperID string) ([]model.Question, error)
	UpdatePaperStatus(paperID, status string) (bool, error)
	DeletePaper(paperID string) error
	SaveUserAnswer(record *model.UserAnswer) error
	GetUserAnswer(paperID, userID string) (*model.UserAnswer, error)
}

// CacheStore 缓存层依赖。持久写成功之后缓存写失败只降级不报错，
// 读路径永远可以回源重建。
type CacheStore interface {
	SaveSharedPaper(ctx context.Context, paper *model.CachedPaper) error
	GetSharedPaper(ctx context.Context, paperID string) (*model.CachedPaper, error)
	DeleteSharedPaper(ctx context.Context, paperID string) error
	SaveAccessCodeMapping(ctx context.Context, accessCode, paperID string) error
	GetPaperIDByAccessCode(ctx context.Context, accessCode string) (string, error)
	DeleteAccessCodeMapping(ctx context.Context, accessCode string) error
	SaveUserAnswer(ctx context.Context, paperID, userID string, result *model.CachedResult) error
	GetUserAnswer(ctx context.Context, paperID, userID string) (*model.CachedResult, error)
	DeleteUserAnswers(ctx context.Context, paperID string) error
	SaveGeneratedPaper(ctx context.Context, userID, chatID string, data *model.CachedGeneration) error
	GetGeneratedPaper(ctx context.Context, userID, chatID string) (*model.CachedGeneration, error)
}

// QuestionGenerator 出题协作方（大模型）
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, referenceText string) ([]model.Question, error)
}

// ExplanationGenerator 答卷反馈协作方（大模型）
type ExplanationGenerator interface {
	AnalyzeAnswers(ctx context.Context, tasks []AnalysisTask) (map[string]string, error)
}

// DocumentResolver 参考文档解析协作方（对象存储 + 文本提取）
type DocumentResolver interface {
	ExtractTexts(ctx context.Context, files []model.FileInfo) (string, []string, error)
}

// PaperService 试题服务：组合标识生成、双层存储、判分引擎和外部生成协作方
type PaperService struct {
	store     PaperStore
	cache     CacheStore
	generator QuestionGenerator
	explainer ExplanationGenerator
	documents DocumentResolver
	logger    *zap.Logger
	paperCfg  config.PaperConfig
}

func NewPaperService(
	store PaperStore,
	cache CacheStore,
	generator QuestionGenerator,
	explainer ExplanationGenerator,
	documents DocumentResolver,
	log *zap.Logger,
	paperCfg config.PaperConfig,
) *PaperService {
	return &PaperService{
		store:     store,
		cache:     cache,
		generator: generator,
		explainer: explainer,
		documents: documents,
		logger:    log,
		paperCfg:  paperCfg,
	}
}

// SharedPaperResult 生成共享试题的返回信息
type SharedPaperResult struct {
	PaperID    string `json:"paper_id"`
	AccessCode string `json:"access_code"`
	AccessURL  string `json:"access_url"`
	TotalCount int    `json:"total_count"`
	CreatedAt  string `json:"created_at"`
}

// PaperView 试题的前端视图（隐藏答案）
type PaperView struct {
	PaperID       string               `json:"paper_id"`
	AccessCode    string               `json:"access_code"`
	Questions     []model.QuestionView `json:"questions"`
	TotalCount    int                  `json:"total_count"`
	CreatedAt     string               `json:"created_at"`
	Documents     []string             `json:"documents"`
	DocumentCount int                  `json:"document_count"`
}

// SubmitReceipt 提交回执，不携带得分，结果单独查询
type SubmitReceipt struct {
	PaperID     string `json:"paper_id"`
	UserID      string `json:"user_id"`
	SubmittedAt string `json:"submitted_at"`
}

// GenerationView 会话级生成试卷的返回（隐藏答案）
type GenerationView struct {
	Questions  []model.QuestionView `json:"questions"`
	TotalCount int                  `json:"total_count"`
	UserID     string               `json:"user_id"`
	ChatID     string               `json:"chat_id"`
}

// AnalyzeResponse 会话级答卷分析的返回
type AnalyzeResponse struct {
	AnalysisSummary
	UserID string `json:"user_id"`
	ChatID string `json:"chat_id"`
}

// GenerateSharedPaper 生成共享试题：签发ID和访问码（碰撞检查注入持久层的
// 唯一性查询），解析参考文档并出题，先落库再写缓存，返回访问信息。
func (s *PaperService) GenerateSharedPaper(ctx context.Context, userID string, files []model.FileInfo) (*SharedPaperResult, error) {
	paperID := util.GeneratePaperID()

	accessCode, err := util.GenerateUniqueAccessCode(s.store.AccessCodeExists, util.AccessCodeMaxAttempts)
	if err != nil {
		return nil, err
	}

	referenceText, documents, err := s.documents.ExtractTexts(ctx, files)
	if err != nil {
		return nil, err
	}

	questions, err := s.generator.GenerateQuestions(ctx, referenceText)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrPaperEmpty
	}

	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	paper := &model.Paper{
		PaperID:    paperID,
		Questions:  string(questionsJSON),
		TotalCount: len(questions),
		AccessCode: accessCode,
		UserID:     userID,
		Status:     model.PaperStatusActive,
		CreatedAt:  now,
	}

	// 持久写必须先成功，缓存永远不持有未落库的状态
	if err := s.store.CreatePaper(paper); err != nil {
		return nil, err
	}

	cached := &model.CachedPaper{
		PaperID:       paperID,
		Questions:     questions,
		TotalCount:    len(questions),
		AccessCode:    accessCode,
		UserID:        userID,
		CreatedAt:     now.Format(time.RFC3339),
		Documents:     documents,
		DocumentCount: len(documents),
	}
	if err := s.cache.SaveSharedPaper(ctx, cached); err != nil {
		s.logger.Warn("写入试题缓存失败", zap.String("paperId", paperID), zap.Error(err))
	}
	if err := s.cache.SaveAccessCodeMapping(ctx, accessCode, paperID); err != nil {
		s.logger.Warn("写入访问码映射缓存失败", zap.String("accessCode", accessCode), zap.Error(err))
	}

	s.logger.Info("成功生成共享试题",
		zap.String("paperId", paperID), zap.String("accessCode", accessCode), zap.Int("count", len(questions)))

	return &SharedPaperResult{
		PaperID:    paperID,
		AccessCode: accessCode,
		AccessURL:  util.FormatAccessCodeURL(s.paperCfg.AccessBaseURL, accessCode),
		TotalCount: len(questions),
		CreatedAt:  cached.CreatedAt,
	}, nil
}

// GetPaperByID 读取试题：缓存优先，未命中回源数据库并重建缓存。
// 非 active 的试题视为不存在。任何返回路径都隐藏正确答案。
func (s *PaperService) GetPaperByID(ctx context.Context, paperID string) (*PaperView, error) {
	cached, err := s.cache.GetSharedPaper(ctx, paperID)
	if err != nil {
		s.logger.Warn("读取试题缓存失败，回源数据库", zap.String("paperId", paperID), zap.Error(err))
	}
	if cached != nil {
		return paperViewFromCache(cached), nil
	}

	paper, err := s.store.GetPaperByID(paperID)
	if err != nil {
		return nil, err
	}
	if paper == nil || paper.Status != model.PaperStatusActive {
		return nil, util.ErrPaperNotFound
	}

	questions, err := s.store.GetPaperQuestions(paperID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrPaperNotFound
	}

	// 从数据库回源的试题没有文档元信息
	rebuilt := &model.CachedPaper{
		PaperID:    paper.PaperID,
		Questions:  questions,
		TotalCount: paper.TotalCount,
		AccessCode: paper.AccessCode,
		UserID:     paper.UserID,
		CreatedAt:  paper.CreatedAt.Format(time.RFC3339),
		Documents:  []string{},
	}
	if err := s.cache.SaveSharedPaper(ctx, rebuilt); err != nil {
		s.logger.Warn("重建试题缓存失败", zap.String("paperId", paperID), zap.Error(err))
	}
	if err := s.cache.SaveAccessCodeMapping(ctx, paper.AccessCode, paper.PaperID); err != nil {
		s.logger.Warn("重建访问码映射缓存失败", zap.String("accessCode", paper.AccessCode), zap.Error(err))
	}

	return paperViewFromCache(rebuilt), nil
}

// GetPaperByAccessCode 通过访问码读取试题：先做格式校验拒绝明显非法的
// 访问码，再查映射缓存，未命中回源数据库。
func (s *PaperService) GetPaperByAccessCode(ctx context.Context, accessCode string) (*PaperView, error) {
	if !util.ValidateAccessCode(accessCode) {
		return nil, util.ErrInvalidAccessCode
	}

	paperID, err := s.cache.GetPaperIDByAccessCode(ctx, accessCode)
	if err != nil {
		s.logger.Warn("读取访问码映射缓存失败，回源数据库", zap.String("accessCode", accessCode), zap.Error(err))
	}
	if paperID != "" {
		return s.GetPaperByID(ctx, paperID)
	}

	paper, err := s.store.GetPaperByAccessCode(accessCode)
	if err != nil {
		return nil, err
	}
	if paper == nil || paper.Status != model.PaperStatusActive {
		return nil, util.ErrPaperNotFound
	}

	return s.GetPaperByID(ctx, paper.PaperID)
}

func paperViewFromCache(cached *model.CachedPaper) *PaperView {
	views := model.HideCorrectAnswers(cached.Questions)
	return &PaperView{
		PaperID:       cached.PaperID,
		AccessCode:    cached.AccessCode,
		Questions:     views,
		TotalCount:    len(views),
		CreatedAt:     cached.CreatedAt,
		Documents:     cached.Documents,
		DocumentCount: cached.DocumentCount,
	}
}

// resolveFullQuestions 获取含答案的完整题目（判分专用，不走隐藏答案的视图）
func (s *PaperService) resolveFullQuestions(ctx context.Context, paperID string) ([]model.Question, error) {
	cached, err := s.cache.GetSharedPaper(ctx, paperID)
	if err != nil {
		s.logger.Warn("读取试题缓存失败，回源数据库", zap.String("paperId", paperID), zap.Error(err))
	}
	if cached != nil && len(cached.Questions) > 0 {
		return cached.Questions, nil
	}

	paper, err := s.store.GetPaperByID(paperID)
	if err != nil {
		return nil, err
	}
	if paper == nil || paper.Status != model.PaperStatusActive {
		return nil, util.ErrPaperNotFound
	}

	questions, err := s.store.GetPaperQuestions(paperID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrPaperNotFound
	}
	return questions, nil
}

// buildAnalysisTasks 把用户答案和完整题目对齐成分析任务，
// 提交了不存在的题目ID直接判请求非法
func buildAnalysisTasks(questions []model.Question, answers []model.SubmittedAnswer) ([]AnalysisTask, error) {
	questionMap := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		questionMap[q.QuestionID] = q
	}

	tasks := make([]AnalysisTask, 0, len(answers))
	for _, answer := range answers {
		q, ok := questionMap[answer.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", util.ErrUnknownQuestion, answer.QuestionID)
		}
		tasks = append(tasks, AnalysisTask{
			QuestionID:   q.QuestionID,
			QuestionType: q.QuestionType,
			QuestionText: q.QuestionText,
			UserAnswer:   answer.UserAnswer,
			Options:      q.Options,
		})
	}
	return tasks, nil
}

// explainOrFallback 整卷调用一次反馈生成。失败只记告警，判分照常进行，
// 确定性的评分绝不依赖生成式服务的可用性。
func (s *PaperService) explainOrFallback(ctx context.Context, tasks []AnalysisTask) map[string]string {
	explanations, err := s.explainer.AnalyzeAnswers(ctx, tasks)
	if err != nil {
		s.logger.Warn("个性化反馈生成失败，使用占位反馈", zap.Error(err))
		return nil
	}
	return explanations
}

// SubmitAnswers 提交答案：判分、生成反馈、覆盖式落库并写缓存。
// 回执不带得分。同一 (paper_id, user_id) 重复提交为整条覆盖，后写者胜。
func (s *PaperService) SubmitAnswers(ctx context.Context, paperID, userID string, answers []model.SubmittedAnswer) (*SubmitReceipt, error) {
	questions, err := s.resolveFullQuestions(ctx, paperID)
	if err != nil {
		return nil, err
	}

	tasks, err := buildAnalysisTasks(questions, answers)
	if err != nil {
		return nil, err
	}

	summary := SummarizeAnalysis(tasks, s.explainOrFallback(ctx, tasks))

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}
	resultsJSON, err := json.Marshal(summary.AnalysisResults)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := &model.UserAnswer{
		PaperID:         paperID,
		UserID:          userID,
		Answers:         string(answersJSON),
		Score:           summary.TotalScore,
		CorrectCount:    summary.CorrectCount,
		TotalCount:      summary.TotalCount,
		AnalysisResults: string(resultsJSON),
		OverallFeedback: summary.OverallFeedback,
		SubmittedAt:     now,
	}
	if err := s.store.SaveUserAnswer(record); err != nil {
		return nil, err
	}

	cachedResult := &model.CachedResult{
		PaperID:         paperID,
		UserID:          userID,
		Answers:         answers,
		AnalysisResults: summary.AnalysisResults,
		TotalScore:      summary.TotalScore,
		CorrectCount:    summary.CorrectCount,
		TotalCount:      summary.TotalCount,
		OverallFeedback: summary.OverallFeedback,
		SubmittedAt:     now.Format(time.RFC3339),
	}
	if err := s.cache.SaveUserAnswer(ctx, paperID, userID, cachedResult); err != nil {
		s.logger.Warn("写入答题结果缓存失败",
			zap.String("paperId", paperID), zap.String("userId", userID), zap.Error(err))
	}

	s.logger.Info("用户完成答题",
		zap.String("paperId", paperID), zap.String("userId", userID),
		zap.Float64("score", summary.TotalScore),
		zap.String("correct", fmt.Sprintf("%d/%d", summary.CorrectCount, summary.TotalCount)))

	return &SubmitReceipt{
		PaperID:     paperID,
		UserID:      userID,
		SubmittedAt: cachedResult.SubmittedAt,
	}, nil
}

// GetUserResult 查询答题结果：缓存优先，回源后重建缓存；
// 试题的文档元信息尽力补充，缺失不影响本调用。
func (s *PaperService) GetUserResult(ctx context.Context, paperID, userID string) (*model.CachedResult, error) {
	cached, err := s.cache.GetUserAnswer(ctx, paperID, userID)
	if err != nil {
		s.logger.Warn("读取答题结果缓存失败，回源数据库",
			zap.String("paperId", paperID), zap.String("userId", userID), zap.Error(err))
	}
	if cached != nil {
		s.attachDocuments(ctx, paperID, cached)
		return cached, nil
	}

	record, err := s.store.GetUserAnswer(paperID, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, util.ErrResultNotFound
	}

	var analysisResults []model.QuestionAnalysis
	if record.AnalysisResults != "" {
		if err := json.Unmarshal([]byte(record.AnalysisResults), &analysisResults); err != nil {
			s.logger.Error("解析分析结果失败", zap.String("paperId", paperID), zap.Error(err))
		}
	}
	var answers []model.SubmittedAnswer
	if record.Answers != "" {
		if err := json.Unmarshal([]byte(record.Answers), &answers); err != nil {
			s.logger.Error("解析用户答案失败", zap.String("paperId", paperID), zap.Error(err))
		}
	}

	result := &model.CachedResult{
		PaperID:         record.PaperID,
		UserID:          record.UserID,
		Answers:         answers,
		AnalysisResults: analysisResults,
		TotalScore:      record.Score,
		CorrectCount:    record.CorrectCount,
		TotalCount:      record.TotalCount,
		OverallFeedback: record.OverallFeedback,
		SubmittedAt:     record.SubmittedAt.Format(time.RFC3339),
		Documents:       []string{},
	}
	s.attachDocuments(ctx, paperID, result)

	if err := s.cache.SaveUserAnswer(ctx, paperID, userID, result); err != nil {
		s.logger.Warn("重建答题结果缓存失败",
			zap.String("paperId", paperID), zap.String("userId", userID), zap.Error(err))
	}

	return result, nil
}

func (s *PaperService) attachDocuments(ctx context.Context, paperID string, result *model.CachedResult) {
	paper, err := s.cache.GetSharedPaper(ctx, paperID)
	if err != nil || paper == nil {
		if result.Documents == nil {
			result.Documents = []string{}
		}
		return
	}
	result.Documents = paper.Documents
	result.DocumentCount = paper.DocumentCount
}

// UpdatePaperStatus 管理操作：更新试题状态。停用时同步清掉试题缓存和
// 访问码映射，避免缓存继续放出已停用的试题。
func (s *PaperService) UpdatePaperStatus(ctx context.Context, paperID, status string) error {
	paper, err := s.store.GetPaperByID(paperID)
	if err != nil {
		return err
	}
	if paper == nil {
		return util.ErrPaperNotFound
	}

	if _, err := s.store.UpdatePaperStatus(paperID, status); err != nil {
		return err
	}

	if status != model.PaperStatusActive {
		if err := s.cache.DeleteSharedPaper(ctx, paperID); err != nil {
			s.logger.Warn("清除试题缓存失败", zap.String("paperId", paperID), zap.Error(err))
		}
		if err := s.cache.DeleteAccessCodeMapping(ctx, paper.AccessCode); err != nil {
			s.logger.Warn("清除访问码映射缓存失败", zap.String("accessCode", paper.AccessCode), zap.Error(err))
		}
	}
	return nil
}

// DeletePaper 管理操作：删除试题并级联删除答题记录，同时清理全部相关缓存
func (s *PaperService) DeletePaper(ctx context.Context, paperID string) error {
	paper, err := s.store.GetPaperByID(paperID)
	if err != nil {
		return err
	}
	if paper == nil {
		return util.ErrPaperNotFound
	}

	if err := s.store.DeletePaper(paperID); err != nil {
		return err
	}

	if err := s.cache.DeleteSharedPaper(ctx, paperID); err != nil {
		s.logger.Warn("清除试题缓存失败", zap.String("paperId", paperID), zap.Error(err))
	}
	if err := s.cache.DeleteAccessCodeMapping(ctx, paper.AccessCode); err != nil {
		s.logger.Warn("清除访问码映射缓存失败", zap.String("accessCode", paper.AccessCode), zap.Error(err))
	}
	if err := s.cache.DeleteUserAnswers(ctx, paperID); err != nil {
		s.logger.Warn("清除答题结果缓存失败", zap.String("paperId", paperID), zap.Error(err))
	}

	s.logger.Info("成功删除试题", zap.String("paperId", paperID))
	return nil
}

// GeneratePaper 会话级生成：试卷只写入短 TTL 的临时缓存，不落库，
// 供同一会话随后的 AnalyzePaper 使用
func (s *PaperService) GeneratePaper(ctx context.Context, userID, chatID string, files []model.FileInfo) (*GenerationView, error) {
	referenceText, _, err := s.documents.ExtractTexts(ctx, files)
	if err != nil {
		return nil, err
	}

	questions, err := s.generator.GenerateQuestions(ctx, referenceText)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, util.ErrPaperEmpty
	}

	data := &model.CachedGeneration{
		Questions:  questions,
		TotalCount: len(questions),
		UserID:     userID,
		ChatID:     chatID,
		CreatedAt:  time.Now().Format(time.RFC3339),
	}
	// 临时缓存是会话流程唯一的存储，写失败就是操作失败
	if err := s.cache.SaveGeneratedPaper(ctx, userID, chatID, data); err != nil {
		return nil, err
	}

	s.logger.Info("成功生成会话试卷",
		zap.String("userId", userID), zap.String("chatId", chatID), zap.Int("count", len(questions)))

	return &GenerationView{
		Questions:  model.HideCorrectAnswers(questions),
		TotalCount: len(questions),
		UserID:     userID,
		ChatID:     chatID,
	}, nil
}

// AnalyzePaper 会话级分析：从临时缓存取回完整题目并判分，结果直接返回不落库
func (s *PaperService) AnalyzePaper(ctx context.Context, userID, chatID string, answers []model.SubmittedAnswer) (*AnalyzeResponse, error) {
	data, err := s.cache.GetGeneratedPaper(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if data == nil || len(data.Questions) == 0 {
		return nil, util.ErrGenerationNotFound
	}

	tasks, err := buildAnalysisTasks(data.Questions, answers)
	if err != nil {
		return nil, err
	}

	summary := SummarizeAnalysis(tasks, s.explainOrFallback(ctx, tasks))

	return &AnalyzeResponse{
		AnalysisSummary: summary,
		UserID:          userID,
		ChatID:          chatID,
	}, nil
}
