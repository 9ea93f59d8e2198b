package service

import (
	"ai_exam_backend/internal/config"
	"ai_exam_backend/internal/model"
	"ai_exam_backend/internal/util"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// ---- 内存版依赖实现 ----

type fakeStore struct {
	papers      map[string]*model.Paper
	answers     map[string]*model.UserAnswer
	codeTaken   func(code string) bool
	createErr   error
	saveCalls   int
	deleteCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		papers:  make(map[string]*model.Paper),
		answers: make(map[string]*model.UserAnswer),
	}
}

func answerKey(paperID, userID string) string { return paperID + "|" + userID }

func (f *fakeStore) CreatePaper(paper *model.Paper) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.papers[paper.PaperID] = paper
	return nil
}

func (f *fakeStore) GetPaperByID(paperID string) (*model.Paper, error) {
	return f.papers[paperID], nil
}

func (f *fakeStore) GetPaperByAccessCode(accessCode string) (*model.Paper, error) {
	for _, p := range f.papers {
		if p.AccessCode == accessCode {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) AccessCodeExists(accessCode string) (bool, error) {
	if f.codeTaken != nil {
		return f.codeTaken(accessCode), nil
	}
	return false, nil
}

func (f *fakeStore) GetPaperQuestions(paperID string) ([]model.Question, error) {
	paper := f.papers[paperID]
	if paper == nil {
		return nil, nil
	}
	var questions []model.Question
	if err := json.Unmarshal([]byte(paper.Questions), &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (f *fakeStore) UpdatePaperStatus(paperID, status string) (bool, error) {
	paper := f.papers[paperID]
	if paper == nil {
		return false, nil
	}
	paper.Status = status
	return true, nil
}

func (f *fakeStore) DeletePaper(paperID string) error {
	f.deleteCalls++
	delete(f.papers, paperID)
	for key := range f.answers {
		if len(key) > len(paperID) && key[:len(paperID)] == paperID {
			delete(f.answers, key)
		}
	}
	return nil
}

func (f *fakeStore) SaveUserAnswer(record *model.UserAnswer) error {
	f.saveCalls++
	f.answers[answerKey(record.PaperID, record.UserID)] = record
	return nil
}

func (f *fakeStore) GetUserAnswer(paperID, userID string) (*model.UserAnswer, error) {
	return f.answers[answerKey(paperID, userID)], nil
}

type fakeCache struct {
	papers      map[string]*model.CachedPaper
	codes       map[string]string
	results     map[string]*model.CachedResult
	generations map[string]*model.CachedGeneration
	saveErr     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		papers:      make(map[string]*model.CachedPaper),
		codes:       make(map[string]string),
		results:     make(map[string]*model.CachedResult),
		generations: make(map[string]*model.CachedGeneration),
	}
}

func (f *fakeCache) SaveSharedPaper(ctx context.Context, paper *model.CachedPaper) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.papers[paper.PaperID] = paper
	return nil
}

func (f *fakeCache) GetSharedPaper(ctx context.Context, paperID string) (*model.CachedPaper, error) {
	return f.papers[paperID], nil
}

func (f *fakeCache) DeleteSharedPaper(ctx context.Context, paperID string) error {
	delete(f.papers, paperID)
	return nil
}

func (f *fakeCache) SaveAccessCodeMapping(ctx context.Context, accessCode, paperID string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.codes[accessCode] = paperID
	return nil
}

func (f *fakeCache) GetPaperIDByAccessCode(ctx context.Context, accessCode string) (string, error) {
	return f.codes[accessCode], nil
}

func (f *fakeCache) DeleteAccessCodeMapping(ctx context.Context, accessCode string) error {
	delete(f.codes, accessCode)
	return nil
}

func (f *fakeCache) SaveUserAnswer(ctx context.Context, paperID, userID string, result *model.CachedResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.results[answerKey(paperID, userID)] = result
	return nil
}

func (f *fakeCache) GetUserAnswer(ctx context.Context, paperID, userID string) (*model.CachedResult, error) {
	return f.results[answerKey(paperID, userID)], nil
}

func (f *fakeCache) DeleteUserAnswers(ctx context.Context, paperID string) error {
	for key := range f.results {
		if len(key) > len(paperID) && key[:len(paperID)] == paperID {
			delete(f.results, key)
		}
	}
	return nil
}

func (f *fakeCache) SaveGeneratedPaper(ctx context.Context, userID, chatID string, data *model.CachedGeneration) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.generations[answerKey(userID, chatID)] = data
	return nil
}

func (f *fakeCache) GetGeneratedPaper(ctx context.Context, userID, chatID string) (*model.CachedGeneration, error) {
	return f.generations[answerKey(userID, chatID)], nil
}

type fakeGenerator struct {
	questions []model.Question
	err       error
}

func (f *fakeGenerator) GenerateQuestions(ctx context.Context, referenceText string) ([]model.Question, error) {
	return f.questions, f.err
}

type fakeExplainer struct {
	explanations map[string]string
	err          error
}

func (f *fakeExplainer) AnalyzeAnswers(ctx context.Context, tasks []AnalysisTask) (map[string]string, error) {
	return f.explanations, f.err
}

type fakeResolver struct {
	text  string
	names []string
	err   error
}

func (f *fakeResolver) ExtractTexts(ctx context.Context, files []model.FileInfo) (string, []string, error) {
	return f.text, f.names, f.err
}

// ---- 测试脚手架 ----

func sampleQuestions() []model.Question {
	return []model.Question{
		{
			QuestionID:   "1",
			QuestionType: "单选题",
			QuestionText: "单选",
			Options: []model.Option{
				{ID: "A", Text: "甲", IsCorrect: true, Explanation: "对"},
				{ID: "B", Text: "乙", IsCorrect: false, Explanation: "错"},
			},
		},
		{
			QuestionID:   "2",
			QuestionType: "多选题",
			QuestionText: "多选",
			Options: []model.Option{
				{ID: "A", Text: "甲", IsCorrect: true},
				{ID: "B", Text: "乙", IsCorrect: true},
				{ID: "C", Text: "丙", IsCorrect: false},
			},
		},
	}
}

type testEnv struct {
	store     *fakeStore
	cache     *fakeCache
	generator *fakeGenerator
	explainer *fakeExplainer
	resolver  *fakeResolver
	svc       *PaperService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:     newFakeStore(),
		cache:     newFakeCache(),
		generator: &fakeGenerator{questions: sampleQuestions()},
		explainer: &fakeExplainer{explanations: map[string]string{}},
		resolver:  &fakeResolver{text: "参考文本", names: []string{"a.txt"}},
	}
	env.svc = NewPaperService(
		env.store, env.cache, env.generator, env.explainer, env.resolver,
		zap.NewNop(),
		config.PaperConfig{AccessBaseURL: "http://localhost:3000"},
	)
	return env
}

func (env *testEnv) seedSharedPaper(t *testing.T) *SharedPaperResult {
	t.Helper()
	result, err := env.svc.GenerateSharedPaper(context.Background(), "owner-1", []model.FileInfo{
		{FileLocation: "http://minio/bucket/a.txt", FileName: "a.txt"},
	})
	if err != nil {
		t.Fatalf("生成共享试题失败: %v", err)
	}
	return result
}

// ---- 用例 ----

func TestGenerateSharedPaper(t *testing.T) {
	t.Run("成功生成并双写", func(t *testing.T) {
		env := newTestEnv()
		result := env.seedSharedPaper(t)

		if result.TotalCount != 2 {
			t.Errorf("TotalCount = %d, want 2", result.TotalCount)
		}
		if len(result.AccessCode) != util.AccessCodeLength {
			t.Errorf("访问码长度 = %d", len(result.AccessCode))
		}
		if result.AccessURL != "http://localhost:3000/paper/access/"+result.AccessCode {
			t.Errorf("AccessURL = %s", result.AccessURL)
		}

		if env.store.papers[result.PaperID] == nil {
			t.Error("试题应已落库")
		}
		if env.cache.papers[result.PaperID] == nil {
			t.Error("试题应已写缓存")
		}
		if env.cache.codes[result.AccessCode] != result.PaperID {
			t.Error("访问码映射应已写缓存")
		}
	})

	t.Run("生成空卷报错", func(t *testing.T) {
		env := newTestEnv()
		env.generator.questions = nil

		_, err := env.svc.GenerateSharedPaper(context.Background(), "owner-1", nil)
		if !errors.Is(err, util.ErrPaperEmpty) {
			t.Fatalf("期望 ErrPaperEmpty，得到 %v", err)
		}
	})

	t.Run("落库失败则整个操作失败", func(t *testing.T) {
		env := newTestEnv()
		env.store.createErr = errors.New("db down")

		_, err := env.svc.GenerateSharedPaper(context.Background(), "owner-1", nil)
		if err == nil {
			t.Fatal("期望落库错误上抛")
		}
		if len(env.cache.papers) != 0 {
			t.Error("落库失败后不应写缓存")
		}
	})

	t.Run("缓存写失败不影响结果", func(t *testing.T) {
		env := newTestEnv()
		env.cache.saveErr = errors.New("redis down")

		result, err := env.svc.GenerateSharedPaper(context.Background(), "owner-1", nil)
		if err != nil {
			t.Fatalf("缓存失败不应使操作失败: %v", err)
		}
		if env.store.papers[result.PaperID] == nil {
			t.Error("试题应已落库")
		}
	})

	t.Run("访问码持续碰撞报错", func(t *testing.T) {
		env := newTestEnv()
		env.store.codeTaken = func(string) bool { return true }

		_, err := env.svc.GenerateSharedPaper(context.Background(), "owner-1", nil)
		if !errors.Is(err, util.ErrAccessCodeExhausted) {
			t.Fatalf("期望 ErrAccessCodeExhausted，得到 %v", err)
		}
	})
}

func TestGetPaperByID(t *testing.T) {
	t.Run("缓存命中且隐藏答案", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)

		view, err := env.svc.GetPaperByID(context.Background(), seeded.PaperID)
		if err != nil {
			t.Fatalf("查询失败: %v", err)
		}
		if view.TotalCount != 2 {
			t.Errorf("TotalCount = %d", view.TotalCount)
		}
		data, _ := json.Marshal(view)
		if strings.Contains(string(data), "is_correct") {
			t.Error("试题视图泄漏了答案标识")
		}
	})

	t.Run("缓存未命中回源并重建", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)
		delete(env.cache.papers, seeded.PaperID)
		delete(env.cache.codes, seeded.AccessCode)

		view, err := env.svc.GetPaperByID(context.Background(), seeded.PaperID)
		if err != nil {
			t.Fatalf("回源查询失败: %v", err)
		}
		if view.PaperID != seeded.PaperID {
			t.Errorf("PaperID = %s", view.PaperID)
		}
		if env.cache.papers[seeded.PaperID] == nil {
			t.Error("回源后应重建试题缓存")
		}
		if env.cache.codes[seeded.AccessCode] != seeded.PaperID {
			t.Error("回源后应重建访问码映射")
		}
	})

	t.Run("不存在的试题", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.GetPaperByID(context.Background(), "PAPER_20260101_DEADBEEF")
		if !errors.Is(err, util.ErrPaperNotFound) {
			t.Fatalf("期望 ErrPaperNotFound，得到 %v", err)
		}
	})

	t.Run("停用的试题视为不存在", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)
		if err := env.svc.UpdatePaperStatus(context.Background(), seeded.PaperID, model.PaperStatusInactive); err != nil {
			t.Fatalf("停用失败: %v", err)
		}

		_, err := env.svc.GetPaperByID(context.Background(), seeded.PaperID)
		if !errors.Is(err, util.ErrPaperNotFound) {
			t.Fatalf("期望 ErrPaperNotFound，得到 %v", err)
		}
	})
}

func TestGetPaperByAccessCode(t *testing.T) {
	t.Run("格式非法直接拒绝", func(t *testing.T) {
		env := newTestEnv()
		for _, code := range []string{"", "ab", "abc234", "WAY-TOO-LONG-CODE"} {
			_, err := env.svc.GetPaperByAccessCode(context.Background(), code)
			if !errors.Is(err, util.ErrInvalidAccessCode) {
				t.Errorf("访问码 %q 期望 ErrInvalidAccessCode，得到 %v", code, err)
			}
		}
	})

	t.Run("映射缓存命中", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)

		view, err := env.svc.GetPaperByAccessCode(context.Background(), seeded.AccessCode)
		if err != nil {
			t.Fatalf("查询失败: %v", err)
		}
		if view.PaperID != seeded.PaperID {
			t.Errorf("PaperID = %s, want %s", view.PaperID, seeded.PaperID)
		}
	})

	t.Run("映射缓存未命中回源数据库", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)
		delete(env.cache.codes, seeded.AccessCode)

		view, err := env.svc.GetPaperByAccessCode(context.Background(), seeded.AccessCode)
		if err != nil {
			t.Fatalf("回源查询失败: %v", err)
		}
		if view.PaperID != seeded.PaperID {
			t.Errorf("PaperID = %s", view.PaperID)
		}
	})

	t.Run("不存在的访问码", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.GetPaperByAccessCode(context.Background(), "ZZZZ99")
		if !errors.Is(err, util.ErrPaperNotFound) {
			t.Fatalf("期望 ErrPaperNotFound，得到 %v", err)
		}
	})
}

func TestSubmitAnswers(t *testing.T) {
	answers := []model.SubmittedAnswer{
		{QuestionID: "1", UserAnswer: model.SingleAnswer("A")},
		{QuestionID: "2", UserAnswer: model.MultipleAnswer("A", "B")},
	}

	t.Run("回执不带得分", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)

		receipt, err := env.svc.SubmitAnswers(context.Background(), seeded.PaperID, "user-1", answers)
		if err != nil {
			t.Fatalf("提交失败: %v", err)
		}
		if receipt.PaperID != seeded.PaperID || receipt.UserID != "user-1" {
			t.Errorf("回执 = %+v", receipt)
		}
		if receipt.SubmittedAt == "" {
			t.Error("回执应携带提交时间")
		}

		data, _ := json.Marshal(receipt)
		if strings.Contains(string(data), "score") {
			t.Errorf("回执不应携带得分: %s", data)
		}
	})

	t.Run("判分结果落库并写缓存", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)

		if _, err := env.svc.SubmitAnswers(context.Background(), seeded.PaperID, "user-1", answers); err != nil {
			t.Fatalf("提交失败: %v", err)
		}

		record := env.store.answers[answerKey(seeded.PaperID, "user-1")]
		if record == nil {
			t.Fatal("答题记录应已落库")
		}
		// 两题全对共20分
		if record.Score != 20 {
			t.Errorf("Score = %v, want 20", record.Score)
		}
		if record.CorrectCount != 2 {
			t.Errorf("CorrectCount = %d, want 2", record.CorrectCount)
		}

		cached := env.cache.results[answerKey(seeded.PaperID, "user-1")]
		if cached == nil {
			t.Fatal("答题结果应已写缓存")
		}
		if cached.TotalScore != 20 {
			t.Errorf("缓存 TotalScore = %v", cached.TotalScore)
		}
	})

	t.Run("提交不存在的题目ID", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)

		_, err := env.svc.SubmitAnswers(context.Background(), seeded.PaperID, "user-1", []model.SubmittedAnswer{
			{QuestionID: "999", UserAnswer: model.SingleAnswer("A")},
		})
		if !errors.Is(err, util.ErrUnknownQuestion) {
			t.Fatalf("期望 ErrUnknownQuestion，得到 %v", err)
		}
		if env.store.saveCalls != 0 {
			t.Error("非法提交不应落库")
		}
	})

	t.Run("反馈生成失败时判分照常", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)
		env.explainer.err = errors.New("llm timeout")

		if _, err := env.svc.SubmitAnswers(context.Background(), seeded.PaperID, "user-1", answers); err != nil {
			t.Fatalf("反馈失败不应使提交失败: %v", err)
		}

		cached := env.cache.results[answerKey(seeded.PaperID, "user-1")]
		if cached == nil {
			t.Fatal("答题结果应已写缓存")
		}
		for _, result := range cached.AnalysisResults {
			if result.Explanation != FallbackExplanation {
				t.Errorf("反馈 = %q, want 占位反馈", result.Explanation)
			}
		}
		if cached.TotalScore != 20 {
			t.Errorf("TotalScore = %v, 判分不应受反馈失败影响", cached.TotalScore)
		}
	})

	t.Run("重复提交整条覆盖", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)

		first := []model.SubmittedAnswer{
			{QuestionID: "1", UserAnswer: model.SingleAnswer("B")},
			{QuestionID: "2", UserAnswer: model.MultipleAnswer("C")},
		}
		if _, err := env.svc.SubmitAnswers(context.Background(), seeded.PaperID, "user-1", first); err != nil {
			t.Fatalf("首次提交失败: %v", err)
		}
		if _, err := env.svc.SubmitAnswers(context.Background(), seeded.PaperID, "user-1", answers); err != nil {
			t.Fatalf("二次提交失败: %v", err)
		}

		record := env.store.answers[answerKey(seeded.PaperID, "user-1")]
		if record.Score != 20 {
			t.Errorf("应保留最后一次提交的得分，得到 %v", record.Score)
		}
		if env.store.saveCalls != 2 {
			t.Errorf("saveCalls = %d, want 2", env.store.saveCalls)
		}
	})

	t.Run("对不存在的试题提交", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.SubmitAnswers(context.Background(), "PAPER_20260101_DEADBEEF", "user-1", answers)
		if !errors.Is(err, util.ErrPaperNotFound) {
			t.Fatalf("期望 ErrPaperNotFound，得到 %v", err)
		}
	})
}

func TestGetUserResult(t *testing.T) {
	answers := []model.SubmittedAnswer{
		{QuestionID: "1", UserAnswer: model.SingleAnswer("A")},
	}

	t.Run("缓存命中", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)
		if _, err := env.svc.SubmitAnswers(context.Background(), seeded.PaperID, "user-1", answers); err != nil {
			t.Fatalf("提交失败: %v", err)
		}

		result, err := env.svc.GetUserResult(context.Background(), seeded.PaperID, "user-1")
		if err != nil {
			t.Fatalf("查询失败: %v", err)
		}
		if result.TotalScore != 10 {
			t.Errorf("TotalScore = %v, want 10", result.TotalScore)
		}
		if len(result.Documents) == 0 {
			t.Error("结果应补充试题的文档信息")
		}
	})

	t.Run("缓存未命中回源并重建", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)
		if _, err := env.svc.SubmitAnswers(context.Background(), seeded.PaperID, "user-1", answers); err != nil {
			t.Fatalf("提交失败: %v", err)
		}
		delete(env.cache.results, answerKey(seeded.PaperID, "user-1"))

		result, err := env.svc.GetUserResult(context.Background(), seeded.PaperID, "user-1")
		if err != nil {
			t.Fatalf("回源查询失败: %v", err)
		}
		if result.TotalScore != 10 {
			t.Errorf("TotalScore = %v", result.TotalScore)
		}
		if len(result.AnalysisResults) != 1 {
			t.Errorf("AnalysisResults 数量 = %d", len(result.AnalysisResults))
		}
		if env.cache.results[answerKey(seeded.PaperID, "user-1")] == nil {
			t.Error("回源后应重建结果缓存")
		}
	})

	t.Run("没有答题记录", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)

		_, err := env.svc.GetUserResult(context.Background(), seeded.PaperID, "nobody")
		if !errors.Is(err, util.ErrResultNotFound) {
			t.Fatalf("期望 ErrResultNotFound，得到 %v", err)
		}
	})
}

func TestUpdatePaperStatus(t *testing.T) {
	t.Run("停用时清理缓存", func(t *testing.T) {
		env := newTestEnv()
		seeded := env.seedSharedPaper(t)

		if err := env.svc.UpdatePaperStatus(context.Background(), seeded.PaperID, model.PaperStatusInactive); err != nil {
			t.Fatalf("停用失败: %v", err)
		}
		if env.store.papers[seeded.PaperID].Status != model.PaperStatusInactive {
			t.Error("数据库状态应已更新")
		}
		if env.cache.papers[seeded.PaperID] != nil {
			t.Error("停用后试题缓存应被清除")
		}
		if env.cache.codes[seeded.AccessCode] != "" {
			t.Error("停用后访问码映射应被清除")
		}
	})

	t.Run("不存在的试题", func(t *testing.T) {
		env := newTestEnv()
		err := env.svc.UpdatePaperStatus(context.Background(), "PAPER_20260101_DEADBEEF", model.PaperStatusInactive)
		if !errors.Is(err, util.ErrPaperNotFound) {
			t.Fatalf("期望 ErrPaperNotFound，得到 %v", err)
		}
	})
}

func TestDeletePaper(t *testing.T) {
	env := newTestEnv()
	seeded := env.seedSharedPaper(t)
	if _, err := env.svc.SubmitAnswers(context.Background(), seeded.PaperID, "user-1", []model.SubmittedAnswer{
		{QuestionID: "1", UserAnswer: model.SingleAnswer("A")},
	}); err != nil {
		t.Fatalf("提交失败: %v", err)
	}

	if err := env.svc.DeletePaper(context.Background(), seeded.PaperID); err != nil {
		t.Fatalf("删除失败: %v", err)
	}

	if env.store.papers[seeded.PaperID] != nil {
		t.Error("试题应已从数据库删除")
	}
	if env.store.answers[answerKey(seeded.PaperID, "user-1")] != nil {
		t.Error("答题记录应被级联删除")
	}
	if env.cache.papers[seeded.PaperID] != nil {
		t.Error("试题缓存应被清除")
	}
	if env.cache.codes[seeded.AccessCode] != "" {
		t.Error("访问码映射应被清除")
	}
	if env.cache.results[answerKey(seeded.PaperID, "user-1")] != nil {
		t.Error("结果缓存应被清除")
	}
}

func TestSessionPaperFlow(t *testing.T) {
	t.Run("生成后可分析", func(t *testing.T) {
		env := newTestEnv()

		view, err := env.svc.GeneratePaper(context.Background(), "user-1", "chat-1", []model.FileInfo{
			{FileLocation: "http://minio/bucket/a.txt", FileName: "a.txt"},
		})
		if err != nil {
			t.Fatalf("会话生成失败: %v", err)
		}
		if view.TotalCount != 2 {
			t.Errorf("TotalCount = %d", view.TotalCount)
		}
		data, _ := json.Marshal(view)
		if strings.Contains(string(data), "is_correct") {
			t.Error("会话试卷视图泄漏了答案标识")
		}

		result, err := env.svc.AnalyzePaper(context.Background(), "user-1", "chat-1", []model.SubmittedAnswer{
			{QuestionID: "1", UserAnswer: model.SingleAnswer("A")},
			{QuestionID: "2", UserAnswer: model.MultipleAnswer("A", "B")},
		})
		if err != nil {
			t.Fatalf("会话分析失败: %v", err)
		}
		if result.TotalScore != 20 {
			t.Errorf("TotalScore = %v, want 20", result.TotalScore)
		}
		if result.ChatID != "chat-1" {
			t.Errorf("ChatID = %s", result.ChatID)
		}
	})

	t.Run("未生成直接分析", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.AnalyzePaper(context.Background(), "user-1", "chat-none", []model.SubmittedAnswer{
			{QuestionID: "1", UserAnswer: model.SingleAnswer("A")},
		})
		if !errors.Is(err, util.ErrGenerationNotFound) {
			t.Fatalf("期望 ErrGenerationNotFound，得到 %v", err)
		}
	})

	t.Run("临时缓存写失败则生成失败", func(t *testing.T) {
		env := newTestEnv()
		env.cache.saveErr = errors.New("redis down")

		_, err := env.svc.GeneratePaper(context.Background(), "user-1", "chat-1", nil)
		if err == nil {
			t.Fatal("临时缓存是会话流程唯一存储，写失败应报错")
		}
	})
}

