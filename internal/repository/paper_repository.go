package repository

import (
	"ai_exam_backend/internal/model"
	"ai_exam_backend/pkg/logger"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaperRepository 试题持久层，查不到记录返回 (nil, nil) 而不是错误
type PaperRepository struct {
	DB *gorm.DB
}

func NewPaperRepository(db *gorm.DB) *PaperRepository {
	return &PaperRepository{DB: db}
}

func (r *PaperRepository) CreatePaper(paper *model.Paper) error {
	if err := r.DB.Create(paper).Error; err != nil {
		logger.Log.Error("创建试题失败", zap.String("paperId", paper.PaperID), zap.Error(err))
		return err
	}
	logger.Log.Info("成功创建试题", zap.String("paperId", paper.PaperID))
	return nil
}

func (r *PaperRepository) GetPaperByID(paperID string) (*model.Paper, error) {
	var paper model.Paper
	err := r.DB.Where("paper_id = ?", paperID).First(&paper).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

func (r *PaperRepository) GetPaperByAccessCode(accessCode string) (*model.Paper, error) {
	var paper model.Paper
	err := r.DB.Where("access_code = ?", accessCode).First(&paper).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &paper, nil
}

// AccessCodeExists 访问码唯一性检查，作为访问码生成时的碰撞判定
func (r *PaperRepository) AccessCodeExists(accessCode string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Paper{}).Where("access_code = ?", accessCode).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetPaperQuestions 解析试题的完整题目列表（含答案）
func (r *PaperRepository) GetPaperQuestions(paperID string) ([]model.Question, error) {
	paper, err := r.GetPaperByID(paperID)
	if err != nil || paper == nil {
		return nil, err
	}

	var questions []model.Question
	if err := json.Unmarshal([]byte(paper.Questions), &questions); err != nil {
		logger.Log.Error("解析试题内容失败", zap.String("paperId", paperID), zap.Error(err))
		return nil, err
	}
	return questions, nil
}

func (r *PaperRepository) UpdatePaperStatus(paperID, status string) (bool, error) {
	result := r.DB.Model(&model.Paper{}).Where("paper_id = ?", paperID).Update("status", status)
	if result.Error != nil {
		logger.Log.Error("更新试题状态失败", zap.String("paperId", paperID), zap.Error(result.Error))
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	logger.Log.Info("成功更新试题状态", zap.String("paperId", paperID), zap.String("status", status))
	return true, nil
}

// DeletePaper 删除试题并级联删除其全部答题记录
func (r *PaperRepository) DeletePaper(paperID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("paper_id = ?", paperID).Delete(&model.UserAnswer{}).Error; err != nil {
			return err
		}
		return tx.Where("paper_id = ?", paperID).Delete(&model.Paper{}).Error
	})
}

// SaveUserAnswer 保存答题记录，同一 (paper_id, user_id) 已有记录时整条覆盖
func (r *PaperRepository) SaveUserAnswer(record *model.UserAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var existing model.UserAnswer
		err := tx.Where("paper_id = ? AND user_id = ?", record.PaperID, record.UserID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if record.SubmittedAt.IsZero() {
				record.SubmittedAt = time.Now()
			}
			return tx.Create(record).Error
		}
		if err != nil {
			return err
		}

		record.ID = existing.ID
		if record.SubmittedAt.IsZero() {
			record.SubmittedAt = time.Now()
		}
		return tx.Model(&existing).Select(
			"answers", "score", "correct_count", "total_count",
			"analysis_results", "overall_feedback", "submitted_at",
		).Updates(record).Error
	})
}

func (r *PaperRepository) GetUserAnswer(paperID, userID string) (*model.UserAnswer, error) {
	var record model.UserAnswer
	err := r.DB.Where("paper_id = ? AND user_id = ?", paperID, userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
