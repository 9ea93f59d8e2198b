package util

import "errors"

var (
	ErrPaperNotFound       = errors.New("试题不存在或已失效")
	ErrPaperEmpty          = errors.New("生成的试题为空")
	ErrResultNotFound      = errors.New("未找到该用户的答题记录")
	ErrUnknownQuestion     = errors.New("题目ID在试题中不存在")
	ErrAccessCodeExhausted = errors.New("超过最大尝试次数仍无法生成唯一访问码")
	ErrInvalidAccessCode   = errors.New("访问码格式无效")
	ErrGenerationNotFound  = errors.New("未找到会话的题目缓存，请先生成试题")
	ErrNoDocumentText      = errors.New("没有成功提取到任何文档内容")
	ErrUnsupportedFormat   = errors.New("不支持的文档格式")
)
