package util

import (
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 访问码字符集，排除容易混淆的字符：0, O, I, 1
const accessCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// 访问码默认长度与默认碰撞重试次数
const (
	AccessCodeLength       = 6
	AccessCodeMaxAttempts  = 10
	accessCodeMinLength    = 4
	accessCodeMaxLength    = 10
	paperIDDateFormat      = "20060102"
	paperIDRandomHexLength = 8
)

// GeneratePaperID 生成试题ID，格式：PAPER_YYYYMMDD_XXXXXXXX。
// 不做唯一性检查，8位随机十六进制的碰撞概率可以忽略，主键约束兜底。
func GeneratePaperID() string {
	today := time.Now().Format(paperIDDateFormat)
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	random := strings.ToUpper(hex[:paperIDRandomHexLength])
	return "PAPER_" + today + "_" + random
}

// GenerateAccessCode 生成指定长度的访问码
func GenerateAccessCode(length int) string {
	if length <= 0 {
		length = AccessCodeLength
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(accessCodeCharset[rand.Intn(len(accessCodeCharset))])
	}
	return b.String()
}

// GenerateUniqueAccessCode 生成唯一访问码。exists 是由调用方注入的持久层
// 碰撞检查（唯一性是持久层的属性，不属于生成器本身），检查出错直接上抛，
// 重试 maxAttempts 次仍碰撞则返回 ErrAccessCodeExhausted。
func GenerateUniqueAccessCode(exists func(code string) (bool, error), maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = AccessCodeMaxAttempts
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		code := GenerateAccessCode(AccessCodeLength)

		if exists == nil {
			return code, nil
		}

		taken, err := exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}

	return "", ErrAccessCodeExhausted
}

// ValidateAccessCode 校验访问码格式：长度 4~10，仅大写字母和数字。
// 用于在查库前拒绝明显非法的访问码。
func ValidateAccessCode(code string) bool {
	if len(code) < accessCodeMinLength || len(code) > accessCodeMaxLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// FormatAccessCodeURL 拼接访问链接
func FormatAccessCodeURL(baseURL, accessCode string) string {
	return strings.TrimSuffix(baseURL, "/") + "/paper/access/" + accessCode
}
