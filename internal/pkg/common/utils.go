package common

import (
	"time"

	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// Clock 取得目前時間，測試時可替換
type Clock func() time.Time

// Today 以 clock 取得今日日期字串
func (c Clock) Today() string {
	return c.Now().Format(DateLayout)
}

// Now 取得目前時間，未設定時使用系統時間
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
