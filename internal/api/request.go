package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"agencyhub/internal/errs"
)

// Date 接受 RFC3339 或 2006-01-02 两种格式
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// timePtr 空值返回 nil，供部分更新使用
func timePtr(d *Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func timeVal(d *Date) time.Time {
	if t := timePtr(d); t != nil {
		return *t
	}
	return time.Time{}
}

// nonEmpty 缺失或空白字符串视为未提供
func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// refID 解析请求体中的引用 id；格式错误是校验错误
func refID(field string, s *string) (*uuid.UUID, error) {
	if nonEmpty(s) == nil {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*s))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a valid id", errs.ErrValidation, field)
	}
	return &id, nil
}

// pathID 解析路径中的 id；格式错误按不存在处理
func pathID(c *gin.Context, entity string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s %w", entity, errs.ErrNotFound)
	}
	return id, nil
}

func bindJSON(c *gin.Context, out any) error {
	if err := c.ShouldBindJSON(out); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrValidation, err.Error())
	}
	return nil
}
