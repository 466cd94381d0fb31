package utils

import (
	"errors"
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrEmptyCaseID 提案编号为空
	ErrEmptyCaseID = errors.New("case ID cannot be empty")
	// ErrInvalidCaseID 提案编号格式错误
	ErrInvalidCaseID = errors.New("case ID must match SP-<year>-<seq>")
	// ErrEmptyTitle 标题为空
	ErrEmptyTitle = errors.New("title cannot be empty")
	// ErrTitleTooLong 标题超长
	ErrTitleTooLong = errors.New("title exceeds 255 characters")
)

// caseIDPattern 提案编号格式: SP-2026-0042
var caseIDPattern = regexp.MustCompile(`^SP-\d{4}-\d{4,}$`)

// ValidateCaseID 验证提案编号格式
func ValidateCaseID(id string) error {
	if id == "" {
		return ErrEmptyCaseID
	}
	if !caseIDPattern.MatchString(id) {
		return ErrInvalidCaseID
	}
	return nil
}

// ValidateTitle 验证提案标题
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return ErrEmptyTitle
	}
	if len(trimmed) > 255 {
		return ErrTitleTooLong
	}
	return nil
}

// SanitizeString 清理字符串,转义 HTML 并移除控制字符
func SanitizeString(input string) string {
	sanitized := html.EscapeString(input)

	var result strings.Builder
	for _, r := range sanitized {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		result.WriteRune(r)
	}

	return result.String()
}

// sortableFields 允许排序的列
var sortableFields = map[string]bool{
	"id":               true,
	"year":             true,
	"seq":              true,
	"stage":            true,
	"status":           true,
	"lifecycle_status": true,
	"entity_type":      true,
	"created_at":       true,
	"updated_at":       true,
}

// ValidateSortField 验证排序字段,只接受白名单内的列名
func ValidateSortField(field string) error {
	if field == "" {
		return errors.New("sort field cannot be empty")
	}
	if !sortableFields[strings.ToLower(field)] {
		return errors.New("sort field not allowed")
	}
	return nil
}

// ValidateSortOrder 验证排序方向
func ValidateSortOrder(order string) error {
	upperOrder := strings.ToUpper(strings.TrimSpace(order))
	if upperOrder != "ASC" && upperOrder != "DESC" {
		return errors.New("sort order must be ASC or DESC")
	}
	return nil
}
