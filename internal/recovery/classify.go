package recovery

import (
	"errors"
	"strings"

	"github.com/JuanCS-Dev/vertice-code-sub006/internal/llm"
)

// Category classifies a failed tool invocation. Permanence governs blind-retry
// eligibility only; a permanent error can still get a diagnostic pass, since a
// different corrective action may succeed.
type Category string

const (
	CategoryNetwork    Category = "network"
	CategoryPermission Category = "permission"
	CategoryNotFound   Category = "not_found"
	CategorySyntax     Category = "syntax"
	CategoryResource   Category = "resource"
	CategoryRateLimit  Category = "rate_limit"
	CategoryUnknown    Category = "unknown"
)

// Permanent reports whether blind retries of the identical action are futile.
func (c Category) Permanent() bool {
	switch c {
	case CategoryPermission, CategoryNotFound, CategorySyntax:
		return true
	default:
		return false
	}
}

type classifyRule struct {
	category Category
	hints    []string
}

// Ordered most-specific-first; the first rule with a matching hint wins.
var classifyRules = []classifyRule{
	{CategoryRateLimit, []string{
		"rate limit",
		"too many requests",
		"quota exceeded",
	}},
	{CategoryNetwork, []string{
		"connection refused",
		"connection reset",
		"connection timed out",
		"timeout",
		"timed out",
		"broken pipe",
		"network is unreachable",
		"no route to host",
		"temporary failure in name resolution",
		"service unavailable",
		"gateway timeout",
	}},
	{CategoryPermission, []string{
		"permission denied",
		"access denied",
		"operation not permitted",
		"unauthorized",
		"forbidden",
	}},
	{CategoryNotFound, []string{
		"not found",
		"no such file",
		"no such directory",
		"does not exist",
	}},
	{CategorySyntax, []string{
		"syntax error",
		"parse error",
		"invalid syntax",
		"unexpected token",
		"unexpected eof",
		"compilation failed",
		"cannot unmarshal",
	}},
	{CategoryResource, []string{
		"out of memory",
		"no space left",
		"disk full",
		"resource exhausted",
		"too many open files",
		"file too large",
	}},
}

// Classify maps a raw failure message to a category and permanence flag.
// Deterministic, no I/O. Unmatched messages are UNKNOWN and transient: the
// conservative default keeps them eligible for retry and diagnosis.
func Classify(raw string) (Category, bool) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return CategoryUnknown, false
	}
	for _, rule := range classifyRules {
		for _, hint := range rule.hints {
			if strings.Contains(lower, hint) {
				return rule.category, rule.category.Permanent()
			}
		}
	}
	return CategoryUnknown, false
}

// ClassifyError prefers the typed llm error hierarchy, which carries
// structured retryability and status codes, and falls back to the keyword
// table for everything else.
func ClassifyError(err error) (Category, bool) {
	if err == nil {
		return CategoryUnknown, false
	}
	var le llm.Error
	if errors.As(err, &le) {
		switch le.StatusCode() {
		case 429:
			return CategoryRateLimit, false
		case 401, 403:
			return CategoryPermission, true
		case 404:
			return CategoryNotFound, true
		case 408, 500, 502, 503, 504:
			return CategoryNetwork, false
		case 400, 422:
			return CategorySyntax, true
		}
		if le.Retryable() {
			return CategoryNetwork, false
		}
	}
	return Classify(err.Error())
}
