package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Content size limits (in bytes)
const (
	MaxHTMLSize    = 256 * 1024 // 256KB - app markup
	MaxCSSSize     = 128 * 1024 // 128KB - app styles
	MaxJSSize      = 256 * 1024 // 256KB - app script
	MaxPromptSize  = 16 * 1024  // 16KB - single prompt
	MaxHistorySize = 50         // conversation turns kept per request
)

// String length limits
const (
	MaxIDLength          = 128
	MaxTitleLength       = 256
	MaxDescriptionLength = 2048
	MaxCommentLength     = 1000
	MaxUsernameLength    = 64
	MinUsernameLength    = 3
)

var (
	// SafeIDPattern allows alphanumeric, hyphens, underscores
	SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// UsernamePattern allows alphanumeric and underscores
	UsernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	// markupPattern catches anything that looks like a tag
	markupPattern = regexp.MustCompile(`<[a-zA-Z/!][^>]*>`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateID validates an ID field
func ValidateID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}

	if id != "" && !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", fieldName)
	}

	return nil
}

// ValidateUsername validates a username
func ValidateUsername(username string) error {
	if err := ValidateString(username, "username", MinUsernameLength, MaxUsernameLength, true); err != nil {
		return err
	}

	if !UsernamePattern.MatchString(username) {
		return fmt.Errorf("username contains invalid characters (only alphanumeric and underscores allowed)")
	}

	return nil
}

// ValidateTitle validates an app title
func ValidateTitle(title string) error {
	return ValidateString(title, "title", 1, MaxTitleLength, true)
}

// ValidateDescription validates an app description
func ValidateDescription(description string) error {
	return ValidateString(description, "description", 0, MaxDescriptionLength, false)
}

// ValidateComment validates a comment body
func ValidateComment(body string) error {
	return ValidateString(strings.TrimSpace(body), "comment", 1, MaxCommentLength, true)
}

// ValidateCode checks the three code parts against their size limits.
// Size is measured in bytes since that is what ends up in the iframe.
func ValidateCode(html, css, js string) error {
	if len(html) > MaxHTMLSize {
		return fmt.Errorf("htmlContent exceeds maximum %d bytes", MaxHTMLSize)
	}
	if len(css) > MaxCSSSize {
		return fmt.Errorf("cssContent exceeds maximum %d bytes", MaxCSSSize)
	}
	if len(js) > MaxJSSize {
		return fmt.Errorf("jsContent exceeds maximum %d bytes", MaxJSSize)
	}
	return nil
}

// ValidatePrompt validates a generation prompt
func ValidatePrompt(prompt string) error {
	if err := ValidateString(prompt, "prompt", 1, MaxPromptSize, true); err != nil {
		return err
	}

	// Check for excessive whitespace (potential DoS)
	whitespace := 0
	for _, r := range prompt {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			whitespace++
		}
	}
	if whitespace > len(prompt)/2 {
		return fmt.Errorf("prompt contains excessive whitespace")
	}

	return nil
}

// ContainsMarkup reports whether s contains something that looks like an HTML tag
func ContainsMarkup(s string) bool {
	return markupPattern.MatchString(s)
}
