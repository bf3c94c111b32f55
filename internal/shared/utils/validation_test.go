package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		required bool
		wantErr  bool
	}{
		{"valid prefixed id", "app_01HZX3", true, false},
		{"valid plain id", "current-user", true, false},
		{"empty required", "", true, true},
		{"empty optional", "", false, false},
		{"path traversal", "../etc", true, true},
		{"spaces", "app 1", true, true},
		{"too long", strings.Repeat("a", MaxIDLength+1), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id, "app_id", tt.required)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePrompt(t *testing.T) {
	assert.NoError(t, ValidatePrompt("build me a tip calculator"))
	assert.Error(t, ValidatePrompt(""))
	assert.Error(t, ValidatePrompt("a"+strings.Repeat(" ", 100)))
	assert.Error(t, ValidatePrompt(strings.Repeat("x", MaxPromptSize+1)))
	assert.Error(t, ValidatePrompt("bad\x00byte"))
}

func TestValidateCode(t *testing.T) {
	assert.NoError(t, ValidateCode("<div></div>", "div{}", "1+1"))
	assert.Error(t, ValidateCode(strings.Repeat("x", MaxHTMLSize+1), "", ""))
	assert.Error(t, ValidateCode("", strings.Repeat("x", MaxCSSSize+1), ""))
	assert.Error(t, ValidateCode("", "", strings.Repeat("x", MaxJSSize+1)))
}

func TestValidateComment(t *testing.T) {
	assert.NoError(t, ValidateComment("nice app!"))
	assert.Error(t, ValidateComment("   "))
	assert.Error(t, ValidateComment(strings.Repeat("x", MaxCommentLength+1)))
}

func TestContainsMarkup(t *testing.T) {
	assert.True(t, ContainsMarkup("<script>alert(1)</script>"))
	assert.True(t, ContainsMarkup("hi <b>there</b>"))
	assert.False(t, ContainsMarkup("2 < 3 and 5 > 4"))
	assert.False(t, ContainsMarkup("plain text"))
}

func TestContentFingerprint(t *testing.T) {
	fp := NewContentFingerprint(nil)

	a := fp.Compute("<p>x</p>", "p{}", "1")
	b := fp.Compute("<p>x</p>", "p{}", "1")
	c := fp.Compute("<p>x</p>p{}", "", "1")

	assert.Equal(t, a, b, "same content should hash the same")
	assert.NotEqual(t, a, c, "moving text between parts should change the hash")
	assert.Len(t, a, 64)
	assert.Equal(t, a[:8], fp.Short(a))
}

func TestHasherAlgorithms(t *testing.T) {
	sha := NewHasher(SHA256).HashString("abc")
	blake := NewHasher(BLAKE2b).HashString("abc")

	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sha)
	assert.NotEqual(t, sha, blake)
	assert.Equal(t, blake, DefaultHasher().HashString("abc"))
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Great app!", "Great app!"},
		{"  padded  ", "padded"},
		{"<b>bold</b> claim", "bold claim"},
		{"<script>alert(1)</script>hi", "hi"},
		{"Tom & Jerry", "Tom & Jerry"},
		{"2 < 3", "2 < 3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeText(tt.in), tt.in)
	}
}
