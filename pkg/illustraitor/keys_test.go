package illustraitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"abc", "•••"},
		{"12345678", "••••••••"},
		{"sk-abcdefghij", "sk-••••••ghij"},
		{"ilust_0123456789", "ilu•••••••••6789"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := MaskKey(tt.key)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len([]rune(tt.key)), len([]rune(got)))
		})
	}
}

func TestIsMasked(t *testing.T) {
	assert.True(t, IsMasked(MaskKey("sk-proj-abcdefgh1234")))
	assert.False(t, IsMasked("sk-proj-abcdefgh1234"))
	assert.False(t, IsMasked(""))
}

func TestKeyHint(t *testing.T) {
	assert.Empty(t, KeyHint("sk-proj-abc"))
	assert.Empty(t, KeyHint("sk-abc"))
	assert.Empty(t, KeyHint("ilust_abc"))
	assert.Contains(t, KeyHint("my-key"), "known prefix")
}
