package workspace

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"alimflow/internal/apperr"
)

func TestSenderKey(t *testing.T) {
	empty := ""
	key := "sender-key-1"

	tests := []struct {
		name    string
		key     *string
		want    string
		wantErr bool
	}{
		{"not linked", nil, "", true},
		{"empty key", &empty, "", true},
		{"linked", &key, "sender-key-1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Workspace{ID: 1, KakaoSenderKey: tt.key}
			got, err := w.SenderKey()
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
