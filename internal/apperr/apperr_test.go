package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("메시지(ID: %d)를 찾을 수 없습니다.", 1), http.StatusNotFound},
		{"wrapped forbidden", fmt.Errorf("wrap: %w", ErrForbidden), http.StatusForbidden},
		{"invalid field", Invalid("content", "본문을 입력하세요."), http.StatusBadRequest},
		{"conflict", ErrConflict, http.StatusConflict},
		{"external", ErrExternal, http.StatusBadGateway},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestInvalidKeepsField(t *testing.T) {
	err := Invalid("buttons", "버튼은 최대 %d개까지 추가할 수 있습니다.", 5)
	assert.Equal(t, "buttons", err.Field)
	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, "버튼은 최대 5개까지 추가할 수 있습니다.", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIsMySQL(t *testing.T) {
	dup := &mysql.MySQLError{Number: MySQLDuplicateEntry, Message: "Duplicate entry"}
	assert.True(t, IsMySQL(fmt.Errorf("insert: %w", dup), MySQLDuplicateEntry))
	assert.False(t, IsMySQL(dup, MySQLForeignKeyFail))
	assert.False(t, IsMySQL(fmt.Errorf("plain"), MySQLDuplicateEntry))
}
