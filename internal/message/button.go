package message

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"alimflow/internal/apperr"
)

var validate = validator.New()

// DefaultChannelAddName은 채널 추가 버튼의 고정 이름입니다.
const DefaultChannelAddName = "채널 추가"

func knownButtonType(t ButtonType) bool {
	switch t {
	case ButtonChannelAdd, ButtonWebLink, ButtonDeliverySearch, ButtonDownload:
		return true
	}
	return false
}

// ValidateButton은 버튼 하나의 필수 값 규칙을 검사합니다.
func ValidateButton(b Button) error {
	if b.Type == "" {
		return apperr.Invalid("buttons.type", "버튼 종류를 선택하세요.")
	}
	if !knownButtonType(b.Type) {
		return apperr.Invalid("buttons.type", "지원하지 않는 버튼 종류입니다: %s", b.Type)
	}
	if b.Type != ButtonChannelAdd && strings.TrimSpace(b.Name) == "" {
		return apperr.Invalid("buttons.name", "버튼 이름을 입력하세요.")
	}
	if b.Type == ButtonWebLink {
		if strings.TrimSpace(b.URL) == "" {
			return apperr.Invalid("buttons.url", "웹 링크 버튼의 URL을 입력하세요.")
		}
		if err := validate.Var(b.URL, "http_url"); err != nil {
			return apperr.Invalid("buttons.url", "올바른 URL 형식이 아닙니다: %s", b.URL)
		}
	}
	return nil
}

// AddButton은 검증을 통과한 버튼을 추가한 새 슬라이스를 반환합니다.
// 실패하면 원본 슬라이스는 그대로입니다.
// 채널 추가 버튼은 항상 맨 앞에 들어갑니다.
func AddButton(buttons []Button, b Button) ([]Button, error) {
	if err := ValidateButton(b); err != nil {
		return buttons, err
	}
	if len(buttons) >= MaxButtons {
		return buttons, apperr.Invalid("buttons", "버튼은 최대 %d개까지 추가할 수 있습니다.", MaxButtons)
	}
	if b.Type == ButtonChannelAdd && hasButtonType(buttons, ButtonChannelAdd) {
		return buttons, apperr.Invalid("buttons", "채널 추가 버튼은 하나만 추가할 수 있습니다.")
	}

	next := make([]Button, 0, len(buttons)+1)
	if b.Type == ButtonChannelAdd {
		if b.Name == "" {
			b.Name = DefaultChannelAddName
		}
		b.URL = ""
		next = append(next, b)
		return append(next, buttons...), nil
	}
	next = append(next, buttons...)
	return append(next, b), nil
}

// RemoveButton은 index 위치의 버튼을 뺀 새 슬라이스를 반환합니다.
func RemoveButton(buttons []Button, index int) ([]Button, error) {
	if index < 0 || index >= len(buttons) {
		return buttons, apperr.Invalid("buttons", "삭제할 버튼(%d)이 없습니다.", index)
	}
	next := make([]Button, 0, len(buttons)-1)
	next = append(next, buttons[:index]...)
	return append(next, buttons[index+1:]...), nil
}

// ValidateButtons는 저장 직전 버튼 목록 전체의 규칙을 검사합니다.
func ValidateButtons(buttons []Button) error {
	if len(buttons) > MaxButtons {
		return apperr.Invalid("buttons", "버튼은 최대 %d개까지 추가할 수 있습니다.", MaxButtons)
	}
	for i, b := range buttons {
		if err := ValidateButton(b); err != nil {
			return err
		}
		if b.Type == ButtonChannelAdd && i != 0 {
			return apperr.Invalid("buttons", "채널 추가 버튼은 첫 번째 위치에만 둘 수 있습니다.")
		}
	}
	return nil
}

func hasButtonType(buttons []Button, t ButtonType) bool {
	for _, b := range buttons {
		if b.Type == t {
			return true
		}
	}
	return false
}
