package message

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"alimflow/internal/apperr"
)

func init() {
	// 에러의 필드명을 JSON 키로 맞춥니다.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

var phonePattern = regexp.MustCompile(`^0\d{1,2}-?\d{3,4}-?\d{4}$`)

// MessageRequest는 메시지 생성/수정 요청 본문입니다.
type MessageRequest struct {
	Title        string       `json:"title" validate:"required,max=100"`
	TemplateType TemplateType `json:"template_type" validate:"required,oneof=QUICK_START FULLY_CUSTOM"`

	// QUICK_START
	QuickStartID uint64 `json:"quick_start_id"`
	ProductInfo  string `json:"product_info"`

	// FULLY_CUSTOM
	CategoryCode string   `json:"category_code" validate:"max=20"`
	ImageID      string   `json:"image_id"`
	ImageURL     string   `json:"image_url" validate:"omitempty,http_url"`
	Content      string   `json:"content"`
	Extra        string   `json:"extra"`
	Buttons      []Button `json:"buttons"`

	Audience           Audience `json:"audience" validate:"required,oneof=BUYER RECEIVER CUSTOM"`
	CustomPhone        string   `json:"custom_phone" validate:"max=20"`
	CompleteOnDelivery bool     `json:"complete_on_delivery"`
	ContentGroupID     *uint64  `json:"content_group_id"`

	// 수정 시 클라이언트가 마지막으로 본 revision
	Revision uint64 `json:"revision"`
}

func (r *MessageRequest) customFields() Fields {
	return Fields{
		CategoryCode: r.CategoryCode,
		ImageID:      r.ImageID,
		ImageURL:     r.ImageURL,
		Content:      r.Content,
		Extra:        r.Extra,
		Buttons:      r.Buttons,
	}
}

// validateRequest는 태그 규칙을 검사하고 첫 번째 실패를 필드 에러로 돌려줍니다.
func validateRequest(req *MessageRequest) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Invalid(fe.Field(), "입력값이 올바르지 않습니다: %s (%s)", fe.Field(), fe.Tag())
		}
		return apperr.New(apperr.ErrInvalidInput, "입력값이 올바르지 않습니다: %v", err)
	}
	if req.Audience == AudienceCustom && strings.TrimSpace(req.CustomPhone) == "" {
		return apperr.Invalid("custom_phone", "직접 입력 대상은 수신 번호가 필요합니다.")
	}
	if req.CustomPhone != "" && !phonePattern.MatchString(req.CustomPhone) {
		return apperr.Invalid("custom_phone", "수신 번호 형식이 올바르지 않습니다: %s", req.CustomPhone)
	}
	return nil
}

// sameFields는 읽기 전용 템플릿에 변경 요청이 섞였는지 확인합니다.
func sameFields(a, b Fields) bool {
	if a.CategoryCode != b.CategoryCode || a.ImageID != b.ImageID || a.ImageURL != b.ImageURL ||
		a.Content != b.Content || a.Extra != b.Extra || len(a.Buttons) != len(b.Buttons) {
		return false
	}
	for i := range a.Buttons {
		if a.Buttons[i] != b.Buttons[i] {
			return false
		}
	}
	return true
}
