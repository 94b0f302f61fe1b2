package message

import (
	"strings"
	"unicode/utf8"

	"alimflow/internal/apperr"
	"alimflow/internal/variable"
)

// ProductInfoKey는 빠른 시작 템플릿에서 유일하게 편집 가능한 "상품 정보" 삽입 위치입니다.
const ProductInfoKey = "상품정보"

// Fields는 템플릿의 콘텐츠 항목입니다.
type Fields struct {
	CategoryCode string   `json:"category_code"`
	ImageID      string   `json:"image_id,omitempty"`
	ImageURL     string   `json:"image_url,omitempty"`
	Content      string   `json:"content"`
	Extra        string   `json:"extra,omitempty"`
	Buttons      []Button `json:"buttons"`
}

// Form은 작성 방식별 폼 상태입니다. (*QuickStartForm 또는 *CustomForm)
type Form interface {
	Type() TemplateType
	Fields() Fields
}

// QuickStartForm은 사전 승인 템플릿을 선택한 폼입니다.
// Inherited는 선택한 템플릿에서 그대로 가져오며 ProductInfo만 편집할 수 있습니다.
type QuickStartForm struct {
	QuickStartID uint64
	Inherited    Fields
	ProductInfo  string
}

func (f *QuickStartForm) Type() TemplateType { return QuickStart }

// Fields는 상속 본문의 #{상품정보} 위치(없으면 끝)에 상품 정보를 넣은 결과입니다.
func (f *QuickStartForm) Fields() Fields {
	out := f.Inherited
	out.Buttons = append([]Button(nil), f.Inherited.Buttons...)
	out.Content = quickStartContent(f.Inherited.Content, f.ProductInfo)
	return out
}

func quickStartContent(inherited, productInfo string) string {
	token := variable.Token(ProductInfoKey)
	if strings.Contains(inherited, token) {
		return strings.Replace(inherited, token, productInfo, 1)
	}
	if productInfo == "" {
		return inherited
	}
	return inherited + "\n" + productInfo
}

// CustomForm은 모든 항목을 직접 작성하는 폼입니다.
type CustomForm struct {
	Draft             Fields
	RequestInspection bool
}

func (f *CustomForm) Type() TemplateType { return FullyCustom }

func (f *CustomForm) Fields() Fields {
	out := f.Draft
	out.Buttons = append([]Button(nil), f.Draft.Buttons...)
	return out
}

// FormState는 템플릿 작성 폼의 상태 머신입니다.
type FormState struct {
	form     Form
	existing bool
	status   ApprovalStatus
}

// NewFormState는 새 메시지 작성용 폼을 만듭니다.
func NewFormState(t TemplateType) (*FormState, error) {
	form, err := emptyForm(t)
	if err != nil {
		return nil, err
	}
	return &FormState{form: form}, nil
}

// EditFormState는 저장된 메시지로부터 수정용 폼을 만듭니다.
// 빠른 시작 메시지는 원본 템플릿(qs)이 있어야 상속 본문을 복원할 수 있습니다.
func EditFormState(m *Message, qs *QuickStartTemplate) *FormState {
	s := &FormState{existing: true, status: m.Status}
	if m.TemplateType == QuickStart && qs != nil {
		s.form = &QuickStartForm{
			QuickStartID: qs.ID,
			Inherited:    qs.Fields(),
			ProductInfo:  productInfoOf(qs.Content, m.Content),
		}
		return s
	}
	s.form = &CustomForm{Draft: m.Fields()}
	return s
}

// productInfoOf는 저장된 본문에서 상품 정보 부분만 되돌려 찾습니다.
func productInfoOf(inherited, stored string) string {
	token := variable.Token(ProductInfoKey)
	if i := strings.Index(inherited, token); i >= 0 {
		head, tail := inherited[:i], inherited[i+len(token):]
		if strings.HasPrefix(stored, head) && strings.HasSuffix(stored, tail) && len(stored) >= len(head)+len(tail) {
			return stored[len(head) : len(stored)-len(tail)]
		}
		return ""
	}
	if strings.HasPrefix(stored, inherited+"\n") {
		return strings.TrimPrefix(stored, inherited+"\n")
	}
	return ""
}

func emptyForm(t TemplateType) (Form, error) {
	switch t {
	case QuickStart:
		return &QuickStartForm{}, nil
	case FullyCustom:
		return &CustomForm{Draft: Fields{Buttons: []Button{}}}, nil
	default:
		return nil, apperr.Invalid("template_type", "알 수 없는 템플릿 유형입니다: %s", t)
	}
}

// Form은 현재 폼을 반환합니다.
func (s *FormState) Form() Form { return s.form }

// Type은 현재 작성 방식입니다.
func (s *FormState) Type() TemplateType { return s.form.Type() }

// Status는 (기존 메시지의) 검수 상태입니다.
func (s *FormState) Status() ApprovalStatus { return s.status }

// ReadOnly는 콘텐츠 항목을 수정할 수 없는 상태인지 반환합니다.
// 검수 중이거나 승인된 직접 작성 템플릿은 카테고리/이미지/본문/부가정보/버튼 모두 잠깁니다.
func (s *FormState) ReadOnly() bool {
	if !s.existing || s.form.Type() != FullyCustom {
		return false
	}
	return s.status == StatusApproved || s.status == StatusPending
}

// SwitchType은 작성 방식을 바꾸고 콘텐츠 항목을 모두 비웁니다.
// (같은 방식을 다시 선택해도 초기화합니다)
func (s *FormState) SwitchType(t TemplateType) error {
	if s.ReadOnly() {
		return errReadOnly()
	}
	form, err := emptyForm(t)
	if err != nil {
		return err
	}
	s.form = form
	return nil
}

// SelectQuickStart는 빠른 시작 템플릿을 선택하고 본문 등을 상속합니다.
func (s *FormState) SelectQuickStart(q *QuickStartTemplate) error {
	f, ok := s.form.(*QuickStartForm)
	if !ok {
		return apperr.Invalid("quick_start_id", "빠른 시작 유형에서만 템플릿을 선택할 수 있습니다.")
	}
	f.QuickStartID = q.ID
	f.Inherited = q.Fields()
	f.ProductInfo = ""
	return nil
}

// SetProductInfo는 빠른 시작 템플릿의 상품 정보를 입력합니다.
func (s *FormState) SetProductInfo(text string) error {
	f, ok := s.form.(*QuickStartForm)
	if !ok {
		return apperr.Invalid("product_info", "빠른 시작 유형에서만 상품 정보를 입력할 수 있습니다.")
	}
	if n := utf8.RuneCountInString(quickStartContent(f.Inherited.Content, text)); n > MaxContentLength {
		return apperr.Invalid("product_info", "본문은 %d자를 넘을 수 없습니다. (현재 %d자)", MaxContentLength, n)
	}
	f.ProductInfo = text
	return nil
}

func (s *FormState) custom() (*CustomForm, error) {
	f, ok := s.form.(*CustomForm)
	if !ok {
		return nil, apperr.Invalid("template_type", "빠른 시작 템플릿은 상품 정보 외의 항목을 수정할 수 없습니다.")
	}
	if s.ReadOnly() {
		return nil, errReadOnly()
	}
	return f, nil
}

func (s *FormState) SetCategory(code string) error {
	f, err := s.custom()
	if err != nil {
		return err
	}
	f.Draft.CategoryCode = code
	return nil
}

func (s *FormState) SetImage(id, url string) error {
	f, err := s.custom()
	if err != nil {
		return err
	}
	f.Draft.ImageID, f.Draft.ImageURL = id, url
	return nil
}

func (s *FormState) SetContent(content string) error {
	f, err := s.custom()
	if err != nil {
		return err
	}
	if n := utf8.RuneCountInString(content); n > MaxContentLength {
		return apperr.Invalid("content", "본문은 %d자를 넘을 수 없습니다. (현재 %d자)", MaxContentLength, n)
	}
	f.Draft.Content = content
	return nil
}

// InsertVariable은 본문 끝에 변수 토큰을 붙입니다.
func (s *FormState) InsertVariable(key string) error {
	if f, ok := s.form.(*QuickStartForm); ok {
		return s.SetProductInfo(variable.Insert(f.ProductInfo, key))
	}
	f, err := s.custom()
	if err != nil {
		return err
	}
	return s.SetContent(variable.Insert(f.Draft.Content, key))
}

func (s *FormState) SetExtra(extra string) error {
	f, err := s.custom()
	if err != nil {
		return err
	}
	f.Draft.Extra = extra
	return nil
}

// AddButton은 버튼 추가 규칙을 검사한 뒤 버튼을 추가합니다.
func (s *FormState) AddButton(b Button) error {
	f, err := s.custom()
	if err != nil {
		return err
	}
	next, err := AddButton(f.Draft.Buttons, b)
	if err != nil {
		return err
	}
	f.Draft.Buttons = next
	return nil
}

func (s *FormState) RemoveButton(index int) error {
	f, err := s.custom()
	if err != nil {
		return err
	}
	next, err := RemoveButton(f.Draft.Buttons, index)
	if err != nil {
		return err
	}
	f.Draft.Buttons = next
	return nil
}

// SetRequestInspection은 저장 후 검수 요청 여부를 지정합니다.
func (s *FormState) SetRequestInspection(on bool) error {
	f, ok := s.form.(*CustomForm)
	if !ok {
		return apperr.Invalid("inspection", "빠른 시작 템플릿은 검수가 필요하지 않습니다.")
	}
	f.RequestInspection = on
	return nil
}

// RequestsInspection은 저장 후 검수를 요청해야 하는지 반환합니다.
func (s *FormState) RequestsInspection() bool {
	f, ok := s.form.(*CustomForm)
	return ok && f.RequestInspection
}

// Validate는 저장 가능한 상태인지 검사합니다.
func (s *FormState) Validate() error {
	switch f := s.form.(type) {
	case *QuickStartForm:
		if f.QuickStartID == 0 {
			return apperr.Invalid("quick_start_id", "빠른 시작 템플릿을 선택하세요.")
		}
		return validateContent(f.Fields().Content)
	case *CustomForm:
		if strings.TrimSpace(f.Draft.CategoryCode) == "" {
			return apperr.Invalid("category_code", "카테고리를 선택하세요.")
		}
		if err := validateContent(f.Draft.Content); err != nil {
			return err
		}
		return ValidateButtons(f.Draft.Buttons)
	default:
		return apperr.Invalid("template_type", "템플릿 유형을 선택하세요.")
	}
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperr.Invalid("content", "본문을 입력하세요.")
	}
	if n := utf8.RuneCountInString(content); n > MaxContentLength {
		return apperr.Invalid("content", "본문은 %d자를 넘을 수 없습니다. (현재 %d자)", MaxContentLength, n)
	}
	return nil
}

func errReadOnly() error {
	return apperr.New(apperr.ErrConflict, "검수 중이거나 승인된 템플릿은 수정할 수 없습니다. 검수를 취소한 뒤 수정하세요.")
}
