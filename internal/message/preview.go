package message

import "alimflow/internal/variable"

const (
	previewHeader      = "알림톡 도착"
	channelAddPromo    = "채널 추가하고 이 채널의 광고와 마케팅 메시지를 카카오톡으로 받기"
	buttonStyleChannel = "channel-add"
	buttonStyleDefault = "default"
)

// PreviewButton은 미리보기 버튼 한 개입니다.
type PreviewButton struct {
	Label string     `json:"label"`
	Type  ButtonType `json:"type"`
	Style string     `json:"style"`
}

// Preview는 카카오톡 말풍선 모양의 미리보기 구성입니다.
type Preview struct {
	Header          string             `json:"header"`
	ImageURL        string             `json:"image_url,omitempty"`
	Body            []variable.Segment `json:"body"`
	Extra           string             `json:"extra,omitempty"`
	ChannelAddPromo string             `json:"channel_add_promo,omitempty"`
	Buttons         []PreviewButton    `json:"buttons"`
}

// RenderPreview는 폼 항목으로 미리보기를 구성합니다.
// 순서: 헤더 -> 이미지 -> 본문 -> 부가정보 -> 채널 추가 안내 -> 버튼
// 채널 추가 버튼은 저장 순서와 상관없이 맨 앞에 다른 스타일로 표시됩니다.
func RenderPreview(f Fields, labels map[string]string) Preview {
	p := Preview{
		Header:   previewHeader,
		ImageURL: f.ImageURL,
		Body:     variable.Preview(f.Content, labels),
		Extra:    f.Extra,
		Buttons:  make([]PreviewButton, 0, len(f.Buttons)),
	}

	for _, b := range f.Buttons {
		if b.Type != ButtonChannelAdd {
			continue
		}
		name := b.Name
		if name == "" {
			name = DefaultChannelAddName
		}
		p.ChannelAddPromo = channelAddPromo
		p.Buttons = append(p.Buttons, PreviewButton{Label: name, Type: b.Type, Style: buttonStyleChannel})
		break
	}
	for _, b := range f.Buttons {
		if b.Type == ButtonChannelAdd {
			continue
		}
		p.Buttons = append(p.Buttons, PreviewButton{Label: b.Name, Type: b.Type, Style: buttonStyleDefault})
	}
	return p
}
