package variable

import (
	"regexp"
	"strings"
)

// tokenPattern은 본문 안의 #{변수명} 토큰입니다.
var tokenPattern = regexp.MustCompile(`#\{([^}]*)\}`)

// Variable은 워크스페이스에서 사용할 수 있는 치환 변수입니다.
type Variable struct {
	Key   string `json:"key" db:"variable_key"`
	Label string `json:"label" db:"variable_label"`
}

// SegmentKind는 미리보기 조각의 종류입니다.
type SegmentKind string

const (
	SegmentText SegmentKind = "text"
	SegmentTag  SegmentKind = "tag"
)

// Segment는 미리보기 렌더링 결과의 한 조각입니다.
// Tag 조각은 Key(원본 변수명)와 Label(표시 값)을 가집니다.
type Segment struct {
	Kind  SegmentKind `json:"kind"`
	Text  string      `json:"text,omitempty"`
	Key   string      `json:"key,omitempty"`
	Label string      `json:"label,omitempty"`
}

// Token은 key를 본문에 넣을 #{key} 토큰으로 만듭니다.
func Token(key string) string {
	return "#{" + key + "}"
}

// Insert는 본문 끝에 #{key} 토큰을 붙입니다.
// 본문에 이미 있는 "#{" 문자열은 이스케이프하지 않습니다.
func Insert(body, key string) string {
	return body + Token(key)
}

// Labels는 변수 목록을 key -> label 맵으로 바꿉니다.
func Labels(vars []Variable) map[string]string {
	m := make(map[string]string, len(vars))
	for _, v := range vars {
		m[v.Key] = v.Label
	}
	return m
}

// Preview는 본문을 텍스트/태그 조각으로 나눕니다.
// 매핑에 있는 변수는 태그로, 없는 변수는 원문 그대로 텍스트에 남습니다.
func Preview(body string, labels map[string]string) []Segment {
	segments := make([]Segment, 0)
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			segments = append(segments, Segment{Kind: SegmentText, Text: text.String()})
			text.Reset()
		}
	}

	last := 0
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(body, -1) {
		text.WriteString(body[last:m[0]])
		key := body[m[2]:m[3]]
		if label, ok := labels[key]; ok {
			flush()
			segments = append(segments, Segment{Kind: SegmentTag, Key: key, Label: label})
		} else {
			text.WriteString(body[m[0]:m[1]])
		}
		last = m[1]
	}
	text.WriteString(body[last:])
	flush()

	return segments
}

// Render는 실제 발송용으로 토큰을 값으로 치환합니다. 값이 없는 토큰은 그대로 둡니다.
func Render(body string, values map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(body, func(tok string) string {
		key := tok[2 : len(tok)-1]
		if v, ok := values[key]; ok {
			return v
		}
		return tok
	})
}

// Keys는 본문에 등장하는 변수명을 처음 등장한 순서대로 중복 없이 반환합니다.
func Keys(body string) []string {
	seen := make(map[string]bool)
	keys := make([]string, 0)
	for _, m := range tokenPattern.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}
