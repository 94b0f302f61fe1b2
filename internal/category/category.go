package category

import "strings"

// Category는 카카오 플랫폼이 내려주는 메시지 카테고리입니다.
// Name은 "대분류,중분류,소분류" 형태의 콤마 구분 경로입니다.
type Category struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Node는 캐스케이딩 셀렉터용 트리 노드입니다.
type Node struct {
	Value    string  `json:"value"`
	Label    string  `json:"label"`
	Children []*Node `json:"children,omitempty"`
}

const (
	groupPrefixLen    = 3
	subgroupPrefixLen = 6
)

// BuildTree는 평면 카테고리 목록을 3단계 트리로 변환합니다.
//
// 1, 2단계 노드는 라벨이 같으면 같은 노드로 합쳐지며 처음 등장한 순서를 유지합니다.
// 1단계 값은 코드 앞 3자리, 2단계 값은 앞 6자리, 3단계 값은 원본 코드입니다.
// 세그먼트가 3개보다 적으면 빈 라벨이 그대로 사용됩니다.
func BuildTree(categories []Category) []*Node {
	roots := make([]*Node, 0)

	for _, c := range categories {
		parts := strings.Split(c.Name, ",")
		l1, l2, l3 := segment(parts, 0), segment(parts, 1), segment(parts, 2)

		group := findOrAppend(&roots, l1, prefix(c.Code, groupPrefixLen))
		sub := findOrAppend(&group.Children, l2, prefix(c.Code, subgroupPrefixLen))
		sub.Children = append(sub.Children, &Node{Value: c.Code, Label: l3})
	}
	return roots
}

func findOrAppend(nodes *[]*Node, label, value string) *Node {
	for _, n := range *nodes {
		if n.Label == label {
			return n
		}
	}
	n := &Node{Value: value, Label: label, Children: make([]*Node, 0)}
	*nodes = append(*nodes, n)
	return n
}

func segment(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func prefix(code string, n int) string {
	if len(code) < n {
		return code
	}
	return code[:n]
}

// Find는 트리에서 코드(3단계 값)에 해당하는 라벨 경로를 찾습니다.
func Find(roots []*Node, code string) ([]string, bool) {
	for _, g := range roots {
		for _, s := range g.Children {
			for _, leaf := range s.Children {
				if leaf.Value == code {
					return []string{g.Label, s.Label, leaf.Label}, true
				}
			}
		}
	}
	return nil, false
}
