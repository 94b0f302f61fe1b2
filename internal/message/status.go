package message

// Action은 검수 상태에 따라 허용되는 동작입니다.
type Action string

const (
	ActionCancelInspection Action = "CANCEL_INSPECTION"
	ActionSubmitInspection Action = "SUBMIT_INSPECTION"
)

// StatusView는 검수 상태를 화면 표현으로 투영한 결과입니다.
type StatusView struct {
	Status    ApprovalStatus `json:"status"`
	Label     string         `json:"label"`
	IconClass string         `json:"icon_class"`
	Editable  bool           `json:"editable"`
	CanSend   bool           `json:"can_send"`
	Notice    string         `json:"notice,omitempty"`
	Actions   []Action       `json:"actions"`
}

// Allows는 action이 허용되는지 확인합니다.
func (v StatusView) Allows(action Action) bool {
	for _, a := range v.Actions {
		if a == action {
			return true
		}
	}
	return false
}

const notSendableNotice = "아직 발송할 수 없는 템플릿입니다. 카카오 검수 승인 후 발송됩니다."

// ProjectStatus는 검수 상태를 라벨/아이콘/수정 가능 여부/허용 동작으로 매핑합니다.
// 발송은 APPROVED에서만 가능합니다.
func ProjectStatus(status ApprovalStatus) StatusView {
	switch status {
	case StatusPending:
		return StatusView{
			Status: status, Label: "검수 중", IconClass: "status-pending",
			Notice:  notSendableNotice,
			Actions: []Action{ActionCancelInspection},
		}
	case StatusApproved:
		return StatusView{
			Status: status, Label: "승인", IconClass: "status-approved",
			CanSend: true,
			Actions: []Action{},
		}
	case StatusRejected:
		return StatusView{
			Status: status, Label: "반려", IconClass: "status-rejected",
			Editable: true,
			Notice:   notSendableNotice,
			Actions:  []Action{ActionSubmitInspection},
		}
	case StatusUploaded:
		return StatusView{
			Status: status, Label: "등록", IconClass: "status-uploaded",
			Editable: true,
			Notice:   notSendableNotice,
			Actions:  []Action{ActionSubmitInspection},
		}
	default:
		return StatusView{
			Status: status, Label: "알 수 없음", IconClass: "status-unknown",
			Notice:  notSendableNotice,
			Actions: []Action{},
		}
	}
}

// ProjectMessage는 메시지 유형까지 고려해 상태를 투영합니다.
// 빠른 시작 메시지는 사전 승인 템플릿이므로 항상 발송 가능하고 수정할 수 있습니다.
func ProjectMessage(m *Message) StatusView {
	if m.TemplateType == QuickStart {
		return StatusView{
			Status: StatusApproved, Label: "승인(빠른 시작)", IconClass: "status-approved",
			Editable: true, CanSend: true,
			Actions: []Action{},
		}
	}
	return ProjectStatus(m.Status)
}
