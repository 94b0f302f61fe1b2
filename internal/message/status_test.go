package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectStatus(t *testing.T) {
	tests := []struct {
		status   ApprovalStatus
		editable bool
		canSend  bool
		actions  []Action
	}{
		{StatusPending, false, false, []Action{ActionCancelInspection}},
		{StatusApproved, false, true, []Action{}},
		{StatusRejected, true, false, []Action{ActionSubmitInspection}},
		{StatusUploaded, true, false, []Action{ActionSubmitInspection}},
		{"DELETED", false, false, []Action{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			v := ProjectStatus(tt.status)
			assert.Equal(t, tt.editable, v.Editable)
			assert.Equal(t, tt.canSend, v.CanSend)
			assert.Equal(t, tt.actions, v.Actions)
			assert.NotEmpty(t, v.Label)
			assert.NotEmpty(t, v.IconClass)
			if !tt.canSend {
				assert.NotEmpty(t, v.Notice)
			}
		})
	}
}

func TestOnlyApprovedSends(t *testing.T) {
	for _, s := range []ApprovalStatus{StatusPending, StatusRejected, StatusUploaded, ""} {
		assert.False(t, ProjectStatus(s).CanSend, s)
	}
	assert.True(t, ProjectStatus(StatusApproved).CanSend)
}

func TestProjectMessageQuickStart(t *testing.T) {
	v := ProjectMessage(&Message{TemplateType: QuickStart, Status: StatusUploaded})
	assert.True(t, v.CanSend)
	assert.True(t, v.Editable)
	assert.False(t, v.Allows(ActionSubmitInspection))
}
