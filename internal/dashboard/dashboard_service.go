package dashboard

import (
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"alimflow/internal/workspace"
)

// MessageCounter는 메시지 수 집계용입니다. (*message.Store가 구현)
type MessageCounter interface {
	CountMessages(workspaceID uint64) (total, pending int, err error)
}

// EventCounter는 이벤트 수 집계용입니다. (*event.Store가 구현)
type EventCounter interface {
	CountEvents(workspaceID uint64) (total, enabled int, err error)
}

// GroupCounter는 콘텐츠 그룹 수 집계용입니다. (*contentgroup.Store가 구현)
type GroupCounter interface {
	CountGroups(workspaceID uint64) (int, error)
}

// Workspaces는 워크스페이스 조회용입니다. (*workspace.Store가 구현)
type Workspaces interface {
	GetWorkspace(id uint64) (*workspace.Workspace, error)
}

// DashboardData는 워크스페이스 요약입니다.
type DashboardData struct {
	Workspace         *workspace.Workspace `json:"workspace"`
	KakaoConnected    bool                 `json:"kakao_connected"`
	MessageCount      int                  `json:"message_count"`
	PendingCount      int                  `json:"pending_count"`
	EventCount        int                  `json:"event_count"`
	ActiveEventCount  int                  `json:"active_event_count"`
	ContentGroupCount int                  `json:"content_group_count"`
}

// Service는 대시보드 데이터 조회를 담당합니다. (여러 Store에 의존)
type Service struct {
	workspaces Workspaces
	messages   MessageCounter
	events     EventCounter
	groups     GroupCounter
}

// NewService는 대시보드 서비스를 생성합니다.
func NewService(ws Workspaces, ms MessageCounter, es EventCounter, gs GroupCounter) *Service {
	return &Service{
		workspaces: ws,
		messages:   ms,
		events:     es,
		groups:     gs,
	}
}

// GetDashboardData는 4가지 데이터를 DB에서 병렬로 조회하여 집계합니다.
func (s *Service) GetDashboardData(workspaceID uint64) (*DashboardData, error) {
	var data DashboardData
	var eg errgroup.Group

	// 고루틴 1: 워크스페이스 정보
	eg.Go(func() error {
		ws, err := s.workspaces.GetWorkspace(workspaceID)
		if err != nil {
			log.Errorf("GetDashboardData: GetWorkspace 실패: %v", err)
			return err
		}
		data.Workspace = ws
		_, keyErr := ws.SenderKey()
		data.KakaoConnected = keyErr == nil
		return nil
	})

	// 고루틴 2: 메시지 수 / 검수 대기 수
	eg.Go(func() error {
		total, pending, err := s.messages.CountMessages(workspaceID)
		if err != nil {
			log.Errorf("GetDashboardData: CountMessages 실패: %v", err)
			return err
		}
		data.MessageCount = total
		data.PendingCount = pending
		return nil
	})

	// 고루틴 3: 이벤트 수 / 활성 이벤트 수
	eg.Go(func() error {
		total, enabled, err := s.events.CountEvents(workspaceID)
		if err != nil {
			log.Errorf("GetDashboardData: CountEvents 실패: %v", err)
			return err
		}
		data.EventCount = total
		data.ActiveEventCount = enabled
		return nil
	})

	// 고루틴 4: 콘텐츠 그룹 수
	eg.Go(func() error {
		count, err := s.groups.CountGroups(workspaceID)
		if err != nil {
			log.Errorf("GetDashboardData: CountGroups 실패: %v", err)
			return err
		}
		data.ContentGroupCount = count
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}
