package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"alimflow/internal/message"
)

// 한 번에 조회하는 검수 대기 메시지 수
const pendingFetchLimit = 100

// 플랫폼 조회 1건당 제한 시간
const syncTimeout = 20 * time.Second

// Synchronizer는 검수 상태 동기화 대상입니다. (*message.Service가 구현)
type Synchronizer interface {
	GetPendingMessages(limit int) ([]message.PendingMessage, error)
	SyncStatus(ctx context.Context, p message.PendingMessage) (*message.StatusChange, error)
}

// Notifier는 검수 결과 알림 창구입니다. (*alert.Service가 구현)
type Notifier interface {
	Notify(change message.StatusChange) error
}

// Scheduler는 1분마다 검수 대기 템플릿의 상태를 플랫폼과 맞춥니다.
type Scheduler struct {
	cron        *cron.Cron
	messages    Synchronizer
	notifier    Notifier
	concurrency int
}

// NewScheduler는 새 Scheduler를 생성합니다. concurrency는 동시 조회 수 상한입니다.
func NewScheduler(messages Synchronizer, notifier Notifier, concurrency int) *Scheduler {
	if concurrency <= 0 {
		concurrency = 1
	}
	// 이전 실행이 끝나지 않았으면 이번 실행은 건너뜁니다.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	return &Scheduler{
		cron:        c,
		messages:    messages,
		notifier:    notifier,
		concurrency: concurrency,
	}
}

// Start
func (s *Scheduler) Start() error {
	log.Info("-----------------------------------------")
	log.Info("🔔 alimflow 검수 상태 동기화 스케줄러가 시작됩니다...")
	if _, err := s.cron.AddFunc("@every 1m", func() { s.RunOnce(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	log.Info("-----------------------------------------")
	return nil
}

// Stop은 진행 중인 실행이 끝날 때까지 기다립니다.
func (s *Scheduler) Stop() {
	log.Info("alimflow 스케줄러가 중지됩니다...")
	<-s.cron.Stop().Done()
}

// RunOnce는 검수 대기 메시지를 한 번 동기화하고 상태가 바뀐 건수를 반환합니다.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	pending, err := s.messages.GetPendingMessages(pendingFetchLimit)
	if err != nil {
		log.Errorf("[Scheduler] 검수 대기 목록 조회 실패: %v", err)
		return 0
	}
	if len(pending) == 0 {
		log.Debug("[Scheduler] 검수 대기 중인 템플릿이 없습니다.")
		return 0
	}
	log.Infof("[Scheduler] %d 건의 검수 상태를 확인합니다.", len(pending))

	var changed atomic.Int32
	var eg errgroup.Group
	eg.SetLimit(s.concurrency)

	for _, p := range pending {
		p := p
		eg.Go(func() error {
			// 한 건의 실패가 나머지를 멈추지 않도록 에러는 로그만 남깁니다.
			s.syncOne(ctx, p, &changed)
			return nil
		})
	}
	_ = eg.Wait()

	n := int(changed.Load())
	log.Infof("[Scheduler] 검수 상태 확인 완료 (변경 %d/%d 건)", n, len(pending))
	return n
}

func (s *Scheduler) syncOne(ctx context.Context, p message.PendingMessage, changed *atomic.Int32) {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	change, err := s.messages.SyncStatus(ctx, p)
	if err != nil {
		log.Errorf("[Scheduler] 메시지(ID: %d, 코드: %s) 상태 조회 실패: %v", p.ID, p.TemplateCode, err)
		return
	}
	if change == nil {
		return
	}
	changed.Add(1)
	log.Infof("[Scheduler] 메시지(ID: %d) 검수 상태 변경: %s -> %s", change.MessageID, change.From, change.To)

	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(*change); err != nil {
		log.Errorf("[Scheduler] 메시지(ID: %d) 알림 발송 실패: %v", change.MessageID, err)
	}
}
