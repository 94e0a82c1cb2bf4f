package server

import (
	"context"
	"log"
	"time"

	"realtime-canvas/internal/model"
)

// Cleaner 주기적으로 제한을 적용할 저장소
type Cleaner interface {
	Cleanup() ([]model.Drawing, int)
}

// Broadcaster 모든 클라이언트에 이벤트 전송
type Broadcaster interface {
	BroadcastAll(eventType string, payload any)
}

// Janitor 주기적으로 만료/초과 드로잉을 정리하고 drawings-updated 를 보낸다
type Janitor struct {
	store    Cleaner
	hub      Broadcaster
	interval time.Duration
}

// NewJanitor 생성자
func NewJanitor(store Cleaner, hub Broadcaster, interval time.Duration) *Janitor {
	return &Janitor{store: store, hub: hub, interval: interval}
}

// Run ctx 가 끝날 때까지 interval 마다 Sweep
func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.Printf("[Janitor] Started (interval %s)", j.interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Janitor] Stopped")
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep 한 번 정리하고 결과 목록을 모든 클라이언트에 전송 (제거 수 반환)
func (j *Janitor) Sweep() int {
	drawings, removed := j.store.Cleanup()
	if removed > 0 {
		log.Printf("[Janitor] Removed %d drawings, %d remain", removed, len(drawings))
	}
	j.hub.BroadcastAll(model.EventDrawingsUpdated, drawings)
	return removed
}
