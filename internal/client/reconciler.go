package client

import (
	"math"
	"sync"

	"realtime-canvas/internal/model"
)

// DefaultEpsilon 정규화 좌표 기준 자기 스트로크 판정 허용 오차
const DefaultEpsilon = 0.001

// 소수 좌표 차이의 부동소수점 오차 (0.009-0.008 이 0.001 보다 살짝 작게 계산됨)
const epsilonSlack = 1e-12

// PendingStroke 로컬에서 그렸지만 아직 저장 확인을 받지 못한 스트로크
type PendingStroke struct {
	ID     string
	Stroke model.Stroke
}

// Reconciler drawing-saved 가 자신의 저장 결과인지 판단
//
// strokeId 가 있으면 ID 로만 비교한다. 없으면(구 클라이언트 형식) 가장 최근
// pending 스트로크의 첫 점과 epsilon 미만 차이인지로 판단한다.
type Reconciler struct {
	mu      sync.Mutex
	epsilon float64
	pending []PendingStroke
}

// NewReconciler 생성자 (epsilon <= 0 이면 DefaultEpsilon)
func NewReconciler(epsilon float64) *Reconciler {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Reconciler{epsilon: epsilon}
}

// Add 저장 요청을 보낸 로컬 스트로크 기록
func (r *Reconciler) Add(id string, stroke model.Stroke) {
	if len(stroke) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, PendingStroke{ID: id, Stroke: stroke})
}

// Pending 확인 대기 중인 스트로크 목록 (오래된 순)
func (r *Reconciler) Pending() []PendingStroke {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PendingStroke(nil), r.pending...)
}

// IsEcho d 가 자신의 저장 결과면 해당 pending 항목을 제거하고 true
func (r *Reconciler) IsEcho(d model.Drawing) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d.StrokeID != "" {
		for i := len(r.pending) - 1; i >= 0; i-- {
			if r.pending[i].ID == d.StrokeID {
				r.remove(i)
				return true
			}
		}
		return false
	}

	if len(r.pending) == 0 {
		return false
	}
	saved, ok := d.FirstPoint()
	if !ok {
		return false
	}

	newest := len(r.pending) - 1
	local := r.pending[newest].Stroke[0]
	// 차이가 정확히 epsilon 이면 다른 스트로크
	limit := r.epsilon - epsilonSlack
	if math.Abs(local.X-saved.X) < limit && math.Abs(local.Y-saved.Y) < limit {
		r.remove(newest)
		return true
	}
	return false
}

func (r *Reconciler) remove(i int) {
	r.pending = append(r.pending[:i], r.pending[i+1:]...)
}
