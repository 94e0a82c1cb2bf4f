package store

import (
	"encoding/json"
	"sort"
	"time"

	"realtime-canvas/internal/model"
)

// Bounds 드로잉 저장소의 보존 기간 / 크기 제한
type Bounds struct {
	Retention   time.Duration // 이 기간보다 오래된 드로잉은 무조건 제거
	MaxBytes    int           // 직렬화 크기가 이 값을 넘으면 크기 기반 제거 시작
	TargetBytes int           // 크기 기반 제거는 이 값 이하가 될 때까지 진행
}

// DefaultBounds 기본 제한 (7일, 5MB 트리거, 3MB 목표)
func DefaultBounds() Bounds {
	return Bounds{
		Retention:   7 * 24 * time.Hour,
		MaxBytes:    5 * 1024 * 1024,
		TargetBytes: 3 * 1024 * 1024,
	}
}

// EnforceResult EnforceBounds 결과 통계
type EnforceResult struct {
	Expired     int
	Evicted     int
	BytesBefore int
	BytesAfter  int
}

// Removed 제거된 드로잉 수
func (r EnforceResult) Removed() int {
	return r.Expired + r.Evicted
}

// EnforceBounds 나이 제한과 크기 제한을 차례로 적용한 새 슬라이스를 반환한다.
//
// 1. 나이가 Retention 을 초과한 드로잉 제거.
// 2. 남은 목록의 JSON 크기가 MaxBytes 를 넘으면 timestamp 오름차순(같은 값은
//    기존 순서 유지)으로 정렬한 뒤 TargetBytes 이하가 되거나 비워질 때까지
//    가장 오래된 것부터 제거.
//
// 입력 슬라이스는 수정하지 않는다.
func EnforceBounds(drawings []model.Drawing, b Bounds, now time.Time) ([]model.Drawing, EnforceResult) {
	var res EnforceResult

	valid := make([]model.Drawing, 0, len(drawings))
	for _, d := range drawings {
		if b.Retention > 0 && d.Age(now) > b.Retention {
			res.Expired++
			continue
		}
		valid = append(valid, d)
	}

	sizes := make([]int, len(valid))
	for i, d := range valid {
		sizes[i] = encodedSize(d)
	}
	total := sliceSize(sizes)
	res.BytesBefore = total

	if b.MaxBytes <= 0 || total <= b.MaxBytes {
		res.BytesAfter = total
		return valid, res
	}

	order := make([]int, len(valid))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return valid[order[i]].Timestamp < valid[order[j]].Timestamp
	})

	sorted := make([]model.Drawing, len(valid))
	sortedSizes := make([]int, len(valid))
	for i, idx := range order {
		sorted[i] = valid[idx]
		sortedSizes[i] = sizes[idx]
	}

	drop := 0
	remaining := total
	for drop < len(sorted) && remaining > b.TargetBytes {
		remaining -= sortedSizes[drop]
		if len(sorted)-drop > 1 {
			remaining-- // separator
		}
		drop++
	}
	res.Evicted = drop
	res.BytesAfter = remaining

	return sorted[drop:], res
}

// EncodedSize drawings 를 JSON 배열로 직렬화했을 때의 바이트 수
func EncodedSize(drawings []model.Drawing) int {
	sizes := make([]int, len(drawings))
	for i, d := range drawings {
		sizes[i] = encodedSize(d)
	}
	return sliceSize(sizes)
}

func encodedSize(d model.Drawing) int {
	data, err := json.Marshal(d)
	if err != nil {
		return 0
	}
	return len(data)
}

// sliceSize "[" + 원소들을 "," 로 연결 + "]" 의 길이
func sliceSize(sizes []int) int {
	total := 2
	for i, s := range sizes {
		if i > 0 {
			total++
		}
		total += s
	}
	return total
}
