package model

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LegacyThreshold 좌표가 이 값을 넘으면 정규화 이전(픽셀 단위) 데이터로 간주
const LegacyThreshold = 1.1

// Point 정규화된 캔버스 좌표 (0~1, 정사각형 캔버스 한 변 기준)
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color"`
	Size  float64 `json:"size"`
}

// Stroke pointer-down 부터 pointer-up 까지의 연속된 점 목록
type Stroke []Point

// Color 스트로크 색상 (첫 점 기준)
func (s Stroke) Color() string {
	if len(s) == 0 {
		return ""
	}
	return s[0].Color
}

// Size 스트로크 굵기 (첫 점 기준)
func (s Stroke) Size() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[0].Size
}

// Drawing 저장소에 영속되는 단위
type Drawing struct {
	ID        string   `json:"id"`
	Data      []Stroke `json:"data"`
	Timestamp int64    `json:"timestamp"`          // Unix milliseconds
	StrokeID  string   `json:"strokeId,omitempty"` // 저장 요청의 correlation id
}

// Time 생성 시각
func (d Drawing) Time() time.Time {
	return time.UnixMilli(d.Timestamp)
}

// Age now 기준 경과 시간
func (d Drawing) Age(now time.Time) time.Duration {
	return now.Sub(d.Time())
}

// FirstPoint 첫 번째 스트로크의 첫 점
func (d Drawing) FirstPoint() (Point, bool) {
	if len(d.Data) == 0 || len(d.Data[0]) == 0 {
		return Point{}, false
	}
	return d.Data[0][0], true
}

// NewDrawingID 시간 + 랜덤 suffix 형태의 고유 ID 생성 (예: 1700000000000-k3j9x0a1b)
func NewDrawingID(now time.Time) string {
	u := uuid.New()
	suffix := new(big.Int).SetBytes(u[:]).Text(36)
	for len(suffix) < 9 {
		suffix = "0" + suffix
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix[len(suffix)-9:])
}

// NormalizeDrawing 레거시(픽셀 좌표) 드로잉을 0~1 좌표로 변환
//
// x 또는 y 중 하나라도 LegacyThreshold 를 넘으면 드로잉 전체의 최대 좌표로
// 모든 x, y, size 를 나눈다. 정사각형 캔버스를 가정한 근사 변환이다.
// 변환이 일어나면 true 를 반환한다.
func NormalizeDrawing(d Drawing) (Drawing, bool) {
	maxCoord := 0.0
	for _, stroke := range d.Data {
		for _, p := range stroke {
			if p.X > maxCoord {
				maxCoord = p.X
			}
			if p.Y > maxCoord {
				maxCoord = p.Y
			}
		}
	}
	if maxCoord <= LegacyThreshold {
		return d, false
	}

	out := d
	out.Data = make([]Stroke, len(d.Data))
	for i, stroke := range d.Data {
		scaled := make(Stroke, len(stroke))
		for j, p := range stroke {
			scaled[j] = Point{
				X:     p.X / maxCoord,
				Y:     p.Y / maxCoord,
				Color: p.Color,
				Size:  p.Size / maxCoord,
			}
		}
		out.Data[i] = scaled
	}
	return out, true
}

// NormalizeDrawings 목록 전체에 NormalizeDrawing 적용, 변환된 개수 반환
func NormalizeDrawings(drawings []Drawing) ([]Drawing, int) {
	out := make([]Drawing, len(drawings))
	migrated := 0
	for i, d := range drawings {
		nd, changed := NormalizeDrawing(d)
		if changed {
			migrated++
		}
		out[i] = nd
	}
	return out, migrated
}

// StrokeID 연결 ID 를 포함한 스트로크 식별자 생성
func StrokeID(connID string, seq uint64) string {
	return fmt.Sprintf("%s:%d", connID, seq)
}

// OwnerOf 스트로크 식별자에서 연결 ID 추출 (형식이 아니면 빈 문자열)
func OwnerOf(strokeID string) string {
	idx := strings.LastIndex(strokeID, ":")
	if idx <= 0 {
		return ""
	}
	return strokeID[:idx]
}
