package model

import (
	"time"
)

// CanvasDocumentDrawings 드로잉 목록 문서 이름
const CanvasDocumentDrawings = "drawings"

// CanvasDocument 드로잉 목록 전체를 담는 단일 JSON 문서 (postgres 백엔드)
type CanvasDocument struct {
	Name      string    `gorm:"primaryKey;size:64" json:"name"`
	Data      string    `gorm:"type:jsonb;not null" json:"data"` // JSON array of drawings
	Bytes     int       `gorm:"not null;default:0" json:"bytes"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CanvasDocument) TableName() string {
	return "canvas_documents"
}
