package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"realtime-canvas/internal/model"
)

// GormBackend canvas_documents 테이블의 한 행에 문서를 저장하는 백엔드
type GormBackend struct {
	db   *gorm.DB
	name string
}

// NewGormBackend 백엔드 생성 (테이블은 database.ConnectDB 에서 AutoMigrate)
func NewGormBackend(db *gorm.DB, name string) *GormBackend {
	if name == "" {
		name = model.CanvasDocumentDrawings
	}
	return &GormBackend{db: db, name: name}
}

// Name 백엔드 이름
func (b *GormBackend) Name() string {
	return "postgres:" + b.name
}

// Read 문서 조회
func (b *GormBackend) Read(ctx context.Context) ([]byte, error) {
	var doc model.CanvasDocument
	err := b.db.WithContext(ctx).Where("name = ?", b.name).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", b.name, err)
	}
	return []byte(doc.Data), nil
}

// Write 문서 upsert
func (b *GormBackend) Write(ctx context.Context, data []byte) error {
	doc := model.CanvasDocument{
		Name:  b.name,
		Data:  string(data),
		Bytes: len(data),
	}
	err := b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "bytes", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", b.name, err)
	}
	return nil
}

// Ping DB 연결 확인
func (b *GormBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
