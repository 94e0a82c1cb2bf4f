package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoDocument 영속 저장소에 아직 문서가 없음
var ErrNoDocument = errors.New("no stored document")

// Backend 드로잉 목록 JSON 문서를 읽고 쓰는 영속 계층
type Backend interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Pinger 상태 확인을 지원하는 백엔드
type Pinger interface {
	Ping(ctx context.Context) error
}

// FileBackend 로컬 JSON 파일 백엔드
type FileBackend struct {
	path string
}

// NewFileBackend 파일 백엔드 생성 (상위 디렉터리가 없으면 생성)
func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileBackend{path: path}, nil
}

// Name 백엔드 이름
func (b *FileBackend) Name() string {
	return "file:" + b.path
}

// Path 문서 파일 경로
func (b *FileBackend) Path() string {
	return b.path
}

// Read 파일 전체 읽기
func (b *FileBackend) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}
	return data, nil
}

// Write 임시 파일에 쓴 뒤 rename 으로 교체 (부분 기록 방지)
func (b *FileBackend) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", b.path, err)
	}
	return nil
}

// Ping 데이터 디렉터리 접근 가능 여부
func (b *FileBackend) Ping(ctx context.Context) error {
	_, err := os.Stat(filepath.Dir(b.path))
	return err
}
