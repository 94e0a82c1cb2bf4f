package handler

import (
	"github.com/gofiber/fiber/v2"
)

// DrawingsHandler 드로잉 조회 REST 핸들러
type DrawingsHandler struct {
	store DrawingStore
}

// NewDrawingsHandler 생성자
func NewDrawingsHandler(store DrawingStore) *DrawingsHandler {
	return &DrawingsHandler{store: store}
}

// GetDrawings GET /api/drawings
// 보존 기간/용량 제한을 적용한 현재 목록 (빈 목록이면 [])
func (h *DrawingsHandler) GetDrawings(c *fiber.Ctx) error {
	return c.JSON(h.store.GetAll())
}
