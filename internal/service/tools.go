package service

import (
	"regexp"
	"strings"

	"github.com/UnendingLoop/ImageEvents/internal/model"
)

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	// без limit отдаем весь список; страницы только при явном limit
	if req.Page <= 0 || req.Limit <= 0 {
		req.Page = 1
	}
	switch {
	case req.Limit <= 0:
		req.Limit = 0
	case req.Limit > model.MaxPageSize:
		req.Limit = model.MaxPageSize
	}

	// Валидируем поле типа сортировки
	req.Sort = strings.TrimSpace(strings.ToLower(req.Sort))
	switch {
	case req.Sort == model.ByID:
		req.Sort = "id"
	case strings.Contains(req.Sort, model.ByTitle):
		req.Sort = "title"
	default:
		req.Sort = "created_at" // по дефолту ставим сортировку по времени создания
	}

	// Валадируем порядок
	req.Order = strings.TrimSpace(strings.ToLower(req.Order))
	switch {
	case strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	default:
		req.Order = "DESC" // по дефолту ставим сортировку "новое-выше"
	}
}

var resolutionPattern = regexp.MustCompile(`^\d+x\d+$`)

// validatePatch - пустой патч допустим: воркер только обновит updated_at
func validatePatch(p model.ImagePatch) error {
	if p.Title != nil && (strings.TrimSpace(*p.Title) == "" || len(*p.Title) > 255) {
		return model.ErrInvalidPatch
	}
	if p.Resolution != nil && !resolutionPattern.MatchString(*p.Resolution) {
		return model.ErrInvalidPatch
	}
	if p.Size != nil && *p.Size < 0 {
		return model.ErrInvalidPatch
	}
	return nil
}
