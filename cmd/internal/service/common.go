package service

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"smallcrm/cmd/internal/domain/entity"
	"smallcrm/cmd/internal/utils/apierror"
)

const PageSize = 20

// MaxPage keeps the row offset of the last page inside int32.
const MaxPage = math.MaxInt32 / PageSize

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Page struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func newPage(page int, total int64) Page {
	return Page{
		Page:       page,
		PageSize:   PageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(PageSize))),
	}
}

// parsePage reads a 1-based page number; empty means the first page.
func parsePage(raw string) (int, apierror.ErrorResponse) {
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierror.NewInvalidParamTypeError("page", "int32")
	}
	if page < 1 {
		return 0, apierror.NewInvalidParamError("page", "must be at least 1")
	}
	if page > MaxPage {
		return 0, apierror.NewInvalidParamError("page", "must be at most "+strconv.Itoa(MaxPage))
	}
	return page, nil
}

func parseUUID(name, raw string) (uuid.UUID, apierror.ErrorResponse) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierror.NewInvalidParamTypeError(name, "uuid")
	}
	return id, nil
}

// resolveCaller maps a token subject to a registered, active staff member.
func resolveCaller(ctx context.Context, users UserRepository, sub string) (*entity.User, apierror.ErrorResponse) {
	caller, err := users.FindBySub(ctx, sub)
	if err != nil {
		log.Errorf("failed to find caller (%s) by sub: %v", sub, err)
		return nil, apierror.InternalServerError
	}
	if caller == nil || !caller.IsActive {
		return nil, apierror.UnknownCallerError
	}
	return caller, nil
}

func epochIn(millis int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(millis).In(loc)
}
