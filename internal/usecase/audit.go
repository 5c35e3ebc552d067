package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"badgeshop/internal/domain/model"
	repo "badgeshop/internal/repository"

	"gorm.io/datatypes"
)

// nilや変換できない値はnull扱い
func auditJSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func writeAudit(ctx context.Context, r repo.AuditLogRepository, actorID int64, action model.AuditAction, resource model.AuditResourceType, resourceID int64, before, after any) error {
	return r.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		Before:       auditJSON(before),
		After:        auditJSON(after),
		CreatedAt:    time.Now().UTC(),
	})
}

type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

type AuditLogListInput struct {
	Page         int
	Limit        int
	ActorUserID  *int64
	Action       string
	ResourceType string
	ResourceID   *int64
	From         string
	To           string
}

func (u *AuditLogUsecase) List(ctx context.Context, in AuditLogListInput) (ListOutput[model.AuditLog], error) {
	page, limit := pageOrDefault(in.Page, in.Limit)
	f := repo.AuditLogFilter{
		Page:         page,
		Limit:        limit,
		ActorUserID:  in.ActorUserID,
		ResourceType: model.AuditResourceType(strings.ToLower(strings.TrimSpace(in.ResourceType))),
		ResourceID:   in.ResourceID,
	}

	if a := strings.ToUpper(strings.TrimSpace(in.Action)); a != "" {
		f.Action = model.AuditAction(a)
		if !f.Action.Valid() {
			return ListOutput[model.AuditLog]{}, NewHTTPError(http.StatusBadRequest, "invalid action")
		}
	}
	var ok bool
	if strings.TrimSpace(in.From) != "" {
		if f.From, ok = parseDateTimeRFC3339(in.From); !ok {
			return ListOutput[model.AuditLog]{}, NewHTTPError(http.StatusBadRequest, "invalid from")
		}
	}
	if strings.TrimSpace(in.To) != "" {
		if f.To, ok = parseDateTimeRFC3339(in.To); !ok {
			return ListOutput[model.AuditLog]{}, NewHTTPError(http.StatusBadRequest, "invalid to")
		}
	}

	logs, total, err := u.logs.List(ctx, f)
	if err != nil {
		return ListOutput[model.AuditLog]{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return ListOutput[model.AuditLog]{Items: logs, Total: total, Page: page, Limit: limit}, nil
}
