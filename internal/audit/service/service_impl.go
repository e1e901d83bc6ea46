package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/propsight/propsight/internal/audit/domain"
	"github.com/propsight/propsight/internal/clock"
	"github.com/propsight/propsight/pkg/db/option"
	"github.com/propsight/propsight/pkg/repository"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  repository.Repository[auditdomain.AuditLog]
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  repository.ProvideStore[auditdomain.AuditLog](p.DB),
	}
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	actorType := strings.TrimSpace(entry.ActorType)
	if actorType == "" {
		actorType = auditdomain.ActorTypeSystem
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	row := auditdomain.AuditLog{
		ID:           s.genID.Generate(),
		ActorType:    actorType,
		ActorID:      strings.TrimSpace(entry.ActorID),
		Action:       action,
		TargetUserID: strings.TrimSpace(entry.TargetUserID),
		Reason:       strings.TrimSpace(entry.Reason),
		Metadata:     datatypes.JSONMap(payload),
		CreatedAt:    s.clock.Now(),
	}

	if err := s.repo.Create(ctx, &row); err != nil {
		s.log.Error("record audit entry", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) Recent(ctx context.Context, limit int) ([]*auditdomain.AuditLog, error) {
	if limit <= 0 || limit > 250 {
		limit = 50
	}
	return s.repo.Find(ctx, &auditdomain.AuditLog{},
		option.WithOrder("created_at DESC"),
		option.WithLimit(limit),
	)
}
