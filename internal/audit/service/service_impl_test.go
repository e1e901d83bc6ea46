package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/propsight/propsight/internal/audit/domain"
	"github.com/propsight/propsight/internal/clock"
)

func setupAudit(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&auditdomain.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	svc := NewService(Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: fc})
	return svc, fc
}

func TestRecordAndRecent(t *testing.T) {
	svc, fc := setupAudit(t)
	ctx := context.Background()

	actions := []string{auditdomain.ActionPlanChange, auditdomain.ActionBonusCredits, auditdomain.ActionMonthlyReset}
	for _, action := range actions {
		err := svc.Record(ctx, auditdomain.Entry{
			ActorType:    auditdomain.ActorTypeAdmin,
			ActorID:      "admin-1",
			Action:       action,
			TargetUserID: "user-1",
			Metadata:     map[string]any{"note": action},
		})
		if err != nil {
			t.Fatalf("record %s: %v", action, err)
		}
		fc.Advance(time.Minute)
	}

	recent, err := svc.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent = %d entries, want 2", len(recent))
	}
	// Newest first.
	if recent[0].Action != auditdomain.ActionMonthlyReset {
		t.Errorf("recent[0] = %s, want monthly_reset", recent[0].Action)
	}
	if recent[1].Action != auditdomain.ActionBonusCredits {
		t.Errorf("recent[1] = %s, want bonus_credits", recent[1].Action)
	}
}

func TestRecordDefaultsActorType(t *testing.T) {
	svc, _ := setupAudit(t)
	ctx := context.Background()

	if err := svc.Record(ctx, auditdomain.Entry{Action: auditdomain.ActionMonthlyReset}); err != nil {
		t.Fatalf("record: %v", err)
	}
	recent, err := svc.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if recent[0].ActorType != auditdomain.ActorTypeSystem {
		t.Errorf("actor type = %q, want system default", recent[0].ActorType)
	}
}

func TestRecordRejectsBlankAction(t *testing.T) {
	svc, _ := setupAudit(t)

	err := svc.Record(context.Background(), auditdomain.Entry{Action: "   "})
	if !errors.Is(err, auditdomain.ErrInvalidAction) {
		t.Fatalf("err = %v, want ErrInvalidAction", err)
	}
}
