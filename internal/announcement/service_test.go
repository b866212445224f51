package announcement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/netfrix/backend/internal/model"
)

// mockAnnRepo はAnnouncementRepositoryのモック実装。
type mockAnnRepo struct {
	findByIDFunc   func(ctx context.Context, id string) (*model.Announcement, error)
	listActiveFunc func(ctx context.Context) ([]*model.Announcement, error)
	listFunc       func(ctx context.Context) ([]*model.Announcement, error)
	createFunc     func(ctx context.Context, a *model.Announcement) error
	updateFunc     func(ctx context.Context, a *model.Announcement) error
	deleteFunc     func(ctx context.Context, id string) error
}

func (m *mockAnnRepo) FindByID(ctx context.Context, id string) (*model.Announcement, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockAnnRepo) ListActive(ctx context.Context) ([]*model.Announcement, error) {
	if m.listActiveFunc != nil {
		return m.listActiveFunc(ctx)
	}
	return nil, nil
}

func (m *mockAnnRepo) List(ctx context.Context) ([]*model.Announcement, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockAnnRepo) Create(ctx context.Context, a *model.Announcement) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, a)
	}
	return nil
}

func (m *mockAnnRepo) Update(ctx context.Context, a *model.Announcement) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, a)
	}
	return nil
}

func (m *mockAnnRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestService_Create_SanitizesBody(t *testing.T) {
	var created *model.Announcement
	repo := &mockAnnRepo{
		createFunc: func(ctx context.Context, a *model.Announcement) error {
			created = a
			return nil
		},
	}
	svc := NewService(repo, testLogger())

	_, err := svc.Create(context.Background(), Input{
		Title:    "メンテナンスのお知らせ",
		Body:     `<p>本日<script>alert("xss")</script>メンテナンスを実施します</p>`,
		Type:     model.AnnouncementTypeWarning,
		Priority: model.PriorityHigh,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if strings.Contains(created.Body, "<script>") || strings.Contains(created.Body, "alert") {
		t.Errorf("scriptタグが除去されていない: %q", created.Body)
	}
	if !strings.Contains(created.Body, "メンテナンスを実施します") {
		t.Errorf("本文テキストが失われた: %q", created.Body)
	}
}

func TestService_Create_RemovesEventHandlers(t *testing.T) {
	var created *model.Announcement
	repo := &mockAnnRepo{
		createFunc: func(ctx context.Context, a *model.Announcement) error {
			created = a
			return nil
		},
	}
	svc := NewService(repo, testLogger())

	_, err := svc.Create(context.Background(), Input{
		Title:    "新着",
		Body:     `<img src="x" onerror="alert(1)">新シリーズ配信開始`,
		Type:     model.AnnouncementTypePromo,
		Priority: model.PriorityNormal,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if strings.Contains(created.Body, "onerror") {
		t.Errorf("イベント属性が除去されていない: %q", created.Body)
	}
}

func TestService_Create_EnumValidation(t *testing.T) {
	svc := NewService(&mockAnnRepo{}, testLogger())
	ctx := context.Background()

	tests := []struct {
		name string
		in   Input
	}{
		{"未知のtype", Input{Title: "t", Type: model.AnnouncementType("urgent"), Priority: model.PriorityLow}},
		{"未知のpriority", Input{Title: "t", Type: model.AnnouncementTypeInfo, Priority: model.AnnouncementPriority("max")}},
		{"タイトルなし", Input{Type: model.AnnouncementTypeInfo, Priority: model.PriorityLow}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
				t.Errorf("エラー = %v, want %v", err, model.ErrCodeValidation)
			}
		})
	}
}

func TestService_Update_NotFound(t *testing.T) {
	svc := NewService(&mockAnnRepo{}, testLogger())

	_, err := svc.Update(context.Background(), "missing-id", Input{
		Title:    "t",
		Type:     model.AnnouncementTypeInfo,
		Priority: model.PriorityLow,
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAnnouncementNotFound {
		t.Errorf("エラー = %v, want %v", err, model.ErrCodeAnnouncementNotFound)
	}
}

func TestService_Update_SanitizesBody(t *testing.T) {
	var updated *model.Announcement
	repo := &mockAnnRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Announcement, error) {
			return &model.Announcement{ID: id, Title: "old"}, nil
		},
		updateFunc: func(ctx context.Context, a *model.Announcement) error {
			updated = a
			return nil
		},
	}
	svc := NewService(repo, testLogger())

	_, err := svc.Update(context.Background(), "ann-1", Input{
		Title:    "t",
		Body:     `<a href="javascript:alert(1)">link</a>`,
		Type:     model.AnnouncementTypeInfo,
		Priority: model.PriorityLow,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if strings.Contains(updated.Body, "javascript:") {
		t.Errorf("javascriptスキームが除去されていない: %q", updated.Body)
	}
}
