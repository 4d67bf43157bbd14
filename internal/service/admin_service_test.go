package service

import (
	"context"
	"portfolio-assistant/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memExchangeRepo struct {
	created   []model.Exchange
	lastLimit int
	lastID    string
}

func (r *memExchangeRepo) Create(exchange *model.Exchange) error {
	exchange.ID = uint(len(r.created) + 1)
	r.created = append(r.created, *exchange)
	return nil
}

func (r *memExchangeRepo) List(visitorID string, limit int) ([]model.Exchange, error) {
	r.lastID, r.lastLimit = visitorID, limit
	return r.created, nil
}

func TestAdminService_ListExchangesClampsLimit(t *testing.T) {
	repo := &memExchangeRepo{}
	NewExchangeRecorder(repo).Record(context.Background(), &model.Exchange{VisitorID: "v", Question: "q", Answer: "a"})
	svc := NewAdminService(repo, newMemConversationRepo(), NewAnalyticsService(newMemAnalyticsRepo(), nil))

	dtos, err := svc.ListExchanges("v", 0)
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	assert.Equal(t, "q", dtos[0].Question)
	assert.Equal(t, defaultExchangeLimit, repo.lastLimit)
	assert.Equal(t, "v", repo.lastID)

	_, err = svc.ListExchanges("", 10_000)
	require.NoError(t, err)
	assert.Equal(t, maxExchangeLimit, repo.lastLimit)
}

func TestAdminService_WithoutArchive(t *testing.T) {
	svc := NewAdminService(nil, newMemConversationRepo(), NewAnalyticsService(newMemAnalyticsRepo(), nil))
	dtos, err := svc.ListExchanges("", 10)
	require.NoError(t, err)
	assert.Empty(t, dtos)
}

func TestAdminService_ListVisitors(t *testing.T) {
	conv := newMemConversationRepo()
	conv.data["a"] = makeTurns(1)
	svc := NewAdminService(nil, conv, NewAnalyticsService(newMemAnalyticsRepo(), nil))

	ids, err := svc.ListVisitors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}
