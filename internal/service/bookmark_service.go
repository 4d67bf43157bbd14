package service

import (
	"context"
	"errors"
	"portfolio-assistant/internal/model"
	"portfolio-assistant/internal/repository"
	"portfolio-assistant/pkg/log"
)

// ErrUnknownProject 表示要收藏的项目不在个人资料中。
var ErrUnknownProject = errors.New("unknown project")

// BookmarkService 定义了项目收藏的业务接口。
type BookmarkService interface {
	// Toggle 切换收藏状态，返回切换后的状态。
	Toggle(ctx context.Context, visitorID, projectID string) (bool, error)
	List(ctx context.Context, visitorID string) ([]string, error)
}

type bookmarkService struct {
	repo    repository.BookmarkRepository
	profile *model.Profile
	locks   keyedMutex
}

// NewBookmarkService 创建 BookmarkService。
func NewBookmarkService(repo repository.BookmarkRepository, profile *model.Profile) BookmarkService {
	return &bookmarkService{repo: repo, profile: profile}
}

func (s *bookmarkService) Toggle(ctx context.Context, visitorID, projectID string) (bool, error) {
	if !s.knownProject(projectID) {
		return false, ErrUnknownProject
	}

	unlock := s.locks.lock(visitorID)
	defer unlock()

	ids, err := s.List(ctx, visitorID)
	if err != nil {
		return false, err
	}

	bookmarked := true
	next := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		if id == projectID {
			bookmarked = false
			continue
		}
		next = append(next, id)
	}
	if bookmarked {
		next = append(next, projectID)
	}

	if err := s.repo.Save(ctx, visitorID, next); err != nil {
		return false, err
	}
	return bookmarked, nil
}

func (s *bookmarkService) List(ctx context.Context, visitorID string) ([]string, error) {
	ids, err := s.repo.Get(ctx, visitorID)
	if errors.Is(err, repository.ErrCorruptData) {
		log.Warnw("收藏数据已损坏，按空列表处理", "visitorId", visitorID, "error", err)
		return []string{}, nil
	}
	return ids, err
}

func (s *bookmarkService) knownProject(projectID string) bool {
	for _, p := range s.profile.Projects {
		if p.ID == projectID {
			return true
		}
	}
	return false
}
