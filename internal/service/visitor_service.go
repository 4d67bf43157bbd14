package service

import (
	"fmt"
	"portfolio-assistant/pkg/token"

	"github.com/google/uuid"
)

// VisitorTokens 是签发给访客的令牌对。
type VisitorTokens struct {
	VisitorID    string `json:"visitorId"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// VisitorService 为匿名访客分配身份。访客 ID 取代浏览器 localStorage 的作用域。
type VisitorService interface {
	Register() (*VisitorTokens, error)
	Refresh(refreshToken string) (*VisitorTokens, error)
}

type visitorService struct {
	jwtManager *token.JWTManager
}

// NewVisitorService 创建 VisitorService。
func NewVisitorService(jwtManager *token.JWTManager) VisitorService {
	return &visitorService{jwtManager: jwtManager}
}

func (s *visitorService) Register() (*VisitorTokens, error) {
	return s.issue(uuid.NewString())
}

func (s *visitorService) Refresh(refreshToken string) (*VisitorTokens, error) {
	claims, err := s.jwtManager.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}
	return s.issue(claims.VisitorID)
}

func (s *visitorService) issue(visitorID string) (*VisitorTokens, error) {
	access, err := s.jwtManager.GenerateToken(visitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(visitorID)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &VisitorTokens{VisitorID: visitorID, Token: access, RefreshToken: refresh}, nil
}
