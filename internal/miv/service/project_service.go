package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/nimo-miv/internal/miv/entity"
	"github.com/bitfantasy/nimo-miv/internal/miv/repository"
	"github.com/google/uuid"
)

type ProjectService struct {
	projectRepo *repository.ProjectRepository
}

func NewProjectService(projectRepo *repository.ProjectRepository) *ProjectService {
	return &ProjectService{projectRepo: projectRepo}
}

type CreateProjectInput struct {
	Code  string `json:"code" binding:"required"`
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

// Create 创建项目，项目编号统一大写
func (s *ProjectService) Create(ctx context.Context, input CreateProjectInput, userID string) (*entity.Project, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if existing, _ := s.projectRepo.FindByCode(ctx, code); existing != nil {
		return nil, fmt.Errorf("项目 %s 已存在", code)
	}

	p := &entity.Project{
		ID:        uuid.New().String(),
		Code:      code,
		Name:      input.Name,
		Status:    entity.ProjectStatusActive,
		Notes:     input.Notes,
		CreatedBy: userID,
	}
	if err := s.projectRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("创建项目失败: %w", err)
	}
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, id string) (*entity.Project, error) {
	p, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

func (s *ProjectService) List(ctx context.Context, status string) ([]entity.Project, error) {
	return s.projectRepo.List(ctx, status)
}

func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.projectRepo.FindByID(ctx, id); err != nil {
		return ErrProjectNotFound
	}
	return s.projectRepo.Delete(ctx, id)
}
