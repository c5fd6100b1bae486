package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/repository"
	"github.com/maheshrc27/dmflow/internal/transfer"
)

const defaultFlowName = "Untitled Automation"

type FlowService interface {
	Save(ctx context.Context, in *transfer.FlowInput) (*models.Flow, error)
	List(ctx context.Context) ([]*models.Flow, error)
	Toggle(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
}

type flowService struct {
	fr repository.FlowRepository
}

func NewFlowService(fr repository.FlowRepository) FlowService {
	return &flowService{
		fr: fr,
	}
}

func (s *flowService) Save(ctx context.Context, in *transfer.FlowInput) (*models.Flow, error) {
	if in == nil {
		err := fmt.Errorf("%w: flow is empty", ErrInvalidInput)
		slog.Info(err.Error())
		return nil, err
	}

	flow := &models.Flow{
		ID:          strings.TrimSpace(in.ID),
		Name:        strings.TrimSpace(in.Name),
		IsActive:    true,
		TriggerType: models.TriggerType(strings.TrimSpace(in.TriggerType)),
		Action:      actionFromInput(in.Action),
	}
	if flow.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		flow.ID = id
	}
	if flow.Name == "" {
		flow.Name = defaultFlowName
	}
	if flow.TriggerType == "" {
		flow.TriggerType = models.TriggerComment
	}
	if !flow.TriggerType.Valid() {
		err := fmt.Errorf("%w: unknown trigger type %q", ErrInvalidInput, in.TriggerType)
		slog.Info(err.Error())
		return nil, err
	}
	if kw := strings.TrimSpace(in.TriggerKeyword); kw != "" {
		flow.TriggerKeyword = &kw
	}
	if mediaID := strings.TrimSpace(in.AttachedMediaID); mediaID != "" {
		flow.AttachedMediaID = &mediaID
	}

	if err := s.fr.Save(ctx, flow); err != nil {
		return nil, err
	}

	// is_active of an existing flow survives the save
	stored, err := s.fr.GetByID(ctx, flow.ID)
	if err != nil {
		return nil, err
	}
	return stored.OrElse(flow), nil
}

func actionFromInput(in transfer.ActionInput) models.Action {
	if in.HookText != "" {
		return models.HookVerifyRewardAction{
			HookText:            in.HookText,
			VerificationKeyword: strings.TrimSpace(in.VerificationKeyword),
			IsFollowGated:       in.IsFollowGated,
			GateText:            in.GateText,
			RewardText:          in.RewardText,
			RewardLink:          strings.TrimSpace(in.RewardLink),
		}
	}
	reply := in.ReplyText
	if reply == "" {
		reply = in.DMText
	}
	return models.SimpleAction{ReplyText: reply}
}

func (s *flowService) List(ctx context.Context) ([]*models.Flow, error) {
	return s.fr.List(ctx)
}

func (s *flowService) Toggle(ctx context.Context, id string) error {
	ok, err := s.fr.Toggle(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("flow %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (s *flowService) Remove(ctx context.Context, id string) error {
	ok, err := s.fr.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("flow %s: %w", id, repository.ErrNotFound)
	}
	return nil
}
