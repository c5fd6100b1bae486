package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maheshrc27/dmflow/internal/models"
	"github.com/maheshrc27/dmflow/internal/repository"
)

type SettingsService interface {
	All(ctx context.Context) (map[string]any, error)
	Set(ctx context.Context, key string, value any) error
	Settings(ctx context.Context) (models.Settings, error)
}

type settingsService struct {
	cr repository.ConfigRepository
}

func NewSettingsService(cr repository.ConfigRepository) SettingsService {
	return &settingsService{
		cr: cr,
	}
}

func (s *settingsService) All(ctx context.Context) (map[string]any, error) {
	cfg, err := s.cr.Get(ctx, nil)
	if err != nil {
		return nil, err
	}
	return decodeSettingsBlob(cfg.Settings)
}

// Set writes one key of the settings blob. Other keys, known or not, are
// kept as they are.
func (s *settingsService) Set(ctx context.Context, key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		err := fmt.Errorf("%w: setting key is empty", ErrInvalidInput)
		slog.Info(err.Error())
		return err
	}

	cfg, err := s.cr.Get(ctx, nil)
	if err != nil {
		return err
	}
	blob, err := decodeSettingsBlob(cfg.Settings)
	if err != nil {
		return err
	}
	blob[key] = value

	raw, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	if _, err := models.ParseSettings(string(raw)); err != nil {
		err = fmt.Errorf("%w: setting %q: %v", ErrInvalidInput, key, err)
		slog.Info(err.Error())
		return err
	}

	return s.cr.SetSettings(ctx, nil, string(raw))
}

func (s *settingsService) Settings(ctx context.Context) (models.Settings, error) {
	cfg, err := s.cr.Get(ctx, nil)
	if err != nil {
		return models.Settings{}, err
	}
	settings, err := models.ParseSettings(cfg.Settings)
	if err != nil {
		slog.Warn("settings blob is unreadable, using defaults", "error", err)
		return models.Settings{}, nil
	}
	return settings, nil
}

func decodeSettingsBlob(raw string) (map[string]any, error) {
	blob := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return blob, nil
	}
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return blob, nil
}
