package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/storage"
)

// Registry управляет наборами зарегистрированных пользователей,
// получателей уведомлений и адресов пересылки.
type Registry interface {
	Register(ctx context.Context, principal string) (bool, error)
	IsRegistered(ctx context.Context, principal string) (bool, error)

	AddNotify(ctx context.Context, principal string) error
	RemoveNotify(ctx context.Context, principal string) (bool, error)
	NotifyList(ctx context.Context) ([]string, error)
	Audience(ctx context.Context) ([]string, error)

	AddForward(ctx context.Context, rawURL string) (int, error)
	RemoveForward(ctx context.Context, urlOrIndex string) (string, int, error)
	ForwardList(ctx context.Context) ([]string, error)
	ClearForward(ctx context.Context) (int, error)
}

type RegistryService struct {
	repo storage.RegistryRepository
	log  *slog.Logger
}

func NewRegistryService(repo storage.RegistryRepository, log *slog.Logger) *RegistryService {
	return &RegistryService{repo: repo, log: log}
}

// ValidatePrincipal принимает только числовые идентификаторы чатов.
func ValidatePrincipal(principal string) (string, error) {
	p := strings.TrimSpace(principal)
	if _, err := strconv.ParseInt(p, 10, 64); err != nil {
		return "", custom_err.ErrInvalidInput
	}
	return p, nil
}

// ValidateForwardURL требует абсолютный http(s) адрес с хостом.
func ValidateForwardURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", custom_err.ErrInvalidURL
	}
	return trimmed, nil
}

func (s *RegistryService) Register(ctx context.Context, principal string) (bool, error) {
	const op = "service.Register"

	added, err := s.repo.Add(ctx, models.RegistryRegistered, principal)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if added {
		s.log.Info("пользователь зарегистрирован", slog.String("principal", principal))
	}
	return added, nil
}

func (s *RegistryService) IsRegistered(ctx context.Context, principal string) (bool, error) {
	const op = "service.IsRegistered"

	ok, err := s.repo.Contains(ctx, models.RegistryRegistered, principal)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}

func (s *RegistryService) AddNotify(ctx context.Context, principal string) error {
	const op = "service.AddNotify"

	p, err := ValidatePrincipal(principal)
	if err != nil {
		return err
	}
	if _, err := s.repo.Add(ctx, models.RegistryNotified, p); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *RegistryService) RemoveNotify(ctx context.Context, principal string) (bool, error) {
	const op = "service.RemoveNotify"

	p, err := ValidatePrincipal(principal)
	if err != nil {
		return false, err
	}
	removed, err := s.repo.Remove(ctx, models.RegistryNotified, p)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return removed, nil
}

func (s *RegistryService) NotifyList(ctx context.Context) ([]string, error) {
	const op = "service.NotifyList"

	list, err := s.repo.List(ctx, models.RegistryNotified)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Audience возвращает подписчиков, которые также зарегистрированы через /start.
func (s *RegistryService) Audience(ctx context.Context) ([]string, error) {
	const op = "service.Audience"

	notified, err := s.repo.List(ctx, models.RegistryNotified)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	audience := make([]string, 0, len(notified))
	for _, p := range notified {
		ok, err := s.repo.Contains(ctx, models.RegistryRegistered, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			audience = append(audience, p)
		}
	}
	return audience, nil
}

// AddForward добавляет адрес и возвращает общее число адресов.
func (s *RegistryService) AddForward(ctx context.Context, rawURL string) (int, error) {
	const op = "service.AddForward"

	u, err := ValidateForwardURL(rawURL)
	if err != nil {
		return 0, err
	}
	if _, err := s.repo.Add(ctx, models.RegistryForward, u); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	count, err := s.repo.Count(ctx, models.RegistryForward)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("добавлен адрес пересылки", slog.String("url", u))
	return count, nil
}

// RemoveForward удаляет адрес по номеру в списке (с 1) или по точному совпадению.
// Возвращает удалённый адрес и число оставшихся.
func (s *RegistryService) RemoveForward(ctx context.Context, urlOrIndex string) (string, int, error) {
	const op = "service.RemoveForward"

	input := strings.TrimSpace(urlOrIndex)
	if input == "" {
		return "", 0, custom_err.ErrInvalidInput
	}

	list, err := s.repo.List(ctx, models.RegistryForward)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}

	target := ""
	if idx, err := strconv.Atoi(input); err == nil && idx >= 1 && idx <= len(list) {
		target = list[idx-1]
	} else {
		for _, u := range list {
			if u == input {
				target = u
				break
			}
		}
	}
	if target == "" {
		return "", len(list), custom_err.ErrNotFound
	}

	removed, err := s.repo.Remove(ctx, models.RegistryForward, target)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}
	if !removed {
		return "", len(list), custom_err.ErrNotFound
	}

	count, err := s.repo.Count(ctx, models.RegistryForward)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("удалён адрес пересылки", slog.String("url", target))
	return target, count, nil
}

func (s *RegistryService) ForwardList(ctx context.Context) ([]string, error) {
	const op = "service.ForwardList"

	list, err := s.repo.List(ctx, models.RegistryForward)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *RegistryService) ClearForward(ctx context.Context) (int, error) {
	const op = "service.ClearForward"

	count, err := s.repo.Clear(ctx, models.RegistryForward)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("адреса пересылки очищены", slog.Int("count", count))
	return count, nil
}
