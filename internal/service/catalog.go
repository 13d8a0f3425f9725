package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmeshcher/barbershop-ledger/internal/model"
	"github.com/mmeshcher/barbershop-ledger/internal/validation"
)

func validateClient(name, contact string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("%w: client name is empty", model.ErrValidation)
	}
	contact = strings.TrimSpace(contact)
	if !validation.IsValidContact(contact) {
		return "", "", fmt.Errorf("%w: contact %q contains control characters", model.ErrValidation, contact)
	}
	return name, contact, nil
}

func validateService(name string, priceCents int64) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: service name is empty", model.ErrValidation)
	}
	if priceCents < 0 {
		return "", fmt.Errorf("%w: price must not be negative", model.ErrValidation)
	}
	return name, nil
}

// AddClient регистрирует клиента в разделе.
func (s *Service) AddClient(ctx context.Context, partitionID int64, name, contact string) (int64, error) {
	name, contact, err := validateClient(name, contact)
	if err != nil {
		return 0, err
	}
	return s.repo.CreateClient(ctx, partitionID, name, contact)
}

// UpdateClient изменяет данные клиента.
func (s *Service) UpdateClient(ctx context.Context, partitionID int64, c model.Client) error {
	name, contact, err := validateClient(c.Name, c.Contact)
	if err != nil {
		return err
	}
	c.Name, c.Contact = name, contact
	return s.repo.UpdateClient(ctx, partitionID, c)
}

// RemoveClient удаляет клиента. Записи, ссылающиеся на него, не проверяются.
func (s *Service) RemoveClient(ctx context.Context, partitionID, id int64) error {
	return s.repo.DeleteClient(ctx, partitionID, id)
}

// ListClients возвращает клиентов раздела в порядке добавления.
func (s *Service) ListClients(ctx context.Context, partitionID int64) ([]model.Client, error) {
	return s.repo.ListClients(ctx, partitionID)
}

// AddService добавляет услугу в прайс-лист.
func (s *Service) AddService(ctx context.Context, partitionID int64, name string, priceCents int64) (int64, error) {
	name, err := validateService(name, priceCents)
	if err != nil {
		return 0, err
	}
	return s.repo.CreateService(ctx, partitionID, name, priceCents)
}

// UpdateService изменяет название и цену услуги. Уже проведённые поступления не меняются.
func (s *Service) UpdateService(ctx context.Context, partitionID int64, svc model.Service) error {
	name, err := validateService(svc.Name, svc.PriceCents)
	if err != nil {
		return err
	}
	svc.Name = name
	return s.repo.UpdateService(ctx, partitionID, svc)
}

// RemoveService удаляет услугу.
func (s *Service) RemoveService(ctx context.Context, partitionID, id int64) error {
	return s.repo.DeleteService(ctx, partitionID, id)
}

// ListServices возвращает услуги раздела.
func (s *Service) ListServices(ctx context.Context, partitionID int64) ([]model.Service, error) {
	return s.repo.ListServices(ctx, partitionID)
}
