package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rswarnkar/converse/internal/models"
	"github.com/rswarnkar/converse/internal/repositories"
)

type CallService struct {
	callRepo repositories.CallRecordRepository
}

func NewCallService(callRepo repositories.CallRecordRepository) *CallService {
	return &CallService{callRepo: callRepo}
}

func (s *CallService) CreateCallRecord(ctx context.Context, record *models.CallRecord) error {
	return s.callRepo.Create(ctx, record)
}

func (s *CallService) UpdateCallStatus(ctx context.Context, id uuid.UUID, status models.CallStatus) error {
	return s.callRepo.UpdateStatus(ctx, id, status, 0)
}

func (s *CallService) GetCallHistory(ctx context.Context, userID uuid.UUID) ([]*models.CallRecord, error) {
	return s.callRepo.HistoryForUser(ctx, userID)
}
