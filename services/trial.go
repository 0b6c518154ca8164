package services

import (
	"context"
	"errors"
	"time"

	"agent-optimus/models"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

// TrialService is the admin-only trial activation call.
type TrialService struct {
	users  storage.UserStore
	logger *utils.Logger
	now    func() time.Time
}

func NewTrialService(users storage.UserStore, logger *utils.Logger) *TrialService {
	return &TrialService{users: users, logger: logger, now: time.Now}
}

// ActivateTrial sets targetUserID's status to active. The caller must hold
// the admin role.
func (s *TrialService) ActivateTrial(ctx context.Context, caller *models.Caller, targetUserID string) (*CallResult, error) {
	if caller == nil || caller.ID == "" {
		return nil, newError(CodeUnauthenticated, "You must be logged in.", nil)
	}

	profile, err := s.users.GetUser(ctx, caller.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error("[trial] Loading profile of %s failed: %v", caller.ID, err)
		return nil, newError(CodeInternal, "Could not activate trial.", err)
	}
	if profile == nil || profile.Role != models.RoleAdmin {
		return nil, newError(CodePermissionDenied, "Only admins can activate trials.", nil)
	}

	if targetUserID == "" {
		return nil, newError(CodeInvalidArgument, "Missing userId.", nil)
	}

	err = s.users.ActivateTrial(ctx, targetUserID, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newError(CodeNotFound, "User not found.", err)
	}
	if err != nil {
		s.logger.Error("[trial] Activating trial for %s failed: %v", targetUserID, err)
		return nil, newError(CodeInternal, "Could not activate trial.", err)
	}

	s.logger.Info("[trial] %s activated trial for %s", caller.ID, targetUserID)
	return &CallResult{Success: true, Message: "Trial activated for user " + targetUserID + "."}, nil
}
