package usecase

import (
	"context"
	"errors"

	"telemed-appointment-api/internal/converter"
	"telemed-appointment-api/internal/delivery/dto"
	"telemed-appointment-api/internal/delivery/http/middleware"
	"telemed-appointment-api/internal/domain/entity"
	"telemed-appointment-api/internal/domain/repository"
	"telemed-appointment-api/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrInvalidRole    = errors.New("invalid role")
	ErrSelfRoleChange = errors.New("cannot change own role")
)

type AdminUsecase interface {
	GetAllUsers(ctx context.Context) (*dto.UserListResponse, error)
	UpdateUserRole(ctx context.Context, userID uuid.UUID, req *dto.UpdateUserRoleRequest) (*dto.UserResponse, error)
}

type adminUsecase struct {
	db       *gorm.DB
	log      *logrus.Logger
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	audit    service.AuditService
}

func NewAdminUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	audit service.AuditService,
) AdminUsecase {
	return &adminUsecase{
		db:       db,
		log:      log,
		userRepo: userRepo,
		roleRepo: roleRepo,
		audit:    audit,
	}
}

func (u *adminUsecase) GetAllUsers(ctx context.Context) (*dto.UserListResponse, error) {
	users, err := u.userRepo.FindAll(u.db.WithContext(ctx))
	if err != nil {
		u.log.Warnf("Failed to find all users: %+v", err)
		return nil, err
	}

	responses := converter.UsersToResponses(users)
	return &dto.UserListResponse{
		Users: responses,
		Total: len(responses),
	}, nil
}

// UpdateUserRole reassigns a user's role. An admin cannot demote
// themselves, which keeps at least the acting admin in place.
func (u *adminUsecase) UpdateUserRole(ctx context.Context, userID uuid.UUID, req *dto.UpdateUserRoleRequest) (*dto.UserResponse, error) {
	actorID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, errors.New("user not found in context")
	}
	if actorID == userID {
		return nil, ErrSelfRoleChange
	}

	if !entity.ValidRoleID(req.RoleID) {
		return nil, ErrInvalidRole
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	user, err := u.userRepo.FindByID(tx, userID)
	if err != nil {
		u.log.Warnf("Failed to find user %s: %+v", userID, err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	oldRoleID := user.RoleID
	user.RoleID = req.RoleID

	if err := u.userRepo.Update(tx, user); err != nil {
		if isForeignKeyError(err, "role") {
			return nil, ErrInvalidRole
		}
		u.log.Warnf("Failed to update user %s role: %+v", userID, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.audit.Record(&actorID, entity.AuditActionUserRoleChange, entity.JSON{
		"user_id":  userID.String(),
		"old_role": entity.RoleNameByID(oldRoleID),
		"new_role": entity.RoleNameByID(req.RoleID),
	})

	u.log.Infof("User %s role changed from %d to %d by %s", userID, oldRoleID, req.RoleID, actorID)
	return converter.UserToResponse(user), nil
}
