package progress

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository определяет операции хранения учеников.
type UserRepository interface {
	// FindByID возвращает ученика по ID.
	// Возвращает ErrUserNotFound, если ученика нет.
	FindByID(ctx context.Context, id uuid.UUID) (*UserEntity, error)

	// Insert сохраняет нового ученика и возвращает сохранённую сущность.
	// Возвращает ErrUserAlreadyExists при повторной вставке того же ID.
	Insert(ctx context.Context, user *UserEntity) (*UserEntity, error)

	// Update перезаписывает ученика, если его версия не изменилась с момента чтения.
	// При успехе увеличивает user.Version.
	// Возвращает ErrUserNotFound, если ученика больше нет,
	// и ErrUserConflict, если запись была изменена параллельно.
	Update(ctx context.Context, user *UserEntity) error

	// ListIDs возвращает идентификаторы всех учеников.
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}
