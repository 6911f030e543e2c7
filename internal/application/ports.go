package application

import (
	"context"
	"io"

	"github.com/oksasatya/go-ddd-auth-core/internal/domain/entity"
)

// EmailPublisher enqueues email jobs. helpers.RabbitPublisher satisfies it.
type EmailPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// UserIndexer keeps the user search index in sync. Implemented by the
// search package; nil disables indexing.
type UserIndexer interface {
	IndexUser(ctx context.Context, u *entity.User) error
	DeleteUser(ctx context.Context, id string) error
	SearchUsers(ctx context.Context, q string, size int) ([]entity.PublicUser, error)
}

// AvatarStore uploads avatar images and returns their public URL.
type AvatarStore interface {
	UploadAvatar(ctx context.Context, userID, filename, contentType string, r io.Reader) (string, error)
}
