package domain

import "context"

// TagRepository persists this agent's own tag set so it survives process
// restarts. Each edge agent owns exactly one local store — there is no
// cross-agent scoping, unlike the central server's Postgres-backed
// TagRepository.
type TagRepository interface {
	Save(ctx context.Context, tag *Tag) error
	FindByID(ctx context.Context, id TagID) (*Tag, bool, error)
	FindAll(ctx context.Context) ([]*Tag, error)
	FindEnabled(ctx context.Context) ([]*Tag, error)
	Delete(ctx context.Context, id TagID) error
}
