package memory

import (
	"context"

	"polls-service/internal/domain"
)

// StaticSchemaLoader is a loader backed by an in-memory map (useful for tests/demos).
type StaticSchemaLoader struct {
	schemas map[int64]domain.PollSchema
}

func NewStaticSchemaLoader(schemas ...domain.PollSchema) *StaticSchemaLoader {
	byID := make(map[int64]domain.PollSchema, len(schemas))
	for _, s := range schemas {
		byID[s.PollID] = s
	}
	return &StaticSchemaLoader{schemas: byID}
}

func (l *StaticSchemaLoader) LoadSchema(_ context.Context, pollID int64) (domain.PollSchema, error) {
	if schema, ok := l.schemas[pollID]; ok {
		return schema, nil
	}
	return domain.PollSchema{}, domain.ErrPollNotFound
}
