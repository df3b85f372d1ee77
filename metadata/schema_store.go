package metadata

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/thingsplex/tsiclient/model"
)

type MemorySchemaStore struct {
	store map[string]SchemaRec
}

func NewMemorySchemaStore() SchemaStore {
	return &MemorySchemaStore{store: map[string]SchemaRec{}}
}

// Register adds schema to the store. Schema with the same rid is replaced.
func (r *MemorySchemaStore) Register(schema model.EventSchema) SchemaRec {
	props := make([]model.SchemaProperty, len(schema.Properties))
	copy(props, schema.Properties)
	rec := SchemaRec{Rid: schema.Rid, EventSourceName: schema.EventSourceName, Properties: props}
	if _, ok := r.store[schema.Rid]; ok {
		log.Tracef("<schema> Replacing schema %s", schema.Rid)
	}
	r.store[schema.Rid] = rec
	return rec
}

func (r *MemorySchemaStore) GetSchemaByRid(rid string) (SchemaRec, error) {
	rec, ok := r.store[rid]
	if !ok {
		return SchemaRec{}, fmt.Errorf("%w: rid=%q", ErrSchemaNotFound, rid)
	}
	return rec, nil
}

func (r *MemorySchemaStore) Len() int {
	return len(r.store)
}
