package metadata

import (
	"errors"

	"github.com/thingsplex/tsiclient/model"
)

var ErrSchemaNotFound = errors.New("schema not found")

// SchemaRec is the part of an event schema needed to flatten events.
type SchemaRec struct {
	Rid             string
	EventSourceName string
	Properties      []model.SchemaProperty
}

// SchemaStore resolves schema references of events. A store is scoped to one batch of events.
type SchemaStore interface {
	Register(schema model.EventSchema) SchemaRec
	GetSchemaByRid(rid string) (SchemaRec, error)
	Len() int
}
