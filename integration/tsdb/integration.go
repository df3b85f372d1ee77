package tsdb

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/thingsplex/tsiclient/integration/tsdb/storage"
	"github.com/thingsplex/tsiclient/model"
	"github.com/thingsplex/tsiclient/utils"
)

var ErrUnknownRequestKind = errors.New("unknown request kind")

// RowSinkFactory creates sink for rows of one events request.
type RowSinkFactory func(requestID string) (storage.RowSink, error)

// Pipeline is root level container. It selects transformation for every request kind.
type Pipeline struct {
	transforms     map[string]Transform
	timezoneOffset time.Duration
	rollUp         RollUpConfig
	rowSinkFactory RowSinkFactory
	workers        int
	mutex          sync.RWMutex
}

// NewPipeline creates pipeline with default transforms registered.
func NewPipeline(conf *model.Configs) *Pipeline {
	p := &Pipeline{
		transforms:     map[string]Transform{},
		timezoneOffset: time.Duration(conf.TimezoneOffsetMs) * time.Millisecond,
		rollUp:         RollUpConfig{Multiplier: conf.RollUpMultiplier, Offset: conf.RollUpOffset, LatestKey: conf.LatestKey},
		workers:        conf.Workers,
	}
	if p.rollUp.LatestKey == "" {
		p.rollUp.LatestKey = DefaultLatestKey
	}
	if p.workers < 1 {
		p.workers = 1
	}
	p.RegisterTransform(KindAvailability, AvailabilityTransform)
	p.RegisterTransform(KindEvents, EventsTransform)
	p.RegisterTransform(KindAggregates, AggregatesTransform)
	p.RegisterTransform(KindQuery, QueryTransform)
	return p
}

// RegisterTransform adds or replaces transformation of the request kind.
func (p *Pipeline) RegisterTransform(kind string, transform Transform) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.transforms[kind] = transform
}

// Kinds returns sorted list of supported request kinds
func (p *Pipeline) Kinds() []string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	kinds := make([]string, 0, len(p.transforms))
	for k := range p.transforms {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func (p *Pipeline) SetRowSinkFactory(factory RowSinkFactory) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.rowSinkFactory = factory
}

func (p *Pipeline) Workers() int {
	return p.workers
}

// Run transforms single request. Request without ID gets a generated one.
func (p *Pipeline) Run(req *Request) (resp *Response, err error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	p.mutex.RLock()
	transform, ok := p.transforms[req.Kind]
	factory := p.rowSinkFactory
	p.mutex.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownRequestKind, "%q", req.Kind)
	}

	ctx := &TransformContext{requestID: req.ID, timezoneOffset: p.timezoneOffset, rollUp: p.rollUp}
	if factory != nil && req.Kind == KindEvents {
		if ctx.rowSink, err = factory(req.ID); err != nil {
			return nil, err
		}
		defer func() {
			if cerr := ctx.rowSink.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("---PANIC----")
			log.Errorf("<tsdb> Request %s transform Err:%v", req.ID, r)
			debug.PrintStack()
			resp, err = nil, fmt.Errorf("transform of request %s failed: %v", req.ID, r)
		}
	}()

	start := time.Now()
	resp, err = transform(ctx, req)
	if err != nil {
		log.Debugf("<tsdb> Request %s (%s) failed: %s", req.ID, req.Kind, err.Error())
		return nil, err
	}
	resp.RequestID = req.ID
	resp.Kind = req.Kind
	log.Debugf("<tsdb> Request %s (%s) transformed in %s", req.ID, req.Kind, time.Since(start))
	return resp, nil
}

// CsvDirSinkFactory exports rows of every events request into <dir>/<request id>.csv
func CsvDirSinkFactory(dir string) RowSinkFactory {
	return func(requestID string) (storage.RowSink, error) {
		return storage.NewCsvFileStorage(filepath.Join(dir, utils.StripForConcat(requestID)+".csv"))
	}
}

// Boot initializes pipeline
func Boot(mainConfig *model.Configs) (*Pipeline, error) {
	log.Info("<tsdb> Booting transformation pipeline ")
	pipeline := NewPipeline(mainConfig)
	if mainConfig.CsvDir != "" {
		if err := os.MkdirAll(mainConfig.CsvDir, 0755); err != nil {
			log.Error("<tsdb> Can't create csv directory. Err: ", err.Error())
			return nil, err
		}
		pipeline.SetRowSinkFactory(CsvDirSinkFactory(mainConfig.CsvDir))
		log.Info("<tsdb> Event rows are exported to ", mainConfig.CsvDir)
	}
	log.Infof("<tsdb> Pipeline is ready. Kinds = %v , workers = %d", pipeline.Kinds(), pipeline.workers)
	return pipeline, nil
}
