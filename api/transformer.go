package api

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/thingsplex/tsiclient/integration/tsdb"
)

// Transformer dispatches request messages into the pipeline and builds report messages.
type Transformer struct {
	pipeline *tsdb.Pipeline
}

func NewTransformer(pipeline *tsdb.Pipeline) *Transformer {
	return &Transformer{pipeline: pipeline}
}

// Handle decodes raw request message , runs it and returns encoded response message.
func (tr *Transformer) Handle(ctx context.Context, data []byte) ([]byte, error) {
	var resp *ResponseMessage
	msg, err := DecodeMessage(data)
	if err != nil {
		log.Error("<api> Wrong message format. Err: ", err.Error())
		resp = errorResponse(MsgTypeErrorReport, "", err)
	} else {
		resp = tr.OnMessage(ctx, msg)
	}
	return json.Marshal(resp)
}

// OnMessage runs single message
func (tr *Transformer) OnMessage(ctx context.Context, msg *Message) *ResponseMessage {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	log.Debugf("<api> New message %s , id = %s", msg.Type, msg.ID)
	switch msg.Type {
	case MsgTypeGetKinds:
		return &ResponseMessage{Type: ReportType(msg.Type), ID: msg.ID, Status: StatusOk, Val: tr.pipeline.Kinds()}
	case MsgTypeBatch:
		return tr.onBatch(ctx, msg)
	}
	req, err := DecodeRequest(msg)
	if err != nil {
		log.Errorf("<api> Request %s can't be decoded. Err: %s", msg.ID, err.Error())
		return errorResponse(ReportType(msg.Type), msg.ID, err)
	}
	resp, err := tr.pipeline.Run(req)
	if err != nil {
		log.Errorf("<api> Request %s failed. Err: %s", msg.ID, err.Error())
		return errorResponse(ReportType(msg.Type), msg.ID, err)
	}
	return &ResponseMessage{Type: ReportType(msg.Type), ID: msg.ID, Status: StatusOk, Val: resp}
}

// onBatch runs list of messages in parallel. Every message gets its own report , batch fails only if it can't be decoded.
// Every batch has its own process , so batch state isn't shared between concurrent batches.
func (tr *Transformer) onBatch(ctx context.Context, msg *Message) *ResponseMessage {
	items, ok := msg.Val.([]interface{})
	if !ok {
		return errorResponse(ReportType(msg.Type), msg.ID, malformed("batch must be an array of messages"))
	}
	reports := make([]*ResponseMessage, len(items))
	var requests []*tsdb.Request
	var positions []int
	for i, item := range items {
		sub, err := messageFromValue(item)
		if err == nil {
			if sub.ID == "" {
				sub.ID = uuid.NewString()
			}
			var req *tsdb.Request
			if req, err = DecodeRequest(sub); err == nil {
				requests = append(requests, req)
				positions = append(positions, i)
				reports[i] = &ResponseMessage{Type: ReportType(sub.Type), ID: sub.ID}
				continue
			}
			reports[i] = errorResponse(ReportType(sub.Type), sub.ID, err)
			continue
		}
		reports[i] = errorResponse(MsgTypeErrorReport, "", err)
	}

	process := tsdb.NewProcess(tr.pipeline)
	results := process.Run(ctx, requests)
	for j, res := range results {
		report := reports[positions[j]]
		if res.Err != nil {
			report.Status, report.Error = StatusError, res.Err.Error()
			continue
		}
		report.Status, report.Val = StatusOk, res.Response
	}
	status := StatusOk
	if process.State() != tsdb.StateCompleted || len(requests) != len(items) {
		status = StatusError
	}
	return &ResponseMessage{Type: ReportType(msg.Type), ID: msg.ID, Status: status, Error: process.LastError(), Val: reports}
}

func errorResponse(msgType, id string, err error) *ResponseMessage {
	return &ResponseMessage{Type: msgType, ID: id, Status: StatusError, Error: err.Error()}
}
