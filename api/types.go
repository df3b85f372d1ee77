package api

import "strings"

const (
	CmdPrefix    = "cmd.transform."
	EvtPrefix    = "evt.transform."
	ReportSuffix = "_report"

	MsgTypeBatch       = "cmd.transform.batch"
	MsgTypeGetKinds    = "cmd.transform.get_kinds"
	MsgTypeErrorReport = "evt.transform.error_report"

	StatusOk    = "ok"
	StatusError = "error"
)

// Message is a request envelope:
// {"type":"cmd.transform.<kind>","id":"<optional request id>","val":<service payload>}
type Message struct {
	Type string
	ID   string
	Val  interface{}
}

// ResponseMessage is a response envelope , Type is "evt.transform.<kind>_report".
type ResponseMessage struct {
	Type   string      `json:"type"`
	ID     string      `json:"id"`
	Status string      `json:"status"`
	Error  string      `json:"error,omitempty"`
	Val    interface{} `json:"val,omitempty"`
}

// ReportType converts request type into response type.
func ReportType(msgType string) string {
	if kind := strings.TrimPrefix(msgType, CmdPrefix); kind != msgType && kind != "" {
		return EvtPrefix + kind + ReportSuffix
	}
	return MsgTypeErrorReport
}
