package transport

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope wraps every API response. Data is set on success, Code and Error
// on failure; Meta carries side-channel information for either.
type Envelope struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Data   any    `json:"data,omitempty"`
	Error  any    `json:"error,omitempty"`
	Meta   any    `json:"meta,omitempty"`
}

// AuditMeta reports a committed leg transition whose audit write failed.
type AuditMeta struct {
	Audit      string `json:"audit"`
	AuditError string `json:"audit_error"`
}

func NewSuccess(data, meta any) Envelope {
	return Envelope{Status: StatusSuccess, Data: data, Meta: meta}
}

func NewError(code string, err, meta any) Envelope {
	return Envelope{Status: StatusError, Code: code, Error: err, Meta: meta}
}

// AuditFailed builds the meta block attached to a transition response when
// the audit trail could not be written.
func AuditFailed(err error) AuditMeta {
	return AuditMeta{Audit: "failed", AuditError: err.Error()}
}
