package log

// Attribute keys shared by every component.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldCategory   = "category"
	FieldValue      = "value"
	FieldRecords    = "records"
	FieldWriteMode  = "write_mode"
	FieldChart      = "chart"
)

const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentRecorder = "recorder"
	ComponentWorker   = "worker"
	ComponentBackend  = "backend"
)

const (
	OpAppend  = "append"
	OpReplace = "replace"
	OpLoad    = "load"
	OpRender  = "render"
)

// Values of FieldErrorType, see ErrorType.
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeParse         = "parse_error"
	ErrorTypeIO            = "io_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeInternal      = "internal_error"
)

// Fields collects slog key/value pairs in the order they were added.
type Fields []any

func NewFields() Fields { return make(Fields, 0, 8) }

func (f Fields) With(key string, value any) Fields { return append(f, key, value) }

func (f Fields) WithOperation(op string) Fields { return f.With(FieldOperation, op) }

// WithError adds the message and its ErrorType. A nil err adds nothing.
func (f Fields) WithError(err error) Fields {
	if err == nil {
		return f
	}
	return f.With(FieldError, err.Error()).With(FieldErrorType, ErrorType(err))
}

func (f Fields) WithRecord(category string, value float64) Fields {
	return f.With(FieldCategory, category).With(FieldValue, value)
}

// WithRecordCount adds how many records a write touched. mode may be empty.
func (f Fields) WithRecordCount(n int, mode string) Fields {
	f = f.With(FieldRecords, n)
	if mode != "" {
		f = f.With(FieldWriteMode, mode)
	}
	return f
}

func (f Fields) ToSlice() []any { return f }
