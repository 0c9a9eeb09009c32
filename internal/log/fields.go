package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldClientID   = "client_id"
	FieldVersion    = "version"
	FieldAmount     = "amount"
	FieldRate       = "rate"
	FieldRowRef     = "row_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentReports = "reports"
	ComponentCache   = "cache"
	ComponentPlan    = "planning"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpProject  = "project"
	OpAlign    = "align"
	OpExport   = "export"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)
