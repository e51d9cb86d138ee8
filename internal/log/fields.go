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

	FieldOwnerID    = "owner_id"
	FieldFromOwner  = "from_owner"
	FieldToOwner    = "to_owner"
	FieldAmount     = "amount"
	FieldBalance    = "balance"
	FieldTransferID = "transfer_id"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentAuth    = "auth"
)

// Operations defines standard operation names
const (
	OpCreate   = "create_account"
	OpDeposit  = "deposit"
	OpBalance  = "get_balance"
	OpTransfer = "transfer"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
