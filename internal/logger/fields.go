package logger

// Standard field names for structured logging. Use these instead of raw
// strings so log queries stay consistent across packages.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientID  = "client_id"

	FieldGraphID     = "graph_id"
	FieldNodeID      = "node_id"
	FieldConnectorID = "connector_id"
	FieldEdgeID      = "edge_id"
	FieldCliqueID    = "clique_id"

	FieldTable  = "table"
	FieldOp     = "op"
	FieldView   = "view"
	FieldPath   = "path"
	FieldMethod = "method"
	FieldStatus = "status"
	FieldCount  = "count"
	FieldFormat = "format"

	FieldDurationMS = "duration_ms"
	FieldError      = "error"
	FieldAddress    = "address"
)
