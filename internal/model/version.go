package model

// Version constants.
const (
	// SchemaVersion is the SQLite schema version, stored in PRAGMA user_version.
	SchemaVersion = 2

	// DocumentVersion is the interchange document format version.
	DocumentVersion = "1"

	// AppVersion is the GraphWalker release.
	AppVersion = "0.3.0"
)
