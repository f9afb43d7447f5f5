package backup

import (
	"encoding/json"
	"time"
)

// SnapshotVersion tags exported files so restores can refuse payloads
// produced by an incompatible build.
const SnapshotVersion = 1

// AppName identifies this application in exported files.
const AppName = "dokan-pos"

// Metadata describes an exported file.
type Metadata struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Version   int            `json:"version"`
	App       string         `json:"app"`
	Counts    map[string]int `json:"counts"`
}

// Snapshot is the full JSON export of the shop's data: a metadata
// object plus table name to rows.
type Snapshot struct {
	Metadata Metadata                     `json:"metadata"`
	Data     map[string][]json.RawMessage `json:"data"`
}

// TableResult summarises how a single table fared during a restore.
type TableResult struct {
	Table    string   `json:"table"`
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// RestoreSummary reports the outcome of a restore run.
type RestoreSummary struct {
	SnapshotID string        `json:"snapshotId"`
	Results    []TableResult `json:"results"`
}

// tableOrder lists every exported table in foreign key order. Restores
// insert in this order; clears run it in reverse.
var tableOrder = []string{
	"users",
	"categories",
	"products",
	"customers",
	"suppliers",
	"purchases",
	"purchase_items",
	"sales",
	"sale_items",
	"transactions",
	"stock_movements",
	"audit_logs",
	"doc_numbers",
}

// protectedTables cannot be cleared through the admin API. Wiping the
// user table would lock everyone out of the system.
var protectedTables = map[string]bool{
	"users": true,
}

func knownTable(name string) bool {
	for _, t := range tableOrder {
		if t == name {
			return true
		}
	}
	return false
}
