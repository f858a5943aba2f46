package models

import "encoding/json"

// RawRecord is an undecoded order record as supplied by ingestion or a client.
// It is validated into a JobRecord before sequencing.
type RawRecord = json.RawMessage
