// Package vocstore is the append-only, per-conversation store for
// models.VOCRecord (spec §3's "one record per inbound turn, 90-day
// retention"), shaped directly after internal/convstore's Get/Save/
// Delete store with a TTL instead of a Get/Save record. The VOC record
// never gets read back by the pipeline (it is a durable audit trail,
// not working state), so the capability set is narrower than
// convstore's: Save and ListByConversation only.
package vocstore

import (
	"time"
)

// Retention is how long a saved VOC record lives before expiring, per
// spec §3.
const Retention = 90 * 24 * time.Hour
