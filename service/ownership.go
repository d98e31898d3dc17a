package service

import (
	"fmt"
	"time"
)

// OwnershipMessage is the text signed at connect. It must read as a proof of ownership,
// not a transaction approval.
func OwnershipMessage(now time.Time) string {
	return fmt.Sprintf(
		"No passwords are required.  “Confirm” only proves that this wallet is owned by you.  "+
			"This request will not trigger any blockchain transaction and will not cost any fees. (%s)",
		now.UTC().Format("2006-01-02T15:04:05.000Z"),
	)
}
