package audit

import (
	"context"

	"github.com/hermes-soc/filesorter/internal/core"
	"github.com/hermes-soc/filesorter/pkg/logx"
)

// NopAuditor only logs the records it is given. It is used when auditing is disabled.
type NopAuditor struct{}

var _ core.Auditor = NopAuditor{}

func (NopAuditor) Record(ctx context.Context, rec core.AuditRecord) error {
	logx.As().Debug().
		Str("action_type", rec.ActionType).
		Str("key", rec.FileKey).
		Str("destination_bucket", rec.DestinationBucket).
		Msg("Audit disabled, record not written")
	return nil
}
