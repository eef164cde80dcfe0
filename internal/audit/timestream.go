package audit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite"
	"github.com/aws/aws-sdk-go-v2/service/timestreamwrite/types"

	"github.com/hermes-soc/filesorter/internal/core"
	"github.com/hermes-soc/filesorter/pkg/logx"
)

const (
	DefaultDatabase = "sdc_aws_logs"
	DefaultTable    = "sdc_aws_s3_bucket_log_table"

	measureName = "timestamp"
)

// timestreamClient is the subset of the Timestream write API the auditor uses.
type timestreamClient interface {
	WriteRecords(ctx context.Context, params *timestreamwrite.WriteRecordsInput, optFns ...func(*timestreamwrite.Options)) (*timestreamwrite.WriteRecordsOutput, error)
}

// TimestreamAuditor writes one Timestream record per routing action.
type TimestreamAuditor struct {
	client   timestreamClient
	database string
	table    string
}

var _ core.Auditor = (*TimestreamAuditor)(nil)

// NewTimestream creates an auditor writing to database/table. Empty names use the defaults.
func NewTimestream(client timestreamClient, database, table string) *TimestreamAuditor {
	if database == "" {
		database = DefaultDatabase
	}
	if table == "" {
		table = DefaultTable
	}
	return &TimestreamAuditor{client: client, database: database, table: table}
}

// Record writes rec. Failures are wrapped with core.ErrAudit.
func (a *TimestreamAuditor) Record(ctx context.Context, rec core.AuditRecord) error {
	ms := rec.Timestamp.UnixMilli()
	input := &timestreamwrite.WriteRecordsInput{
		DatabaseName: aws.String(a.database),
		TableName:    aws.String(a.table),
		Records: []types.Record{{
			Dimensions:       dimensions(rec),
			MeasureName:      aws.String(measureName),
			MeasureValue:     aws.String(strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)),
			MeasureValueType: types.MeasureValueTypeDouble,
			Time:             aws.String(strconv.FormatInt(ms, 10)),
			TimeUnit:         types.TimeUnitMilliseconds,
		}},
	}

	_, err := a.client.WriteRecords(ctx, input)
	if err != nil {
		logx.As().Error().
			Str("database", a.database).
			Str("table", a.table).
			Str("action_type", rec.ActionType).
			Str("key", rec.FileKey).
			Err(err).
			Msg("Failed to write audit record")
		return fmt.Errorf("%w: %w", core.ErrAudit, err)
	}

	logx.As().Debug().
		Str("database", a.database).
		Str("table", a.table).
		Str("action_type", rec.ActionType).
		Str("key", rec.FileKey).
		Msg("Audit record written")

	return nil
}

// dimensions lists the non-empty record fields; Timestream rejects empty dimension values.
func dimensions(rec core.AuditRecord) []types.Dimension {
	pairs := [][2]string{
		{"action_type", rec.ActionType},
		{"source_bucket", rec.SourceBucket},
		{"destination_bucket", rec.DestinationBucket},
		{"file_key", rec.FileKey},
		{"new_file_key", rec.NewFileKey},
		{"object_count", strconv.Itoa(rec.ObjectCount)},
	}

	dims := make([]types.Dimension, 0, len(pairs))
	for _, p := range pairs {
		if p[1] == "" {
			continue
		}
		dims = append(dims, types.Dimension{
			Name:               aws.String(p[0]),
			Value:              aws.String(p[1]),
			DimensionValueType: types.DimensionValueTypeVarchar,
		})
	}
	return dims
}
