package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"codejudge/internal/common/storage"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"

	"github.com/klauspost/compress/zstd"
)

const reportContentType = "application/zstd"

// ReportArchiver stores per-test judge reports.
type ReportArchiver interface {
	Archive(ctx context.Context, report model.Report) (string, error)
	Load(ctx context.Context, submissionID int64) (model.Report, error)
}

// ObjectReportArchiver writes zstd-compressed JSON reports to object storage.
type ObjectReportArchiver struct {
	storage storage.ObjectStorage
	bucket  string
	prefix  string
}

// NewObjectReportArchiver creates an archiver. prefix defaults to "reports".
func NewObjectReportArchiver(store storage.ObjectStorage, bucket, prefix string) (*ObjectReportArchiver, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if prefix == "" {
		prefix = "reports"
	}
	return &ObjectReportArchiver{storage: store, bucket: bucket, prefix: prefix}, nil
}

// ReportKey returns the object key for a submission's report.
func (a *ObjectReportArchiver) ReportKey(submissionID int64) string {
	return a.prefix + "/" + strconv.FormatInt(submissionID, 10) + ".json.zst"
}

func (a *ObjectReportArchiver) Archive(ctx context.Context, report model.Report) (string, error) {
	if report.SubmissionID <= 0 {
		return "", appErr.ValidationError("submission_id", "required")
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report failed: %w", err)
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return "", fmt.Errorf("create zstd encoder failed: %w", err)
	}
	compressed := encoder.EncodeAll(raw, nil)
	_ = encoder.Close()

	key := a.ReportKey(report.SubmissionID)
	if err := a.storage.PutObject(ctx, a.bucket, key, bytes.NewReader(compressed), int64(len(compressed)), reportContentType); err != nil {
		return "", appErr.Wrapf(err, appErr.ServiceUnavailable, "upload report failed")
	}
	return key, nil
}

func (a *ObjectReportArchiver) Load(ctx context.Context, submissionID int64) (model.Report, error) {
	reader, err := a.storage.GetObject(ctx, a.bucket, a.ReportKey(submissionID))
	if err != nil {
		return model.Report{}, appErr.Wrapf(err, appErr.ServiceUnavailable, "download report failed")
	}
	defer reader.Close()

	decoder, err := zstd.NewReader(reader)
	if err != nil {
		return model.Report{}, fmt.Errorf("create zstd decoder failed: %w", err)
	}
	defer decoder.Close()

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return model.Report{}, fmt.Errorf("decompress report failed: %w", err)
	}
	var report model.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return model.Report{}, fmt.Errorf("decode report failed: %w", err)
	}
	return report, nil
}
