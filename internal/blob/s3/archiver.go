package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"evergreen/internal/store"
)

const defaultPrefix = "decisions"

// Archiver writes one JSON object per decision record.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewArchiver(c *Client, prefix string) *Archiver {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Archiver{client: c.s3, bucket: c.bucket, prefix: prefix}
}

// Archive uploads rec and returns the object key.
func (a *Archiver) Archive(ctx context.Context, rec store.DecisionRecord) (string, error) {
	if rec.DecisionID == "" {
		return "", fmt.Errorf("s3blob: archive: empty decision id")
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal decision %s: %w", rec.DecisionID, err)
	}
	key := a.objectKey(rec)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: put object %s: %w", key, err)
	}
	return key, nil
}

// objectKey partitions by UTC day of the decision timestamp:
//
//	decisions/2025/01/31/<id>.json
func (a *Archiver) objectKey(rec store.DecisionRecord) string {
	ts := rec.Timestamp.UTC()
	return path.Join(a.prefix, ts.Format("2006/01/02"), rec.DecisionID+".json")
}
