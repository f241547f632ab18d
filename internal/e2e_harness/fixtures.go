package e2e_harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

var (
	SellerID    = uuid.MustParse("01900000-0000-7000-8000-00000000e001")
	BuyerID     = uuid.MustParse("01900000-0000-7000-8000-00000000e002")
	ModeratorID = uuid.MustParse("01900000-0000-7000-8000-00000000e003")
)

// SeedUsers inserts the accounts used by the end-to-end flow.
func SeedUsers(ctx context.Context, db *sql.DB) error {
	users := []struct {
		id    uuid.UUID
		name  string
		email string
		role  string
	}{
		{SellerID, "Jonas Jonaitis", "jonas@example.com", "USER"},
		{BuyerID, "Ona Onaitė", "ona@example.com", "USER"},
		{ModeratorID, "Petras Petraitis", "petras@example.com", "MODERATOR"},
	}
	for _, u := range users {
		if _, err := db.ExecContext(ctx, `
INSERT INTO users (id, name, email, role)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING
`, u.id, u.name, u.email, u.role); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
	}
	return nil
}

// CountRows returns the number of rows in table matching listing_id.
func CountRows(ctx context.Context, db *sql.DB, table string, listingID uuid.UUID) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE listing_id = $1", table)
	if err := db.QueryRowContext(ctx, query, listingID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// EnsureBucket creates bucket on the S3 endpoint unless it already exists.
func EnsureBucket(ctx context.Context, endpoint, accessKey, secretKey, bucket string) error {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		config.WithBaseEndpoint(endpoint),
	)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
		return nil
	}
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			code := apiErr.ErrorCode()
			if code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
				return nil
			}
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}
