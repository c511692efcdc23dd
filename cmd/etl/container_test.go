package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"musiclake/internal/config"
	"musiclake/internal/datasource"
	"musiclake/internal/logging"
)

func TestStoreOptions(t *testing.T) {
	p := config.Default()
	p.AWS = config.AWS{
		AccessKeyID:     "AK",
		SecretAccessKey: "SK",
		Region:          "us-west-2",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
	}
	p.GCS = config.GCS{CredentialsFile: "/etc/gcs.json"}

	opts := storeOptions(p)
	require.Equal(t, "AK", opts.S3.AccessKeyID)
	require.Equal(t, "SK", opts.S3.SecretAccessKey)
	require.Equal(t, "us-west-2", opts.S3.Region)
	require.Equal(t, "http://localhost:9000", opts.S3.Endpoint)
	require.True(t, opts.S3.UsePathStyle)
	require.Equal(t, "/etc/gcs.json", opts.GCS.CredentialsFile)
}

func TestNewMetricsBackend(t *testing.T) {
	b, err := newMetricsBackend(config.Metrics{Backend: "none"}, "job")
	require.NoError(t, err)
	require.Nil(t, b)

	b, err = newMetricsBackend(config.Metrics{}, "job")
	require.NoError(t, err)
	require.Nil(t, b)

	_, err = newMetricsBackend(config.Metrics{Backend: "pushgateway"}, "job")
	require.ErrorContains(t, err, "pushgateway_url")

	_, err = newMetricsBackend(config.Metrics{Backend: "statsd"}, "job")
	require.ErrorContains(t, err, "unknown metrics backend")
}

func TestRun_InputOpenError(t *testing.T) {
	orig := openStoreFn
	t.Cleanup(func() { openStoreFn = orig })
	openStoreFn = func(ctx context.Context, uri string, opts datasource.Options) (datasource.Store, string, error) {
		return nil, "", errors.New("boom")
	}

	p := config.Default()
	err := run(context.Background(), p, logging.Nop())
	require.ErrorContains(t, err, "open input")
	require.ErrorContains(t, err, "boom")
}

func TestRun_UnknownWarehouse(t *testing.T) {
	p, _ := localPipeline(t)
	p.Warehouse.Kind = "oracle"
	err := run(context.Background(), p, logging.Nop())
	require.ErrorContains(t, err, "open warehouse")
}
