package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

const shutdownTimeout = 10 * time.Second

// Service identifies the process on every exported span, metric and log.
type Service struct {
	Name        string
	Version     string
	Environment string
}

// Collector is the OTLP gRPC endpoint shared by the three signal exporters.
type Collector struct {
	Endpoint string
	Insecure bool
}

func (s Service) resource() (*resource.Resource, error) {
	version := s.Version
	if version == "" {
		version = "dev"
	}
	attrs := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceName(s.Name),
			semconv.ServiceVersion(version),
		),
		resource.WithSchemaURL(semconv.SchemaURL),
	}
	if s.Environment != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.DeploymentEnvironmentName(s.Environment)))
	}
	own, err := resource.New(context.Background(), attrs...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	res, err := resource.Merge(resource.Default(), own)
	if err != nil {
		return nil, fmt.Errorf("failed to merge resource: %w", err)
	}
	return res, nil
}

// shutdownWithin bounds a provider's Shutdown call.
func shutdownWithin(ctx context.Context, name string, shutdown func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown %s provider: %w", name, err)
	}
	return nil
}
