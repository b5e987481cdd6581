package otel

import (
	"context"
	"encoding/base64"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// OTelClient handles OpenTelemetry metrics export to Grafana Cloud
type OTelClient struct {
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	enabled       bool
}

// NewOTelClient creates a new OpenTelemetry client for Grafana Cloud
func NewOTelClient() (*OTelClient, error) {
	enabled := os.Getenv("OTEL_ENABLED") == "true"
	if !enabled {
		return &OTelClient{enabled: false}, nil
	}

	endpoint := os.Getenv("OTEL_ENDPOINT")
	username := os.Getenv("OTEL_USERNAME")
	password := os.Getenv("OTEL_PASSWORD")
	serviceName := os.Getenv("OTEL_SERVICE_NAME")
	if serviceName == "" {
		serviceName = "catalog-sync-engine"
	}

	// Create resource
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(os.Getenv("OTEL_SERVICE_VERSION")),
			semconv.DeploymentEnvironment(os.Getenv("OTEL_ENVIRONMENT")),
		),
	)
	if err != nil {
		return nil, err
	}

	// Create OTLP HTTP exporter for Grafana Cloud
	exporter, err := otlpmetrichttp.New(
		context.Background(),
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithHeaders(map[string]string{
			"Authorization": "Basic " + basicAuth(username, password),
		}),
		otlpmetrichttp.WithCompression(otlpmetrichttp.GzipCompression),
	)
	if err != nil {
		return nil, err
	}

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(30*time.Second), // Push every 30 seconds
			),
		),
	)

	// Set global meter provider
	otel.SetMeterProvider(meterProvider)

	// Create meter
	meter := meterProvider.Meter("catalog-sync-engine")

	return &OTelClient{
		meterProvider: meterProvider,
		meter:         meter,
		enabled:       true,
	}, nil
}

// Shutdown gracefully shuts down the OTel client
func (c *OTelClient) Shutdown(ctx context.Context) error {
	if !c.enabled || c.meterProvider == nil {
		return nil
	}
	return c.meterProvider.Shutdown(ctx)
}

// GetMeter returns the OpenTelemetry meter for creating instruments
func (c *OTelClient) GetMeter() metric.Meter {
	if !c.enabled {
		return nil
	}
	return c.meter
}

// IsEnabled returns whether OpenTelemetry is enabled
func (c *OTelClient) IsEnabled() bool {
	return c.enabled
}

// basicAuth creates a basic auth string
func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}
