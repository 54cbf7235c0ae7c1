package fetch

import (
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/promptdeck/go-datakit/fetch")
