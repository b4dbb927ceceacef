package rabbitmq

import amqp "github.com/rabbitmq/amqp091-go"

// HeaderCarrier adapts message headers to the otel TextMapCarrier interface
// so trace context travels with each event.
type HeaderCarrier amqp.Table

func (h HeaderCarrier) Get(key string) string {
	if v, ok := h[key].(string); ok {
		return v
	}
	return ""
}

func (h HeaderCarrier) Set(key, value string) {
	h[key] = value
}

func (h HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	return keys
}
