package otel

import "go.opentelemetry.io/otel/attribute"

func sessionIDAttr(id string) attribute.KeyValue {
	return attribute.String("session.id", id)
}

func llmModelAttr(model string) attribute.KeyValue {
	return attribute.String("llm.model", model)
}

func llmInputTokensAttr(tokens int) attribute.KeyValue {
	return attribute.Int("llm.input_tokens", tokens)
}

func llmOutputTokensAttr(tokens int) attribute.KeyValue {
	return attribute.Int("llm.output_tokens", tokens)
}

func eventDataAttr(data string) attribute.KeyValue {
	return attribute.String("event.data", data)
}
