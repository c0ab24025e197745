package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for transfer protocol spans. Client keys follow
// OpenTelemetry semantic conventions; transfer and store keys use
// their own prefixes.
const (
	// Client attributes
	AttrClientAddr = "client.address"

	// Session and command attributes
	AttrSessionID = "session.id"
	AttrVerb      = "transfer.verb"   // LS, GET, PUT, QUIT
	AttrObject    = "transfer.object" // object name
	AttrSize      = "transfer.size"   // declared byte count
	AttrBytes     = "transfer.bytes"  // bytes actually moved
	AttrStatus    = "transfer.status" // ok or error

	// Storage backend attributes
	AttrStoreBackend = "store.backend" // fs, memory, s3, badger
	AttrStoreOp      = "store.op"      // list, stat, get, put
	AttrBucket       = "storage.bucket"
	AttrKey          = "storage.key"
)

// ClientAddr returns an attribute for the peer's address.
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// SessionID returns an attribute for the session identifier.
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// Verb returns an attribute for the command verb.
func Verb(verb string) attribute.KeyValue {
	return attribute.String(AttrVerb, verb)
}

// Object returns an attribute for the object name.
func Object(name string) attribute.KeyValue {
	return attribute.String(AttrObject, name)
}

// Size returns an attribute for a declared byte count.
func Size(size int64) attribute.KeyValue {
	return attribute.Int64(AttrSize, size)
}

// Bytes returns an attribute for bytes actually transferred.
func Bytes(n int64) attribute.KeyValue {
	return attribute.Int64(AttrBytes, n)
}

// Status returns an attribute for the command outcome.
func Status(status string) attribute.KeyValue {
	return attribute.String(AttrStatus, status)
}

// StoreBackend returns an attribute for the storage backend type.
func StoreBackend(backend string) attribute.KeyValue {
	return attribute.String(AttrStoreBackend, backend)
}

// Bucket returns an attribute for an S3 bucket name.
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for an S3 object key.
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// StartCommandSpan starts a span for one protocol command. The span
// name is "transfer.<VERB>" and the verb attribute is always set.
func StartCommandSpan(ctx context.Context, verb string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{Verb(verb)}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "transfer."+verb, trace.WithAttributes(allAttrs...))
}

// StartStoreSpan starts a span for a storage backend operation. The
// span name is "store.<op>".
func StartStoreSpan(ctx context.Context, backend, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		StoreBackend(backend),
		attribute.String(AttrStoreOp, op),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "store."+op, trace.WithAttributes(allAttrs...))
}
