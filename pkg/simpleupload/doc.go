// Package simpleupload implements an asynchronous media upload pipeline:
// a coordinator issues presigned upload credentials and records file
// metadata, confirms completed uploads, and publishes an upload event; an
// independent worker consumes those events, produces a thumbnail
// derivative, and reports completion through a callback.
//
// The package follows an interface-based design where storage (BlobStore),
// persistence (Repository), event transport (Publisher/Subscriber), and
// callback delivery (Notifier) are injected at construction. Ready-made
// implementations live in the subpackages storage/, repo/, event/ and
// notify/.
package simpleupload
