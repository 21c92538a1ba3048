// Package rstream contains the core broadcast stream engine.
//
// The [Subject] type is simultaneously an event sink and
// a multicast event source:
// values, errors, and completion published into it
// fan out to every attached subscriber
// in a single total order.
//
// Delivery is serialized by a per-Subject dispatch pump.
// A publish from inside a subscriber callback
// does not recurse and cannot deadlock;
// it is queued and delivered after the current event
// finishes its delivery round.
//
// Subscribers attach through [Source.Subscribe] with a
// [SubscriberConfig], either synchronously
// (callbacks run on the publishing goroutine)
// or with a bounded buffer drained by a dedicated goroutine,
// so a slow subscriber does not stall the publisher.
package rstream
