// Package broadcast fans lock changes out to the connections subscribed to
// each item category.
//
// A Router delivers opaque payloads by topic. Hub is the in-process
// implementation; RedisRouter and AMQPRouter relay publishes between
// server processes and feed them into a local Hub. Delivery is
// at-most-once: a subscriber whose buffer is full misses the message.
package broadcast
