// Package events wraps go-micro events with typed publish/consume helpers.
// Jobs travel through one durable queue; consumer groups split the stream so
// each worker pool gets exactly one copy of every job, and the broker
// redelivers deliveries lost to worker crashes (at-least-once).
package events

import (
	"reflect"

	"go-micro.dev/v4/events"
)

var (
	// JobQueueName is the queue all discovery jobs go through.
	JobQueueName = "lade-jobs"

	// MetadatakeyEventType is the key used for the event type in the
	// metadata map of the event.
	MetadatakeyEventType = "eventtype"
)

type (
	// Unmarshaller is the interface events need to fulfill.
	Unmarshaller interface {
		Unmarshal([]byte) (interface{}, error)
	}

	// Publisher is the interface publishers need to fulfill.
	Publisher interface {
		Publish(string, interface{}, ...events.PublishOption) error
	}

	// Consumer is the interface consumers need to fulfill.
	Consumer interface {
		Consume(string, ...events.ConsumeOption) (<-chan events.Event, error)
	}

	// Stream is the interface common to Publisher and Consumer.
	Stream interface {
		Publish(string, interface{}, ...events.PublishOption) error
		Consume(string, ...events.ConsumeOption) (<-chan events.Event, error)
	}
)

// Consume returns a channel yielding the events that match the registered
// types. group defines the worker pool: one group gets exactly one copy of
// each event. Unknown or undecodable events are dropped.
func Consume(s Consumer, group string, evs ...Unmarshaller) (<-chan interface{}, error) {
	c, err := s.Consume(JobQueueName, events.WithGroup(group))
	if err != nil {
		return nil, err
	}

	registered := map[string]Unmarshaller{}
	for _, e := range evs {
		typ := reflect.TypeOf(e)
		registered[typ.String()] = e
	}

	out := make(chan interface{})
	go func() {
		defer close(out)
		for e := range c {
			u, ok := registered[e.Metadata[MetadatakeyEventType]]
			if !ok {
				continue
			}
			ev, err := u.Unmarshal(e.Payload)
			if err != nil {
				continue
			}
			out <- ev
		}
	}()
	return out, nil
}

// Publish publishes ev to the job queue tagged with its concrete type.
func Publish(s Publisher, ev interface{}) error {
	evName := reflect.TypeOf(ev).String()
	return s.Publish(JobQueueName, ev, events.WithMetadata(map[string]string{
		MetadatakeyEventType: evName,
	}))
}
