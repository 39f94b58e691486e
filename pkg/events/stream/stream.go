// Package stream provides the streaming clients used by the events helpers.
package stream

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-micro/plugins/v4/events/natsjs"
	"github.com/rs/zerolog"
	"go-micro.dev/v4/events"
)

// Nats returns a nats jetstream client,
// retrying exponentially until the server answers.
func Nats(log *zerolog.Logger, opts ...natsjs.Option) (events.Stream, error) {
	b := backoff.NewExponentialBackOff()
	var stream events.Stream
	o := func() error {
		n := b.NextBackOff()
		s, err := natsjs.NewStream(opts...)
		if err != nil && n > time.Second {
			log.Error().Err(err).Msgf("can't connect to nats (jetstream) server, retrying in %s", n)
		}
		stream = s
		return err
	}

	err := backoff.Retry(o, b)
	return stream, err
}

// Chan is a channel based streaming client.
// Useful for tests or in memory applications.
type Chan [2]chan interface{}

// Publish implementation
func (ch Chan) Publish(_ string, msg interface{}, _ ...events.PublishOption) error {
	go func() {
		ch[0] <- msg
	}()
	return nil
}

// Consume implementation
func (ch Chan) Consume(_ string, _ ...events.ConsumeOption) (<-chan events.Event, error) {
	evch := make(chan events.Event)
	go func() {
		defer close(evch)
		for {
			e := <-ch[1]
			if e == nil {
				// channel closed
				return
			}
			b, _ := json.Marshal(e)
			evname := reflect.TypeOf(e).String()
			evch <- events.Event{
				Payload:  b,
				Metadata: map[string]string{"eventtype": evname},
			}
		}
	}()
	return evch, nil
}

// Local returns a Chan wired to itself, so published events come back to
// the consumer. The second return value closes the stream.
func Local() (Chan, func()) {
	c := make(chan interface{}, 32)
	ch := Chan{c, c}
	return ch, func() { close(c) }
}
