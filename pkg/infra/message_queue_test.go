package infra

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
)

type fakeStream struct {
	info *jetstream.StreamInfo
	err  error
}

func (f *fakeStream) Info(_ context.Context, _ ...jetstream.StreamInfoOpt) (*jetstream.StreamInfo, error) {
	return f.info, f.err
}

func TestLogStreamStateInfoError(t *testing.T) {
	// an Info failure leaves info nil; this must not panic
	assert.NotPanics(t, func() {
		logStreamState(context.Background(), &fakeStream{err: errors.New("stream deleted")})
	})
}

func TestLogStreamStateNilStream(t *testing.T) {
	assert.NotPanics(t, func() {
		logStreamState(context.Background(), nil)
	})
}

func TestLogStreamStateHealthy(t *testing.T) {
	info := &jetstream.StreamInfo{
		Config: jetstream.StreamConfig{Name: "burnwatcher", Subjects: []string{"burnwatcher.>"}},
	}
	assert.NotPanics(t, func() {
		logStreamState(context.Background(), &fakeStream{info: info})
	})
}
