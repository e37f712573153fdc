package notify

import (
	"errors"
	"sync"
	"testing"

	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSink_DeliversToCurrentSubscribers(t *testing.T) {
	sink := NewSink()
	var got []error
	unsubscribe := sink.Subscribe(func(err error) { got = append(got, err) })

	errA := errors.New("a")
	sink.Notify(errA)
	unsubscribe()
	sink.Notify(errors.New("b"))

	assert.Equal(t, []error{errA}, got)
	assert.Equal(t, 0, sink.Subscribers())
}

func TestSink_NoReplayForLateSubscribers(t *testing.T) {
	sink := NewSink()
	sink.Notify(errors.New("before anyone listens"))

	calls := 0
	sink.Subscribe(func(error) { calls++ })
	assert.Equal(t, 0, calls)
}

func TestSink_IgnoresNil(t *testing.T) {
	sink := NewSink()
	calls := 0
	sink.Subscribe(func(error) { calls++ })
	sink.Notify(nil)
	assert.Equal(t, 0, calls)
}

func TestSink_PanickingSubscriberDoesNotPropagate(t *testing.T) {
	sink := NewSink()
	delivered := false
	sink.Subscribe(func(error) { panic("boom") })
	sink.Subscribe(func(error) { delivered = true })

	assert.NotPanics(t, func() { sink.Notify(errors.New("x")) })
	assert.True(t, delivered)
}

func TestSink_UnsubscribeIsIdempotent(t *testing.T) {
	sink := NewSink()
	unsubscribe := sink.Subscribe(func(error) {})
	sink.Subscribe(func(error) {})
	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, sink.Subscribers())
}

func TestSink_SubscribeChan(t *testing.T) {
	sink := NewSink()
	ch, cancel := sink.SubscribeChan(1)

	errA := errors.New("first")
	sink.Notify(errA)
	sink.Notify(errors.New("dropped, buffer full"))

	require.Equal(t, errA, <-ch)
	select {
	case err := <-ch:
		t.Fatalf("expected no buffered error, got %v", err)
	default:
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.NotPanics(t, func() { sink.Notify(errors.New("after cancel")) })
}

func TestSink_ConcurrentNotifyAndSubscribe(t *testing.T) {
	sink := NewSink()
	var wg sync.WaitGroup
	const numGoroutines = 50

	for i := 0; i < numGoroutines; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unsubscribe := sink.Subscribe(func(error) {})
			unsubscribe()
		}()
		go func() {
			defer wg.Done()
			sink.Notify(errors.New("concurrent"))
		}()
	}

	wg.Wait()
	assert.Equal(t, 0, sink.Subscribers())
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard.Notify(errors.New("x")) })
}

func TestLogSubscriber(t *testing.T) {
	log, hook := test.NewNullLogger()
	LogSubscriber(logrus.NewEntry(log))(errors.New("fetch failed"))

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "fetch failed")
}

type mockReporter struct {
	mock.Mock
}

func (m *mockReporter) Notify(err interface{}, extra ...interface{}) (string, error) {
	args := m.Called(err, extra)
	return args.String(0), args.Error(1)
}

func TestHoneybadgerSubscriber(t *testing.T) {
	reporter := &mockReporter{}
	reported := errors.New("network error")
	reporter.On("Notify", reported, []interface{}{honeybadger.Tags{"sink", "client"}}).Return("id-1", nil)

	log, _ := test.NewNullLogger()
	HoneybadgerSubscriber(reporter, logrus.NewEntry(log))(reported)

	reporter.AssertExpectations(t)
}

func TestHoneybadgerSubscriber_ReportFailureIsLogged(t *testing.T) {
	reporter := &mockReporter{}
	reporter.On("Notify", mock.Anything, mock.Anything).Return("", errors.New("unreachable"))

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	HoneybadgerSubscriber(reporter, logrus.NewEntry(log))(errors.New("x"))

	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "honeybadger notify failed")
}

func TestNewHoneybadgerClient_EmptyKey(t *testing.T) {
	assert.Nil(t, NewHoneybadgerClient("", "test"))
}
