package notify

import (
	honeybadger "github.com/honeybadger-io/honeybadger-go"
	"github.com/sirupsen/logrus"
)

// LogSubscriber writes every delivered error to the given logger entry.
func LogSubscriber(entry *logrus.Entry) Subscriber {
	return func(err error) {
		entry.Warnf("reported error: %v", err)
	}
}

// HoneybadgerReporter is the subset of the honeybadger client used by the sink.
type HoneybadgerReporter interface {
	Notify(err interface{}, extra ...interface{}) (string, error)
}

// HoneybadgerSubscriber forwards delivered errors to Honeybadger. Reporting is best effort.
func HoneybadgerSubscriber(client HoneybadgerReporter, entry *logrus.Entry) Subscriber {
	return func(err error) {
		if _, hbErr := client.Notify(err, honeybadger.Tags{"sink", "client"}); hbErr != nil {
			entry.Debugf("honeybadger notify failed: %v", hbErr)
		}
	}
}

// NewHoneybadgerClient builds a client for the given key, or nil when apiKey is empty.
func NewHoneybadgerClient(apiKey, env string) *honeybadger.Client {
	if apiKey == "" {
		return nil
	}
	return honeybadger.New(honeybadger.Configuration{APIKey: apiKey, Env: env})
}
