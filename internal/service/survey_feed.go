package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-survey-api/internal/observability"
)

// Collections announced on the survey feed.
const (
	SurveyCollectionTemplates   = "survey_templates"
	SurveyCollectionAssignments = "survey_assignments"
	SurveyCollectionResponses   = "survey_responses"
)

// IsSurveyCollection reports whether name is a collection carried by the feed.
func IsSurveyCollection(name string) bool {
	switch name {
	case SurveyCollectionTemplates, SurveyCollectionAssignments, SurveyCollectionResponses:
		return true
	}
	return false
}

// SurveyFeed fans out collection change signals to local subscribers and, when
// configured, to other API nodes over Redis pub/sub and NATS.
type SurveyFeed interface {
	Notify(ctx context.Context, collection string)
	Subscribe(collection string) (<-chan struct{}, func())
	Start(ctx context.Context)
}

type surveyFeed struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string

	mu          sync.RWMutex
	subscribers map[string]map[chan struct{}]struct{}
}

type surveyFeedEvent struct {
	Source     string    `json:"source"`
	Collection string    `json:"collection"`
	SentAt     time.Time `json:"sent_at"`
}

// NewSurveyFeed constructs the feed. Redis and NATS are optional.
func NewSurveyFeed(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) SurveyFeed {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":surveys"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".surveys"
	}

	return &surveyFeed{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "survey_feed").Logger(),
		nodeID:       uuid.NewString(),
		subscribers:  make(map[string]map[chan struct{}]struct{}),
	}
}

func (f *surveyFeed) Start(ctx context.Context) {
	if f.redis != nil && f.redisChannel != "" {
		go f.consumeRedis(ctx)
	}
	if f.nats != nil && f.natsSubject != "" {
		f.consumeNATS(ctx)
	}
}

func (f *surveyFeed) Notify(ctx context.Context, collection string) {
	f.broadcast(collection)
	observability.SurveyFeedEvents().WithLabelValues(collection, "local").Inc()

	if err := f.publish(ctx, collection); err != nil {
		f.logger.Warn().Err(err).Str("collection", collection).Msg("failed to publish survey feed event")
	}
}

// Subscribe returns a signal channel with a buffer of one. Signals are coalesced: a
// subscriber that is still reloading after the previous signal sees a single pending one.
func (f *surveyFeed) Subscribe(collection string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	f.mu.Lock()
	if _, ok := f.subscribers[collection]; !ok {
		f.subscribers[collection] = make(map[chan struct{}]struct{})
	}
	f.subscribers[collection][ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if subscribers, ok := f.subscribers[collection]; ok {
				delete(subscribers, ch)
				if len(subscribers) == 0 {
					delete(f.subscribers, collection)
				}
			}
			close(ch)
		})
	}

	return ch, cleanup
}

func (f *surveyFeed) broadcast(collection string) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for ch := range f.subscribers[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (f *surveyFeed) publish(ctx context.Context, collection string) error {
	if (f.redis == nil || f.redisChannel == "") && (f.nats == nil || f.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(surveyFeedEvent{
		Source:     f.nodeID,
		Collection: collection,
		SentAt:     time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if f.redis != nil && f.redisChannel != "" {
		if err := f.redis.Publish(ctx, f.redisChannel, payload).Err(); err != nil {
			return err
		}
	}

	if f.nats != nil && f.natsSubject != "" {
		if err := f.nats.Publish(f.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (f *surveyFeed) consumeRedis(ctx context.Context) {
	pubsub := f.redis.Subscribe(ctx, f.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			f.logger.Error().Err(err).Msg("survey feed redis subscription closed")
			return
		}
		f.handleEvent([]byte(msg.Payload))
	}
}

// Every node must see every event, so NATS uses a plain subscription rather than a queue group.
func (f *surveyFeed) consumeNATS(ctx context.Context) {
	sub, err := f.nats.Subscribe(f.natsSubject, func(msg *nats.Msg) {
		f.handleEvent(msg.Data)
	})
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to subscribe to survey feed subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			f.logger.Warn().Err(err).Msg("failed to drain survey feed subscription")
		}
	}()
}

func (f *surveyFeed) handleEvent(payload []byte) {
	var event surveyFeedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		f.logger.Warn().Err(err).Msg("invalid survey feed payload")
		return
	}

	if event.Source == f.nodeID || !IsSurveyCollection(event.Collection) {
		return
	}

	observability.SurveyFeedEvents().WithLabelValues(event.Collection, "remote").Inc()
	f.broadcast(event.Collection)
}

// streamSnapshots turns feed signals into full snapshots: one on subscribe and one after
// every signal. The cleanup stops the loop and closes the returned channel.
func streamSnapshots[T any](feed SurveyFeed, collection string, logger zerolog.Logger, load func(ctx context.Context) (T, error)) (<-chan T, func()) {
	out := make(chan T, 1)
	var signals <-chan struct{}
	unsubscribe := func() {}
	if feed != nil {
		signals, unsubscribe = feed.Subscribe(collection)
	}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer close(out)
		defer unsubscribe()

		emit := func() bool {
			snapshot, err := load(ctx)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn().Err(err).Str("collection", collection).Msg("failed to load live snapshot")
				}
				return ctx.Err() == nil
			}
			select {
			case out <- snapshot:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					return
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return out, cancel
}
