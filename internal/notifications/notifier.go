// Package notifications delivers workflow notifications to users over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Message is the JSON body published on a user channel.
type Message struct {
	Kind      string `json:"kind"`
	SubjectID string `json:"subject_id"`
	Text      string `json:"text"`
	Data      any    `json:"data,omitempty"`
}

// Notifier publishes notifications into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel returns the channel a user's clients subscribe to.
func UserChannel(userID string) string {
	return fmt.Sprintf("notifications:user:%s", userID)
}

// PublishUser sends msg to the user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID string, msg Message) error {
	if n == nil || n.rdb == nil || userID == "" {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// StartPatternSubscriber listens on every user channel and hands channel and raw payload to onMessage
// until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, UserChannel("*"))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				onMessage(raw.Channel, raw.Payload)
			}
		}
	}()
	return nil
}
