package events

import (
	"github.com/gomodule/redigo/redis"

	"github.com/loomnetwork/memberapproval/log"
)

const DefaultRedisQueue = "memberapproval-events"

// RedisEventDispatcher is a post commit hook to dispatch events to redis, events are added to a
// sorted set scored by block height.
type RedisEventDispatcher struct {
	redis redis.Conn
	queue string
}

// NewRedisEventDispatcher create a new redis dispatcher
func NewRedisEventDispatcher(uri, queue string) (*RedisEventDispatcher, error) {
	c, err := redis.DialURL(uri)
	if err != nil {
		return nil, err
	}
	return newRedisEventDispatcher(c, queue), nil
}

func newRedisEventDispatcher(c redis.Conn, queue string) *RedisEventDispatcher {
	if queue == "" {
		queue = DefaultRedisQueue
	}
	return &RedisEventDispatcher{
		redis: c,
		queue: queue,
	}
}

// Send sends the event
func (ed *RedisEventDispatcher) Send(blockHeight uint64, eventIndex int, msg []byte) error {
	log.Debug("Emitting event", "height", blockHeight, "index", eventIndex)
	if _, err := ed.redis.Do("ZADD", ed.queue, blockHeight, msg); err != nil {
		return err
	}
	return nil
}

func (ed *RedisEventDispatcher) Close() error {
	return ed.redis.Close()
}
