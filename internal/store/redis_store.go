package store

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gomodule/redigo/redis"
)

// RedisStore implements Store against a Redis database using sorted sets for
// the ordered collections. Watch maps onto WATCH/MULTI/EXEC: an EXEC aborted
// by a concurrent writer surfaces as ErrConflict.
type RedisStore struct {
	pool *redis.Pool
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	pool := &redis.Pool{
		MaxIdle:     8,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			opts := []redis.DialOption{redis.DialDatabase(db)}
			if password != "" {
				opts = append(opts, redis.DialPassword(password))
			}
			return redis.Dial("tcp", addr, opts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return &RedisStore{pool: pool}
}

func (s *RedisStore) Get(key string) (string, bool, error) {
	conn := s.pool.Get()
	defer conn.Close()
	v, err := redis.String(conn.Do("GET", key))
	if err == redis.ErrNil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) ZRangeByScore(key string, min, max float64, minExcl bool) ([]Member, error) {
	conn := s.pool.Get()
	defer conn.Close()
	reply, err := redis.Values(conn.Do("ZRANGEBYSCORE", key, scoreArg(min, minExcl), scoreArg(max, false), "WITHSCORES"))
	if err != nil {
		return nil, fmt.Errorf("redis ZRANGEBYSCORE %s: %w", key, err)
	}
	return parseMembers(reply)
}

func (s *RedisStore) ZRangeByScoreN(key string, min, max float64, minExcl bool, n int) ([]Member, error) {
	conn := s.pool.Get()
	defer conn.Close()
	args := []interface{}{key, scoreArg(min, minExcl), scoreArg(max, false), "WITHSCORES"}
	if n >= 0 {
		args = append(args, "LIMIT", 0, n)
	}
	reply, err := redis.Values(conn.Do("ZRANGEBYSCORE", args...))
	if err != nil {
		return nil, fmt.Errorf("redis ZRANGEBYSCORE %s: %w", key, err)
	}
	return parseMembers(reply)
}

func (s *RedisStore) ZRevRangeByScoreN(key string, max float64, n int) ([]Member, error) {
	conn := s.pool.Get()
	defer conn.Close()
	args := []interface{}{key, scoreArg(max, false), "-inf", "WITHSCORES"}
	if n >= 0 {
		args = append(args, "LIMIT", 0, n)
	}
	reply, err := redis.Values(conn.Do("ZREVRANGEBYSCORE", args...))
	if err != nil {
		return nil, fmt.Errorf("redis ZREVRANGEBYSCORE %s: %w", key, err)
	}
	return parseMembers(reply)
}

func (s *RedisStore) ZTail(key string, n int) ([]Member, error) {
	conn := s.pool.Get()
	defer conn.Close()
	start := -n
	if n < 0 {
		start = 0
	}
	reply, err := redis.Values(conn.Do("ZRANGE", key, start, -1, "WITHSCORES"))
	if err != nil {
		return nil, fmt.Errorf("redis ZRANGE %s: %w", key, err)
	}
	return parseMembers(reply)
}

func (s *RedisStore) HGet(key, field string) (string, bool, error) {
	conn := s.pool.Get()
	defer conn.Close()
	v, err := redis.String(conn.Do("HGET", key, field))
	if err == redis.ErrNil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis HGET %s: %w", key, err)
	}
	return v, true, nil
}

func (s *RedisStore) HGetAll(key string) (map[string]string, error) {
	conn := s.pool.Get()
	defer conn.Close()
	m, err := redis.StringMap(conn.Do("HGETALL", key))
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL %s: %w", key, err)
	}
	return m, nil
}

func (s *RedisStore) LRange(key string, start, stop int) ([]string, error) {
	conn := s.pool.Get()
	defer conn.Close()
	list, err := redis.Strings(conn.Do("LRANGE", key, start, stop))
	if err != nil {
		return nil, fmt.Errorf("redis LRANGE %s: %w", key, err)
	}
	return list, nil
}

func (s *RedisStore) Update(fn func(tx Tx)) error {
	tx := &redisTx{}
	fn(tx)
	if len(tx.cmds) == 0 {
		return nil
	}
	conn := s.pool.Get()
	defer conn.Close()
	if err := conn.Send("MULTI"); err != nil {
		return fmt.Errorf("redis MULTI: %w", err)
	}
	for _, cmd := range tx.cmds {
		if err := conn.Send(cmd.name, cmd.args...); err != nil {
			return fmt.Errorf("redis %s: %w", cmd.name, err)
		}
	}
	if _, err := conn.Do("EXEC"); err != nil {
		return fmt.Errorf("redis EXEC: %w", err)
	}
	return nil
}

func (s *RedisStore) Watch(keys []string, fn func(tx Tx) error) error {
	conn := s.pool.Get()
	defer conn.Close()

	watchArgs := make([]interface{}, len(keys))
	for i, k := range keys {
		watchArgs[i] = k
	}
	if _, err := conn.Do("WATCH", watchArgs...); err != nil {
		return fmt.Errorf("redis WATCH: %w", err)
	}

	tx := &redisTx{}
	if err := fn(tx); err != nil {
		_, _ = conn.Do("UNWATCH")
		return err
	}
	if len(tx.cmds) == 0 {
		_, _ = conn.Do("UNWATCH")
		return nil
	}

	if err := conn.Send("MULTI"); err != nil {
		return fmt.Errorf("redis MULTI: %w", err)
	}
	for _, cmd := range tx.cmds {
		if err := conn.Send(cmd.name, cmd.args...); err != nil {
			return fmt.Errorf("redis %s: %w", cmd.name, err)
		}
	}
	reply, err := conn.Do("EXEC")
	if err != nil {
		return fmt.Errorf("redis EXEC: %w", err)
	}
	if reply == nil {
		return ErrConflict
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.pool.Close()
}

type redisCmd struct {
	name string
	args []interface{}
}

type redisTx struct {
	cmds []redisCmd
}

func (t *redisTx) add(name string, args ...interface{}) {
	t.cmds = append(t.cmds, redisCmd{name: name, args: args})
}

func (t *redisTx) ZAdd(key string, score float64, member string) {
	t.add("ZADD", key, formatScore(score), member)
}

func (t *redisTx) ZRemRangeByScore(key string, min, max float64) {
	t.add("ZREMRANGEBYSCORE", key, scoreArg(min, false), scoreArg(max, false))
}

func (t *redisTx) Set(key, value string) {
	t.add("SET", key, value)
}

func (t *redisTx) Incr(key string) {
	t.add("INCR", key)
}

func (t *redisTx) Del(keys ...string) {
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	t.add("DEL", args...)
}

func (t *redisTx) HSet(key, field, value string) {
	t.add("HSET", key, field, value)
}

func (t *redisTx) HDel(key, field string) {
	t.add("HDEL", key, field)
}

func (t *redisTx) LPush(key, value string) {
	t.add("LPUSH", key, value)
}

func (t *redisTx) LTrim(key string, start, stop int) {
	t.add("LTRIM", key, start, stop)
}

func parseMembers(reply []interface{}) ([]Member, error) {
	if len(reply)%2 != 0 {
		return nil, fmt.Errorf("redis: odd WITHSCORES reply length %d", len(reply))
	}
	members := make([]Member, 0, len(reply)/2)
	for i := 0; i < len(reply); i += 2 {
		value, err := redis.String(reply[i], nil)
		if err != nil {
			return nil, fmt.Errorf("redis: bad member: %w", err)
		}
		score, err := redis.Float64(reply[i+1], nil)
		if err != nil {
			return nil, fmt.Errorf("redis: bad score: %w", err)
		}
		members = append(members, Member{Score: score, Value: value})
	}
	return members, nil
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func scoreArg(f float64, excl bool) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if excl {
		return "(" + formatScore(f)
	}
	return formatScore(f)
}
