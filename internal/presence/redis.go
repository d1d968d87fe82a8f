package presence

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const onlineHash = "presence:online"

// Redis keeps connection counts in a shared hash so several instances can
// agree on who is online. Increments/decrements ride on HIncrBy, which is
// atomic server-side.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Connect(ctx context.Context, userID uint) (bool, error) {
	n, err := r.rdb.HIncrBy(ctx, onlineHash, field(userID), 1).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Redis) Disconnect(ctx context.Context, userID uint) (bool, error) {
	n, err := r.rdb.HIncrBy(ctx, onlineHash, field(userID), -1).Result()
	if err != nil {
		return false, err
	}
	if n <= 0 {
		// clean up so OnlineUsers stays a scan of live users only
		_ = r.rdb.HDel(ctx, onlineHash, field(userID)).Err()
	}
	return n == 0, nil
}

func (r *Redis) Online(ctx context.Context, userID uint) (bool, error) {
	v, err := r.rdb.HGet(ctx, onlineHash, field(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n, _ := strconv.Atoi(v)
	return n > 0, nil
}

func (r *Redis) OnlineUsers(ctx context.Context) ([]uint, error) {
	m, err := r.rdb.HGetAll(ctx, onlineHash).Result()
	if err != nil {
		return nil, err
	}
	out := make([]uint, 0, len(m))
	for f, v := range m {
		if n, _ := strconv.Atoi(v); n <= 0 {
			continue
		}
		uid, err := strconv.ParseUint(f, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, uint(uid))
	}
	return out, nil
}

func field(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
