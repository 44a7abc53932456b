package config

import (
	"strconv"
	"time"
)

const (
	redisAddrEnvVar     = "REDIS_ADDR"
	redisPasswordEnvVar = "REDIS_PASSWORD"
	redisDBEnvVar       = "REDIS_DB"
	redisPrefixEnvVar   = "REDIS_KEY_PREFIX"
)

type RedisConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
	GetRedisDialTimeout() time.Duration
}

type Redis struct{}

var _ RedisConfig = Redis{}

func (Redis) GetRedisAddr() string {
	return GetEnv(redisAddrEnvVar, "localhost:6379")
}

func (Redis) GetRedisPassword() string {
	return GetEnv(redisPasswordEnvVar, "")
}

func (Redis) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv(redisDBEnvVar, "0"))
	if err != nil {
		return 0
	}
	return db
}

// GetRedisKeyPrefix returns the namespace prepended to every key so that
// several deployments can share one Redis instance.
func (Redis) GetRedisKeyPrefix() string {
	return GetEnv(redisPrefixEnvVar, "broker")
}

func (Redis) GetRedisDialTimeout() time.Duration {
	return 5 * time.Second
}
