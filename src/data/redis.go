package data

import (
	"log"

	"github.com/redis/go-redis/v9"
)

// MustRedis parses the URL and returns a client, or exits the process.
func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}
