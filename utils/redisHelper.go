package utils

import (
	"fmt"
	"reflect"
	"time"

	"github.com/stive2025/collapi-sub001/config"
)

func GetTypeName[T any]() string {
	var v T
	return reflect.TypeOf(v).Name()
}

func redisKey[T any](parts ...any) string {
	key := GetTypeName[T]()
	for _, p := range parts {
		key += ":" + fmt.Sprint(p)
	}
	return key
}

// store instance under Type:part1:part2...
func StoreRedis[T any](obj *T, ttl time.Duration, parts ...any) error {
	return config.SetRedisObject(redisKey[T](parts...), obj, ttl)
}

// get from redis
// returns nil if does not exist
func RetrieveRedis[T any](parts ...any) (*T, error) {
	var result T
	exists, err := config.GetRedisObject(redisKey[T](parts...), &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return &result, nil
}

func RemoveRedisItem[T any](parts ...any) error {
	return config.RemoveRedisKey(redisKey[T](parts...))
}
