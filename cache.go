package sensibohkbridge

import (
	"context"
	"path/filepath"

	"github.com/brutella/hap/log"

	"github.com/cloudkucooland/HomeKitBridges/SensiboHKBridge/store"
)

const (
	cachedirname = "startupcache"
	redisPrefix  = "shkb:"
)

// OpenStore opens the startup cache the config asks for; the file cache
// lives under dir
func OpenStore(ctx context.Context, conf *Config, dir string) (store.Store, error) {
	switch conf.Store {
	case StoreRedis:
		client, err := store.DialRedis(ctx, conf.RedisAddr, conf.RedisPassword, conf.RedisDB)
		if err != nil {
			log.Info.Printf("unable to open redis startup cache: %s", err.Error())
			return nil, err
		}
		log.Info.Printf("startup cache in redis at %s", conf.RedisAddr)
		return store.NewRedisStore(client, redisPrefix), nil
	default:
		fp := filepath.Join(dir, cachedirname)
		fs, err := store.NewFileStore(fp)
		if err != nil {
			log.Info.Printf("unable to open startup cache: %s", err.Error())
			return nil, err
		}
		log.Debug.Printf("startup cache in %s", fp)
		return fs, nil
	}
}
