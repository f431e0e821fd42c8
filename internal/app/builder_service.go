package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	s3blob "evergreen/internal/blob/s3"
	rediscache "evergreen/internal/cache/redis"
	"evergreen/internal/config"
	"evergreen/internal/gateway/notifier"
	"evergreen/internal/logger"
	"evergreen/internal/service"
	"evergreen/internal/store"
	"evergreen/internal/store/postgres"
	"evergreen/internal/store/sqlite"
)

// storeOpener picks the backend by driver. nil means persistence is off.
func storeOpener(cfg config.StoreConfig) store.Opener {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "sqlite":
		path := cfg.SqlitePath
		return func(context.Context) (store.DecisionStore, error) {
			s, err := sqlite.NewSqliteStore(path)
			if err != nil {
				return nil, fmt.Errorf("初始化 sqlite 存储失败: %w", err)
			}
			return s, nil
		}
	case "postgres":
		pgCfg := postgres.ClientConfig{DSN: cfg.PostgresDSN, MaxConns: cfg.MaxConns}
		return func(ctx context.Context) (store.DecisionStore, error) {
			s, err := postgres.Open(ctx, pgCfg)
			if err != nil {
				return nil, fmt.Errorf("初始化 postgres 存储失败: %w", err)
			}
			return s, nil
		}
	default:
		return nil
	}
}

// sinkSetup carries the optional publish destinations built from config.
type sinkSetup struct {
	list    []service.Sink
	cache   *rediscache.DecisionCache
	closers []namedCloser
}

// buildSinks connects the optional sinks. A sink that cannot be reached at
// startup is skipped with a warning; decisions still run without it.
func buildSinks(ctx context.Context, cfg *config.Config) (sinkSetup, error) {
	var out sinkSetup

	if rc := cfg.Cache.Redis; rc.Enabled {
		client, err := rediscache.New(ctx, rediscache.ClientConfig{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		if err != nil {
			logger.Warnf("redis 缓存不可用，已跳过: %v", err)
		} else {
			out.cache = rediscache.NewDecisionCache(client, time.Duration(rc.TTLSeconds)*time.Second)
			out.list = append(out.list, service.CacheSink(out.cache))
			out.closers = append(out.closers, namedCloser{name: "redis", close: client.Close})
			logger.Infof("✓ redis 缓存已连接 %s", rc.Addr)
		}
	}

	if sc := cfg.Archive.S3; sc.Enabled {
		client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       sc.Endpoint,
			Region:         sc.Region,
			Bucket:         sc.Bucket,
			AccessKey:      sc.AccessKey,
			SecretKey:      sc.SecretKey,
			UseSSL:         true,
			ForcePathStyle: sc.ForcePathStyle,
		})
		if err != nil {
			return sinkSetup{}, fmt.Errorf("初始化 s3 归档失败: %w", err)
		}
		if err := client.Health(ctx); err != nil {
			logger.Warnf("s3 bucket %s 不可达，归档仍会按需重试: %v", sc.Bucket, err)
		}
		out.list = append(out.list, service.ArchiveSink(s3blob.NewArchiver(client, sc.Prefix)))
		logger.Infof("✓ s3 归档 bucket=%s prefix=%s", sc.Bucket, sc.Prefix)
	}

	if tg := newTelegram(cfg.Notify); tg != nil {
		out.list = append(out.list, service.NotifySink(tg))
		logger.Infof("✓ Telegram 通知已启用")
	}
	return out, nil
}

func newTelegram(cfg config.NotifyConfig) *notifier.Telegram {
	if !cfg.Telegram.Enabled {
		return nil
	}
	return notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
}
