package app

import (
	"strings"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/envutil"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/services"
)

type Config struct {
	Addr         string
	AllowOrigins []string
	RedisEnabled bool
	// RedisForward subscribes this instance to the snapshot channel and
	// replays bus snapshots into the local hub, for replica instances that
	// serve dashboards without ingesting events themselves.
	RedisForward bool
	Engine       services.EngineConfig
}

func LoadConfig(log *logger.Logger) Config {
	addr := envutil.String("HTTP_ADDR", ":8080")
	origins := envutil.String("CORS_ALLOW_ORIGINS", "")
	var allow []string
	if origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				allow = append(allow, o)
			}
		}
	}
	return Config{
		Addr:         addr,
		AllowOrigins: allow,
		RedisEnabled: envutil.Bool("REDIS_ENABLED", false),
		RedisForward: envutil.Bool("REDIS_FORWARD", false),
		Engine:       services.LoadEngineConfig(log),
	}
}
