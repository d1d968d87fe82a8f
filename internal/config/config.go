package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port                 int
	DBDSN                string
	JWTSecret            string
	WSInsecureSkipVerify bool

	// Empty means process-local presence; set to share counts between
	// instances.
	RedisAddr string

	// Push backend selection happens once at startup: FCM wins if a
	// credentials file is configured, web-push if VAPID keys are, otherwise
	// push is disabled.
	FCMCredentialsFile string
	VAPIDPublicKey     string
	VAPIDPrivateKey    string
	VAPIDSubscriber    string

	LogLevel string
	LogDev   bool
}

func Load() Config {
	port := 8084
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}

	wsInsecure := false
	if os.Getenv("WS_INSECURE_SKIP_VERIFY") == "true" {
		wsInsecure = true
	}

	return Config{
		Port:                 port,
		DBDSN:                os.Getenv("DB_DSN"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		WSInsecureSkipVerify: wsInsecure,
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		FCMCredentialsFile:   os.Getenv("FCM_CREDENTIALS_FILE"),
		VAPIDPublicKey:       os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey:      os.Getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubscriber:      os.Getenv("VAPID_SUBSCRIBER"),
		LogLevel:             os.Getenv("LOG_LEVEL"),
		LogDev:               os.Getenv("LOG_DEV") == "true",
	}
}
