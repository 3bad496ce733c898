package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	App struct {
		Port        string   `mapstructure:"port"`
		Env         string   `mapstructure:"env"`
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"app"`
	DB struct {
		Driver        string `mapstructure:"driver"`
		DSN           string `mapstructure:"dsn"`
		MigrationsDir string `mapstructure:"migrations_dir"`
		MaxConns      int32  `mapstructure:"max_conns"`
	} `mapstructure:"db"`
	Mongo struct {
		URI        string `mapstructure:"uri"`
		Database   string `mapstructure:"database"`
		Collection string `mapstructure:"collection"`
	} `mapstructure:"mongo"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		CacheTTL time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
	} `mapstructure:"kafka"`
	Cloudinary struct {
		CloudName     string        `mapstructure:"cloud_name"`
		ApiKey        string        `mapstructure:"api_key"`
		ApiSecret     string        `mapstructure:"api_secret"`
		Folder        string        `mapstructure:"folder"`
		UploadTimeout time.Duration `mapstructure:"upload_timeout"`
	} `mapstructure:"cloudinary"`
	Password struct {
		BcryptCost int `mapstructure:"bcrypt_cost"`
	} `mapstructure:"password"`
	Jaeger struct {
		OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
		SampleRatio  float64 `mapstructure:"sample_ratio"`
	} `mapstructure:"jaeger"`
	Mailgun struct {
		Domain string `mapstructure:"domain"`
		APIKey string `mapstructure:"api_key"`
		Sender string `mapstructure:"sender"`
	} `mapstructure:"mailgun"`
	Log struct {
		File string `mapstructure:"file"`
	} `mapstructure:"log"`
}

// LoadConfig reads .env, then an optional config.yaml from the given paths
// (default "."), then environment variables, which win.
func LoadConfig(paths ...string) (cfg Config, err error) {
	v := viper.New()

	if len(paths) == 0 {
		paths = []string{"."}
	}

	for _, p := range paths {
		if err := godotenv.Load(p + "/.env"); err == nil {
			break
		}
	}

	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err = v.ReadInConfig(); err != nil {
		log.Printf("note: config.yaml not found, read environment only. Error: %v", err)
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("app.port", "PORT", "APP_PORT")
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("app.cors_origins", "CORS_ORIGINS")
	v.BindEnv("db.driver", "DB_DRIVER")
	v.BindEnv("db.dsn", "DB_DSN")
	v.BindEnv("db.migrations_dir", "DB_MIGRATIONS_DIR")
	v.BindEnv("db.max_conns", "DB_MAX_CONNS")
	v.BindEnv("mongo.uri", "MONGODB_CONNECTION_STRING", "MONGO_URI")
	v.BindEnv("mongo.database", "MONGO_DATABASE")
	v.BindEnv("mongo.collection", "MONGO_COLLECTION")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("redis.cache_ttl", "REDIS_CACHE_TTL")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("password.bcrypt_cost", "BCRYPT_COST")
	v.BindEnv("jaeger.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("jaeger.sample_ratio", "OTEL_TRACES_SAMPLER_ARG")
	v.BindEnv("log.file", "LOG_FILE")

	v.BindEnv("cloudinary.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("cloudinary.api_key", "CLOUDINARY_API_KEY")
	v.BindEnv("cloudinary.api_secret", "CLOUDINARY_SECRET", "CLOUDINARY_API_SECRET")
	v.BindEnv("cloudinary.folder", "CLOUDINARY_FOLDER")
	v.BindEnv("cloudinary.upload_timeout", "CLOUDINARY_UPLOAD_TIMEOUT")

	v.BindEnv("mailgun.domain", "MAILGUN_DOMAIN")
	v.BindEnv("mailgun.api_key", "MAILGUN_API_KEY")
	v.BindEnv("mailgun.sender", "MAILGUN_SENDER")

	if err = v.Unmarshal(&cfg); err != nil {
		return
	}
	cfg.DB.Driver = resolveDriver(cfg)
	return
}

// resolveDriver keeps an explicit db.driver. Otherwise the user store is
// MongoDB, unless only a Postgres DSN was configured.
func resolveDriver(cfg Config) string {
	if cfg.DB.Driver != "" {
		return cfg.DB.Driver
	}
	if cfg.DB.DSN != "" && cfg.Mongo.URI == "" {
		return DriverPostgres
	}
	return DriverMongo
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "3001")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.cors_origins", []string{"*"})
	v.SetDefault("db.migrations_dir", "migrations")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("mongo.database", "directory")
	v.SetDefault("mongo.collection", "users")
	v.SetDefault("redis.cache_ttl", 5*time.Minute)
	v.SetDefault("cloudinary.folder", "avatars")
	v.SetDefault("cloudinary.upload_timeout", 15*time.Second)
	v.SetDefault("password.bcrypt_cost", 10)
	v.SetDefault("jaeger.sample_ratio", 1.0)
}
