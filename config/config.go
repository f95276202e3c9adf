package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	Janus       Janus         `yaml:"janus"`
	Recording   Recording     `yaml:"recording"`
	Auth        Auth          `yaml:"auth"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
}

type RabbitMQ struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	User string `json:"user"`
	Pass string `json:"pass"`
	Kind string `json:"kind"`
}

type Janus struct {
	Url           string        `yaml:"url"`
	AdminKey      string        `yaml:"admin_key"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxPublishers int           `yaml:"max_publishers"`
}

type Recording struct {
	// Dir is the directory the SFU writes raw segment files into when
	// server-side recording is enabled at room creation.
	Dir string `yaml:"dir"`
	// UrlExpiry bounds presigned playback URLs.
	UrlExpiry time.Duration `yaml:"url_expiry"`
}

type Auth struct {
	JwtSecret string `yaml:"jwt_secret"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	janusTimeout := viper.GetDuration("janus.timeout")
	if janusTimeout <= 0 {
		janusTimeout = 10 * time.Second
	}
	maxPublishers := viper.GetInt("janus.max_publishers")
	if maxPublishers <= 0 {
		maxPublishers = 6
	}
	urlExpiry := viper.GetDuration("recording.url_expiry")
	if urlExpiry <= 0 {
		urlExpiry = 2 * time.Hour
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
		},
		Janus: Janus{
			Url:           viper.GetString("janus.url"),
			AdminKey:      viper.GetString("janus.admin_key"),
			Timeout:       janusTimeout,
			MaxPublishers: maxPublishers,
		},
		Recording: Recording{
			Dir:       viper.GetString("recording.dir"),
			UrlExpiry: urlExpiry,
		},
		Auth: Auth{
			JwtSecret: viper.GetString("auth.jwt_secret"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}
