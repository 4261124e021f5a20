package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"leafsense_back_end/internal/config"
	"leafsense_back_end/internal/models"
)

// Postgres is required. The other backends are optional and stay nil when
// they are not configured or unreachable.
var (
	DB      *gorm.DB
	Redis   *redis.Client
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
	Scylla  *gocql.Session
)

func ConnectDatabases(cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := connectPostgres(cfg); err != nil {
		log.Fatalf("❌ PostgreSQL: %v", err)
	}
	connectRedis(ctx, cfg)
	connectElastic(cfg)
	connectMinIO(ctx, cfg)
	connectScylla(cfg)

	log.Println("✅ Databases connected")
}

// =============================================
// POSTGRES
// =============================================

func connectPostgres(cfg *config.Config) error {
	level := logger.Warn
	if !cfg.IsProduction() {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return err
	}
	DB = db
	log.Println("✅ Connected to PostgreSQL")
	return nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// =============================================
// REDIS
// =============================================

func connectRedis(ctx context.Context, cfg *config.Config) {
	if cfg.RedisAddr == "" {
		log.Println("⚠️ REDIS_HOST not set, rate limiting and live order updates are disabled")
		return
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis unreachable at %s: %v", cfg.RedisAddr, err)
		client.Close()
		return
	}
	Redis = client
	log.Println("✅ Connected to Redis")
}

// =============================================
// ELASTICSEARCH
// =============================================

func connectElastic(cfg *config.Config) {
	if cfg.ElasticURL == "" {
		log.Println("⚠️ ELASTIC_URL not set, product search falls back to SQL")
		return
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		log.Printf("⚠️ Elasticsearch client: %v", err)
		return
	}
	res, err := client.Info()
	if err != nil {
		log.Printf("⚠️ Elasticsearch unreachable: %v", err)
		return
	}
	res.Body.Close()

	Elastic = client
	log.Println("✅ Connected to Elasticsearch")
}

// =============================================
// MINIO
// =============================================

func connectMinIO(ctx context.Context, cfg *config.Config) {
	if cfg.MinioEndpoint == "" {
		log.Println("⚠️ MINIO_ENDPOINT not set, predictions will not be saved")
		return
	}
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		log.Printf("⚠️ MinIO client: %v", err)
		return
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		log.Printf("⚠️ MinIO unreachable: %v", err)
		return
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			log.Printf("⚠️ MinIO bucket %s: %v", cfg.MinioBucket, err)
			return
		}
		log.Println("🪣 Bucket created:", cfg.MinioBucket)
	} else {
		log.Println("🪣 Bucket already present:", cfg.MinioBucket)
	}

	MinIO = client
	log.Println("✅ Connected to MinIO:", cfg.MinioEndpoint)
}

// =============================================
// SCYLLA (audit log)
// =============================================

func connectScylla(cfg *config.Config) {
	if len(cfg.ScyllaHosts) == 0 {
		log.Println("⚠️ SCYLLA_HOSTS not set, audit entries go to the application log")
		return
	}
	cluster := gocql.NewCluster(cfg.ScyllaHosts...)
	cluster.Keyspace = cfg.ScyllaKeyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ReconnectInterval = time.Second
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	if cfg.ScyllaUser != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.ScyllaUser,
			Password: cfg.ScyllaPassword,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		log.Printf("⚠️ ScyllaDB unreachable: %v", err)
		return
	}
	err = session.Query(`CREATE TABLE IF NOT EXISTS audit_logs (
		id uuid PRIMARY KEY,
		user_id bigint,
		user_email text,
		action text,
		resource text,
		resource_id text,
		ip_address text,
		user_agent text,
		success boolean,
		status_code int,
		timestamp timestamp
	)`).Exec()
	if err != nil {
		log.Printf("⚠️ ScyllaDB audit_logs table: %v", err)
		session.Close()
		return
	}
	Scylla = session
	log.Printf("✅ ScyllaDB session for keyspace '%s'", cfg.ScyllaKeyspace)
}

func Close() {
	if Redis != nil {
		Redis.Close()
	}
	if Scylla != nil {
		Scylla.Close()
	}
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
