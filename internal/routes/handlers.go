package routes

import (
	"log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"leafsense_back_end/internal/cache"
	"leafsense_back_end/internal/config"
	"leafsense_back_end/internal/coupon"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/handlers/admin"
	"leafsense_back_end/internal/handlers/payment"
	predictionh "leafsense_back_end/internal/handlers/prediction"
	"leafsense_back_end/internal/handlers/product"
	"leafsense_back_end/internal/handlers/user"
	"leafsense_back_end/internal/history"
	"leafsense_back_end/internal/middleware"
	"leafsense_back_end/internal/prediction"
	"leafsense_back_end/internal/services"
	"leafsense_back_end/internal/shop"
	"leafsense_back_end/internal/utils"
)

// Handlers is everything RegisterRoutes mounts.
type Handlers struct {
	Auth       *middleware.Auth
	Cache      *cache.Cache
	Audit      *utils.AuditLogger
	Users      *user.Handler
	Carts      *user.CartHandler
	Orders     *user.OrderHandler
	Prediction *predictionh.Handler
	Products   *product.Handler
	Coupons    *payment.CouponHandler
	Webhooks   *payment.WebhookHandler
	Admin      *admin.Handler
}

// Backends are the connections opened by the database package. Only DB is
// required.
type Backends struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
	Scylla  *gocql.Session
}

// Build assembles the services and handlers over the given backends.
func Build(cfg *config.Config, b Backends) (*Handlers, error) {
	c := cache.New(b.Redis)
	audit := utils.NewAuditLogger(b.Scylla)
	mailer := utils.NewMailer(utils.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	var (
		uploads handlers.Uploader
		blobs   history.BlobStore
	)
	if b.MinIO != nil {
		store := services.NewMinioStore(b.MinIO, cfg.MinioBucket, cfg.MinioPublicURL, cfg.MinioEndpoint, cfg.MinioUseSSL)
		uploads, blobs = store, store
	}

	var index shop.SearchIndex
	if ix := services.NewProductIndex(b.Elastic); ix != nil {
		index = ix
	}

	catalogue, err := prediction.LoadCatalogue()
	if err != nil {
		return nil, err
	}
	inference := prediction.NewInferenceClient(cfg.InferenceURL, cfg.InferenceTimeout)
	var advisor prediction.Advisor
	if cfg.GeminiAPIKey != "" {
		advisor = prediction.NewGeminiAdvisor(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.InferenceTimeout)
	} else {
		log.Println("⚠️ GEMINI_API_KEY not set, treatment advice uses the built-in text")
	}
	records := history.NewStore(b.DB, blobs)
	analyzer := prediction.NewAnalyzer(prediction.Options{
		Catalogue:  catalogue,
		Classifier: inference,
		Segmenter:  inference,
		Advisor:    advisor,
		Recorder:   records,
		MaxDim:     cfg.MaxImageDim,
	})

	coupons := coupon.NewService(b.DB, coupon.NewLedger(b.DB))
	stripe := services.NewStripePayments(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.Currency)
	var (
		payments shop.PaymentProvider
		verifier payment.EventVerifier
	)
	if stripe != nil {
		payments, verifier = stripe, stripe
	}
	orders := shop.NewOrderService(b.DB, coupons, payments, shop.NewNotifications(b.DB, c, mailer))
	catalog := shop.NewCatalog(b.DB, index)

	accounts := user.NewHandler(b.DB, c, mailer, uploads, cfg)
	return &Handlers{
		Auth:       middleware.NewAuth(cfg.JWTSecret, b.DB, c),
		Cache:      c,
		Audit:      audit,
		Users:      accounts,
		Carts:      user.NewCartHandler(shop.NewCartService(b.DB)),
		Orders:     user.NewOrderHandler(orders, c, user.MoMoAccount{Phone: cfg.MoMoPhone, Name: cfg.MoMoName}, cfg.CORSOrigins),
		Prediction: predictionh.NewHandler(analyzer, records, cfg.MaxUploadBytes),
		Products:   product.NewHandler(catalog),
		Coupons:    payment.NewCouponHandler(coupons),
		Webhooks:   payment.NewWebhookHandler(verifier, orders),
		Admin: admin.NewHandler(admin.Deps{
			DB:       b.DB,
			Cache:    c,
			Accounts: accounts,
			Catalog:  catalog,
			Orders:   orders,
			Audit:    audit,
			Blobs:    uploads,
			Config:   cfg,
		}),
	}, nil
}
