package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"leafsense_back_end/internal/config"
	"leafsense_back_end/internal/database"
	"leafsense_back_end/internal/seed"
)

func main() {
	name := flag.String("admin-name", "LeafSense Admin", "admin display name")
	email := flag.String("admin-email", os.Getenv("ADMIN_EMAIL"), "admin email (skips the admin when empty)")
	password := flag.String("admin-password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	coupons := flag.Bool("coupons", false, "create the sample coupons")
	validity := flag.Duration("coupon-validity", 90*24*time.Hour, "how long sample coupons stay valid")
	flag.Parse()

	cfg := config.Load()
	database.ConnectDatabases(cfg)
	defer database.Close()

	ctx := context.Background()
	if *email != "" {
		if _, err := seed.Admin(ctx, database.DB, *name, *email, *password); err != nil {
			log.Fatalf("❌ Admin: %v", err)
		}
	}
	if *coupons {
		if _, err := seed.Coupons(ctx, database.DB, *validity); err != nil {
			log.Fatalf("❌ Coupons: %v", err)
		}
	}
}
