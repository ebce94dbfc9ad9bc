package main

import (
	"context"
	"log"

	config "github.com/anjiri1684/tutor_booking/configs"
	"github.com/anjiri1684/tutor_booking/database"
	"github.com/anjiri1684/tutor_booking/jobs"
	"github.com/anjiri1684/tutor_booking/metrics"
	"github.com/anjiri1684/tutor_booking/notifications"
	"github.com/anjiri1684/tutor_booking/realtime"
	"github.com/anjiri1684/tutor_booking/routes"
	"github.com/anjiri1684/tutor_booking/services"
	"github.com/redis/go-redis/v9"
)

func main() {
	database.ConnectDB()
	database.Migrate()
	database.SeedAdmin()
	notifications.InitEmailService()

	if url := config.Config("CLOUDINARY_URL"); url != "" {
		storage, err := services.NewCloudinaryStorage(url)
		if err != nil {
			log.Fatalf("🔥 Failed to initialize Cloudinary: %v", err)
		}
		services.Storage = storage
		log.Println("✅ Cloudinary storage configured.")
	} else {
		log.Println("⚠️ CLOUDINARY_URL not set, profile picture uploads are disabled.")
	}

	notifications.Toasts = notifications.NewRelay(
		config.Duration("TOAST_TTL", notifications.DefaultToastTTL),
		realtime.Default,
	)
	realtime.Default.OnCountChange = func(n int) {
		metrics.LiveSubscriptions.Set(float64(n))
	}

	if addr := config.Config("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.Config("REDIS_PASSWORD"),
			DB:       config.Int("REDIS_DB", 0),
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Printf("⚠️ Redis unreachable at %s, realtime stays local: %v", addr, err)
		} else {
			realtime.Default.UseRedis(context.Background(), client, config.Get("REDIS_CHANNEL", "tutor_booking:events"))
		}
	}

	scheduler, err := jobs.NewScheduler()
	if err != nil {
		log.Fatalf("🔥 Failed to schedule jobs: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Println("✅ Cron jobs for pending-request nudges and reminders scheduled successfully.")

	app := routes.NewApp()

	port := config.Get("PORT", "8080")
	log.Printf("✅ Server is running on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
