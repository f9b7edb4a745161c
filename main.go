package main

import (
	"log"
	"net/http"
	"os"

	"akkani-backend/config"
	"akkani-backend/controllers/authentication"
	"akkani-backend/controllers/calendarapi"
	"akkani-backend/controllers/httpCors"
	testimonialapi "akkani-backend/controllers/testimonials"
	"akkani-backend/models/testimonials"
	"akkani-backend/models/users"
	"akkani-backend/services"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := config.InitDB(); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	err := config.DB.AutoMigrate(
		&users.User{},
		&users.OAuthToken{},
		&testimonials.Testimonial{},
	)
	if err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	googleCfg := config.LoadGoogleConfig()
	smtpCfg := config.LoadSMTPConfig()

	store := services.NewTokenStore(config.DB)
	flow := services.NewAuthorizationFlow(googleCfg, store)
	broker := services.NewCredentialBroker(store)
	events := services.NewEventOrchestrator(broker)
	mailer := services.NewNotificationDispatcher(smtpCfg)

	googleAuth := &authentication.GoogleAuthController{Flow: flow, Store: store}
	calendarCtrl := &calendarapi.Controller{Events: events, Mailer: mailer}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	testimonialCtrl := &testimonialapi.Controller{DB: config.DB, UploadDir: uploadDir}

	http.HandleFunc("/register", authentication.Register)
	http.HandleFunc("/login", authentication.Login)
	http.HandleFunc("/profile", authentication.GetProfile)
	http.HandleFunc("/logout", authentication.Logout)

	http.HandleFunc("/auth/google/connect", googleAuth.Connect)
	http.HandleFunc("/auth/google/callback", googleAuth.Callback)
	http.HandleFunc("/auth/google/status", googleAuth.Status)
	http.HandleFunc("/auth/google", googleAuth.Revoke)

	http.HandleFunc("/api/v1/calendar/events", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			calendarCtrl.CreateEvent(w, r)
		case http.MethodGet:
			calendarCtrl.ListEvents(w, r)
		case http.MethodDelete:
			calendarCtrl.DeleteEvent(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	http.HandleFunc("/api/v1/schedule-meeting", calendarCtrl.ScheduleMeeting)

	http.HandleFunc("/api/v1/testimonials", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			testimonialCtrl.Create(w, r)
		case http.MethodGet:
			if r.URL.Query().Get("id") != "" {
				testimonialCtrl.Get(w, r)
			} else {
				testimonialCtrl.List(w, r)
			}
		case http.MethodPut:
			testimonialCtrl.Update(w, r)
		case http.MethodDelete:
			testimonialCtrl.Delete(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	http.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir))))

	handler := httpCors.CorsSettings().Handler(http.DefaultServeMux)

	log.Printf("server listening on port %s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
