package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisURL string

	ServerPort string

	JWTSecret string

	// Timezone is the single fixed timezone all reminder hours and
	// appointment windows are evaluated in.
	Timezone string

	// PushProvider selects the outbound provider: "fcm" or "expo".
	PushProvider string

	FCMProjectID   string
	FCMClientEmail string
	FCMPrivateKey  string

	// MedicationWindowStart/End bound the hourly medication job to the
	// recipients' waking hours (inclusive start, inclusive end).
	MedicationWindowStart int
	MedicationWindowEnd   int

	// AppointmentHour is the local hour at which the daily appointment
	// job fires.
	AppointmentHour int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	timezone := os.Getenv("TIMEZONE")
	if timezone == "" {
		timezone = "Asia/Ho_Chi_Minh"
	}

	pushProvider := os.Getenv("PUSH_PROVIDER")
	if pushProvider == "" {
		pushProvider = "fcm"
	}

	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		RedisURL: redisURL,

		ServerPort: serverPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		Timezone: timezone,

		PushProvider: pushProvider,

		FCMProjectID:   os.Getenv("FCM_PROJECT_ID"),
		FCMClientEmail: os.Getenv("FCM_CLIENT_EMAIL"),
		FCMPrivateKey:  os.Getenv("FCM_PRIVATE_KEY"),

		MedicationWindowStart: intEnv("MEDICATION_WINDOW_START", 9),
		MedicationWindowEnd:   intEnv("MEDICATION_WINDOW_END", 21),
		AppointmentHour:       intEnv("APPOINTMENT_HOUR", 20),
	}, nil
}

func intEnv(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v < 0 || v > 23 {
		return fallback
	}
	return v
}
