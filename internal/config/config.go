package config

import (
	"github.com/joho/godotenv"
	"os"
)

type Config struct {
	MongoURI   string
	ServerPort string
	JWTSecret  string
	RedisAddr  string

	TwilioAccountSID string
	TwilioAuthToken  string
	SMSFrom          string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	return &Config{
		MongoURI:         os.Getenv("MONGO_URI"),
		ServerPort:       os.Getenv("SERVER_PORT"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		SMSFrom:          os.Getenv("SMS_FROM"),
	}, nil
}
