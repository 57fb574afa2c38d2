package config

import (
	"os"
	"strconv"
)

// ApplyEnv overrides secrets and deployment-specific settings from the
// environment so the YAML file never has to carry credentials.
func ApplyEnv(c *Config) {
	if v := os.Getenv("LEVELUP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LEVELUP_DATA_DIR"); v != "" {
		c.Server.DataDir = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.Email.SMTPHost = v
	}
	if v := getEnvInt("SMTP_PORT"); v > 0 {
		c.Email.SMTPPort = v
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		c.Email.SMTPUser = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Email.SMTPPassword = v
	}
	if v := os.Getenv("SENDER_EMAIL"); v != "" {
		c.Email.SenderEmail = v
	}
	if v := os.Getenv("OAUTH_CLIENT_ID"); v != "" {
		c.OAuth.ClientID = v
	}
	if v := os.Getenv("OAUTH_CLIENT_SECRET"); v != "" {
		c.OAuth.ClientSecret = v
	}
	if v := os.Getenv("OAUTH_STATE_SECRET"); v != "" {
		c.OAuth.StateSecret = v
	}
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}
