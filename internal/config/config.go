package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Version string       `yaml:"version" json:"version"`
	Server  ServerConfig `yaml:"server" json:"server"`
	Auth    AuthConfig   `yaml:"auth" json:"auth"`
	OAuth   OAuthConfig  `yaml:"oauth" json:"oauth"`
	Email   EmailConfig  `yaml:"email" json:"email"`
	Reset   ResetConfig  `yaml:"reset" json:"reset"`

	// Categories maps category id -> reward/lock tuning. The table is
	// configuration, not a constant: point values and lock durations have
	// drifted across releases and deployments pin their own version.
	Categories map[string]Category `yaml:"categories" json:"categories"`

	// Ranks is the ladder in ascending required-points order.
	Ranks []Rank `yaml:"ranks" json:"ranks"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr" json:"addr"`
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

type AuthConfig struct {
	CookieName      string `yaml:"cookie_name" json:"cookie_name"`
	SessionTTLHours int    `yaml:"session_ttl_hours" json:"session_ttl_hours"`
}

type OAuthConfig struct {
	Provider     string `yaml:"provider" json:"provider"`
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"-"`
	AuthURL      string `yaml:"auth_url" json:"auth_url"`
	TokenURL     string `yaml:"token_url" json:"token_url"`
	UserInfoURL  string `yaml:"user_info_url" json:"user_info_url"`
	RedirectURL  string `yaml:"redirect_url" json:"redirect_url"`
	StateSecret  string `yaml:"state_secret" json:"-"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host" json:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port" json:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user" json:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password" json:"-"`
	SenderEmail  string `yaml:"sender_email" json:"sender_email"`
	SendHourUTC  int    `yaml:"send_hour_utc" json:"send_hour_utc"`
}

type ResetConfig struct {
	// AfterHours is how long a task stays completed before the daily
	// reset flips it back to pending.
	AfterHours int `yaml:"after_hours" json:"after_hours"`
	// SweepMinutes is how often the background sweep runs.
	SweepMinutes int `yaml:"sweep_minutes" json:"sweep_minutes"`
}

type Category struct {
	Label       string `yaml:"label" json:"label"`
	Points      int    `yaml:"points" json:"points"`
	LockMinutes int    `yaml:"lock_minutes" json:"lock_minutes"`
}

type Rank struct {
	Name           string `yaml:"name" json:"name"`
	RequiredPoints int    `yaml:"required_points" json:"required_points"`
	Color          string `yaml:"color" json:"color"`
	Icon           string `yaml:"icon" json:"icon"`
}

func DefaultCategories() map[string]Category {
	return map[string]Category{
		"daily":     {Label: "Daily", Points: 5, LockMinutes: 15},
		"weekly":    {Label: "Weekly", Points: 10, LockMinutes: 60},
		"important": {Label: "Important", Points: 15, LockMinutes: 30},
		"personal":  {Label: "Personal", Points: 8, LockMinutes: 20},
		"work":      {Label: "Work", Points: 12, LockMinutes: 45},
		"challenge": {Label: "Challenge", Points: 25, LockMinutes: 90},
	}
}

func DefaultRanks() []Rank {
	return []Rank{
		{Name: "E-Rank Hunter", RequiredPoints: 0, Color: "gray", Icon: "shield"},
		{Name: "D-Rank Hunter", RequiredPoints: 100, Color: "blue", Icon: "shield"},
		{Name: "C-Rank Hunter", RequiredPoints: 300, Color: "green", Icon: "shield"},
		{Name: "B-Rank Hunter", RequiredPoints: 600, Color: "yellow", Icon: "shield"},
		{Name: "A-Rank Hunter", RequiredPoints: 1000, Color: "orange", Icon: "shield"},
		{Name: "S-Rank Hunter", RequiredPoints: 1500, Color: "red", Icon: "shield"},
		{Name: "National Level Hunter", RequiredPoints: 2500, Color: "purple", Icon: "trophy"},
		{Name: "Shadow Monarch", RequiredPoints: 5000, Color: "purple-dark", Icon: "crown"},
	}
}

func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.DataDir == "" {
		c.Server.DataDir = "data"
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "levelup_session"
	}
	if c.Auth.SessionTTLHours <= 0 {
		c.Auth.SessionTTLHours = 7 * 24
	}
	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}
	if c.Email.SenderEmail == "" {
		c.Email.SenderEmail = "noreply@levelup.local"
	}
	if c.Email.SendHourUTC <= 0 {
		c.Email.SendHourUTC = 18
	}
	if c.Reset.AfterHours <= 0 {
		c.Reset.AfterHours = 24
	}
	if c.Reset.SweepMinutes <= 0 {
		c.Reset.SweepMinutes = 60
	}
	if len(c.Categories) == 0 {
		c.Categories = DefaultCategories()
	}
	if len(c.Ranks) == 0 {
		c.Ranks = DefaultRanks()
	}
}

// Validate rejects configs the rank resolver and task lifecycle cannot
// operate on: an empty ladder, out-of-order thresholds, or a category
// without a reward.
func (c *Config) Validate() error {
	if len(c.Ranks) == 0 {
		return fmt.Errorf("ranks: ladder must not be empty")
	}
	if !sort.SliceIsSorted(c.Ranks, func(i, j int) bool {
		return c.Ranks[i].RequiredPoints < c.Ranks[j].RequiredPoints
	}) {
		return fmt.Errorf("ranks: required_points must be strictly increasing")
	}
	for i := 1; i < len(c.Ranks); i++ {
		if c.Ranks[i].RequiredPoints == c.Ranks[i-1].RequiredPoints {
			return fmt.Errorf("ranks: duplicate threshold %d", c.Ranks[i].RequiredPoints)
		}
	}
	if c.Ranks[0].RequiredPoints != 0 {
		return fmt.Errorf("ranks: lowest rank must start at 0 points")
	}
	for id, cat := range c.Categories {
		if cat.Points <= 0 {
			return fmt.Errorf("categories.%s: points must be positive", id)
		}
		if cat.LockMinutes < 0 {
			return fmt.Errorf("categories.%s: lock_minutes must not be negative", id)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	ApplyEnv(&c)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns a ready-to-run config without reading any file.
func Default() *Config {
	var c Config
	c.ApplyDefaults()
	return &c
}
