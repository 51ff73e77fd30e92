package database

import (
	"errors"
	"net/url"
	"os"
)

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	DBName   string
	SSLMode  string

	// суперпользователь нужен только для создания базы при первом запуске
	SuperUser     string
	SuperPassword string
}

func NewDBConfigFromEnv() DBConfig {
	return DBConfig{
		User:          os.Getenv("DB_USER"),
		Password:      os.Getenv("DB_PASSWORD"),
		Host:          os.Getenv("DB_HOST"),
		Port:          os.Getenv("DB_PORT"),
		DBName:        os.Getenv("DB_NAME"),
		SSLMode:       os.Getenv("DB_SSLMODE"),
		SuperUser:     os.Getenv("DB_SUPERUSER"),
		SuperPassword: os.Getenv("DB_SUPERPASSWORD"),
	}
}

func (c DBConfig) Validate() error {
	if c.User == "" || c.Host == "" || c.Port == "" || c.DBName == "" {
		return errors.New("DB config incomplete: DB_USER/DB_HOST/DB_PORT/DB_NAME must be set")
	}
	return nil
}

func (c DBConfig) sslMode() string {
	if c.SSLMode == "" {
		return "disable"
	}
	return c.SSLMode
}

// TargetDSN создаёт корректный DSN (URL encoded)
func (c DBConfig) TargetDSN() string {
	return c.dsn(c.User, c.Password, c.DBName)
}

// AdminDSN строит DSN для суперпользователя (база postgres)
func (c DBConfig) AdminDSN() string {
	if c.SuperUser == "" {
		return ""
	}
	return c.dsn(c.SuperUser, c.SuperPassword, "postgres")
}

func (c DBConfig) dsn(user, pass, db string) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + db,
	}
	q := u.Query()
	q.Set("sslmode", c.sslMode())
	u.RawQuery = q.Encode()
	return u.String()
}
