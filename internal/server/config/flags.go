package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/librarian/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s", "-t", "-r",
	"-iss", "-aud", "-loan", "-reclaim", "-sweep",
	"-redis", "-login-limit", "-login-window",
	"-u", "-p", "-b", "-g", "-e",
	"-admin-login", "-admin-secret",
	"-log-level",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string             gRPC bind address (e.g., ":50051")
//	-d string             PostgreSQL DSN, or "memory"
//	-s string             JWT HMAC secret key
//	-t int                access token validity, minutes
//	-r int                refresh token validity, minutes
//	-iss string           access token issuer
//	-aud string           access token audience
//	-loan duration        loan period (e.g., "168h")
//	-reclaim duration     overdue reclaim interval
//	-sweep duration       expired credential sweep interval
//	-redis string         Redis address for login throttling
//	-login-limit int      login attempts per window
//	-login-window duration
//	-u string             S3 root user
//	-p string             S3 root password
//	-b string             S3 bucket name
//	-g string             S3 region
//	-e string             S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-admin-login string   bootstrap admin login
//	-admin-secret string  bootstrap admin secret
//	-log-level string     debug, info, warn, error
//
// os.Args is filtered through flagx.FilterArgs first, so flags owned by other
// components do not cause parse errors here.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.TokenIssuer, "iss", config.TokenIssuer, "access token issuer")
	fs.StringVar(&config.TokenAudience, "aud", config.TokenAudience, "access token audience")

	fs.DurationVar(&config.LoanPeriod, "loan", config.LoanPeriod, "loan period")
	fs.DurationVar(&config.ReclaimInterval, "reclaim", config.ReclaimInterval, "overdue reclaim interval")
	fs.DurationVar(&config.CredentialSweepInterval, "sweep", config.CredentialSweepInterval, "expired credential sweep interval")

	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address for login rate limiting")
	fs.IntVar(&config.LoginRateLimit, "login-limit", config.LoginRateLimit, "login attempts per window")
	fs.DurationVar(&config.LoginRateWindow, "login-window", config.LoginRateWindow, "login rate limit window")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.AdminLogin, "admin-login", config.AdminLogin, "bootstrap admin login")
	fs.StringVar(&config.AdminSecret, "admin-secret", config.AdminSecret, "bootstrap admin secret")

	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
}
