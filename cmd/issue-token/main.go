// Command issue-token mints access tokens for local testing and prints fresh
// JWT secrets.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nextstop/booking-backend/internal/utils"
	"github.com/nextstop/booking-backend/pkg/jwt"
	"github.com/spf13/pflag"
)

func main() {
	var (
		username  = pflag.StringP("username", "u", "", "username claim of the token")
		roles     = pflag.StringSlice("roles", []string{"passenger"}, "comma separated roles")
		secret    = pflag.String("secret", os.Getenv("JWT_SECRET"), "HS256 signing secret (default $JWT_SECRET)")
		issuer    = pflag.String("issuer", envOr("JWT_ISSUER", "nextstop"), "issuer claim")
		expiry    = pflag.Duration("expiry", time.Hour, "token lifetime")
		newSecret = pflag.Bool("new-secret", false, "print a new JWT_SECRET and exit")
		bytes     = pflag.Int("secret-bytes", 32, "random bytes in a new secret")
	)
	pflag.Parse()

	if *newSecret {
		s, err := utils.GenerateSecret(*bytes)
		if err != nil {
			fail(err)
		}
		fmt.Printf("JWT_SECRET=%s\n", s)
		return
	}

	if strings.TrimSpace(*username) == "" {
		fail(fmt.Errorf("--username is required"))
	}
	if *secret == "" {
		fail(fmt.Errorf("--secret or JWT_SECRET is required"))
	}

	token, err := jwt.NewService(*secret, *issuer, *expiry).GenerateAccessToken(*username, *roles)
	if err != nil {
		fail(err)
	}
	fmt.Println(token)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "issue-token: %v\n", err)
	os.Exit(1)
}
