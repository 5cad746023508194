package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "strconv"  // strconv converts strings to other types
    "time"     // time is used for OTP window and expiry durations
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints and durations
// for limits and lifetimes.
type Config struct {
    Env          string        // application environment (e.g. "dev", "prod")
    Port         string        // HTTP port to listen on
    DBUser       string        // database username
    DBPass       string        // database password (optional)
    DBHost       string        // database host address
    DBPort       string        // database port number
    DBName       string        // database name
    JWTSecret    string        // secret used to sign JWTs and registration tokens
    AccessTTLMin int           // access token time‑to‑live in minutes
    BcryptCost   int           // bcrypt cost for password hashing
    OTPLength    int           // number of digits in a one-time code
    OTPTTL       time.Duration // how long a one-time code stays valid
    OTPWindowCap int           // max OTP requests per email per window
    OTPWindow    time.Duration // length of the OTP issuance rate-limit window
}

// DevMode reports whether the application is allowed to expose
// diagnostic behaviour such as logging plaintext one-time codes
// instead of emailing them.  It is never true when APP_ENV is "prod".
func (c Config) DevMode() bool {
    return c.Env != "prod"
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  OTP parameters have
// sensible defaults and only need to be set to deviate from them.
func Load() Config {
    return Config{
        Env:          must("APP_ENV"),           // environment (dev/test/prod)
        Port:         must("APP_PORT"),          // port to bind the HTTP server
        DBUser:       must("DB_USER"),           // database user
        DBPass:       os.Getenv("DB_PASS"),      // database password (empty allowed)
        DBHost:       must("DB_HOST"),           // database host
        DBPort:       must("DB_PORT"),           // database port
        DBName:       must("DB_NAME"),           // database name
        JWTSecret:    must("JWT_SECRET"),        // secret for signing JWTs
        AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"), // TTL for access tokens in minutes
        BcryptCost:   mustInt("BCRYPT_COST"),    // bcrypt cost factor
        OTPLength:    defInt("OTP_LENGTH", 6),                    // 6-digit codes
        OTPTTL:       defDur("OTP_TTL", 5*time.Minute),           // codes expire after 5 minutes
        OTPWindowCap: defInt("OTP_RATE_LIMIT_MAX", 3),            // 3 requests ...
        OTPWindow:    defDur("OTP_RATE_LIMIT_WINDOW", 10*time.Minute), // ... per 10 minutes
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// defInt reads an optional integer variable, falling back to def when the
// variable is unset or malformed.
func defInt(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, v)
    }
    return n
}

// defDur reads an optional duration variable (e.g. "5m"), falling back to
// def when unset.
func defDur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    d, err := time.ParseDuration(v)
    if err != nil {
        log.Fatalf("invalid duration for %s: %q", key, v)
    }
    return d
}
