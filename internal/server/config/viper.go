package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. IDV_JWT_SECRET.
const EnvPrefix = "IDV"

// Keys understood by Load.
const (
	KeyHTTPAddr          = "http_addr"
	KeyLogLevel          = "log_level"
	KeyStoreBackend      = "store_backend"
	KeyDatabaseDSN       = "database_dsn"
	KeyDBConnectRetries  = "db_connect_retries"
	KeyDynamoDBTable     = "dynamodb_table"
	KeyDynamoDBEndpoint  = "dynamodb_endpoint"
	KeyAWSRegion         = "aws_region"
	KeyAWSAccessKey      = "aws_access_key"
	KeyAWSSecretKey      = "aws_secret_key"
	KeyJWTSecret         = "jwt_secret"
	KeyJWTTTL            = "jwt_ttl"
	KeyPasswordAlgorithm = "password_algorithm"
	KeyPasswordCost      = "password_cost"
	KeyAdminUsername     = "admin_username"
	KeyAdminPasswordHash = "admin_password_hash"
	KeyAdminPassword     = "admin_password"
	KeyS3Bucket          = "s3_bucket"
	KeyS3BaseEndpoint    = "s3_base_endpoint"
	KeyMaxUploadBytes    = "max_upload_bytes"
	KeyRateLimitRPS      = "rate_limit_rps"
	KeyRateLimitBurst    = "rate_limit_burst"
)

// SetDefaults registers LoadDefaults values with v so every key resolves
// even without a config file, and so AutomaticEnv can see it.
func SetDefaults(v *viper.Viper) {
	var d Config
	d.LoadDefaults()

	v.SetDefault(KeyHTTPAddr, d.HTTPAddr)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyStoreBackend, d.StoreBackend)
	v.SetDefault(KeyDatabaseDSN, d.DatabaseDSN)
	v.SetDefault(KeyDBConnectRetries, d.DBConnectRetries)
	v.SetDefault(KeyDynamoDBTable, d.DynamoDBTable)
	v.SetDefault(KeyDynamoDBEndpoint, d.DynamoDBEndpoint)
	v.SetDefault(KeyAWSRegion, d.AWSRegion)
	v.SetDefault(KeyAWSAccessKey, d.AWSAccessKey)
	v.SetDefault(KeyAWSSecretKey, d.AWSSecretKey)
	v.SetDefault(KeyJWTSecret, d.JWTSecret)
	v.SetDefault(KeyJWTTTL, d.JWTTTL)
	v.SetDefault(KeyPasswordAlgorithm, d.PasswordAlgorithm)
	v.SetDefault(KeyPasswordCost, d.PasswordCost)
	v.SetDefault(KeyAdminUsername, d.AdminUsername)
	v.SetDefault(KeyAdminPasswordHash, d.AdminPasswordHash)
	v.SetDefault(KeyAdminPassword, d.AdminPassword)
	v.SetDefault(KeyS3Bucket, d.S3Bucket)
	v.SetDefault(KeyS3BaseEndpoint, d.S3BaseEndpoint)
	v.SetDefault(KeyMaxUploadBytes, d.MaxUploadBytes)
	v.SetDefault(KeyRateLimitRPS, d.RateLimitRPS)
	v.SetDefault(KeyRateLimitBurst, d.RateLimitBurst)
}

// Setup prepares v: defaults, IDV_* environment binding and, when cfgFile is
// set, the config file (JSON or YAML by extension). Without cfgFile an
// optional ./idverifier.yaml is read.
func Setup(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("idverifier")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	// An exported but empty variable clears a default, e.g. IDV_ADMIN_PASSWORD=.
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return err
		}
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Load reads a Config out of a prepared viper instance and validates it.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		HTTPAddr:          v.GetString(KeyHTTPAddr),
		LogLevel:          v.GetString(KeyLogLevel),
		StoreBackend:      strings.ToLower(strings.TrimSpace(v.GetString(KeyStoreBackend))),
		DatabaseDSN:       v.GetString(KeyDatabaseDSN),
		DBConnectRetries:  v.GetInt(KeyDBConnectRetries),
		DynamoDBTable:     v.GetString(KeyDynamoDBTable),
		DynamoDBEndpoint:  v.GetString(KeyDynamoDBEndpoint),
		AWSRegion:         v.GetString(KeyAWSRegion),
		AWSAccessKey:      v.GetString(KeyAWSAccessKey),
		AWSSecretKey:      v.GetString(KeyAWSSecretKey),
		JWTSecret:         v.GetString(KeyJWTSecret),
		JWTTTL:            v.GetDuration(KeyJWTTTL),
		PasswordAlgorithm: v.GetString(KeyPasswordAlgorithm),
		PasswordCost:      v.GetInt(KeyPasswordCost),
		AdminUsername:     v.GetString(KeyAdminUsername),
		AdminPasswordHash: v.GetString(KeyAdminPasswordHash),
		AdminPassword:     v.GetString(KeyAdminPassword),
		S3Bucket:          v.GetString(KeyS3Bucket),
		S3BaseEndpoint:    v.GetString(KeyS3BaseEndpoint),
		MaxUploadBytes:    v.GetInt64(KeyMaxUploadBytes),
		RateLimitRPS:      v.GetFloat64(KeyRateLimitRPS),
		RateLimitBurst:    v.GetInt(KeyRateLimitBurst),
	}

	// The plaintext admin password is only a fallback for a missing hash.
	if c.AdminPasswordHash != "" {
		c.AdminPassword = ""
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
