package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jacentio/itemsvc/api"
	"github.com/jacentio/itemsvc/store"
)

// Wrap is the number of characters to wrap the help text at
const Wrap = 50

// Configuration keys. With the env key replacer each one is also read from
// the upper-cased environment variable, e.g. dynamodb-table <- DYNAMODB_TABLE.
const (
	keyTable           = "dynamodb-table"
	keyEndpoint        = "dynamodb-endpoint"
	keyDefaultPageSize = "default-page-size"
	keyMaxPageSize     = "max-page-size"
	keyStagePrefixes   = "stage-prefixes"
	keyLogLevel        = "log-level"
	keyLogFormat       = "log-format"
)

// settings is the process configuration shared by every command.
type settings struct {
	Table           string
	Endpoint        string
	DefaultPageSize int
	MaxPageSize     int
	StagePrefixes   []string
	LogLevel        slog.Level
	LogFormat       string
}

// storeConfig converts the settings into a store.Config.
func (s settings) storeConfig() store.Config {
	return store.Config{
		Table:           s.Table,
		DefaultPageSize: s.DefaultPageSize,
		MaxPageSize:     s.MaxPageSize,
	}
}

// setupFlags adds the shared configuration flags to a command
func setupFlags(cmd *cobra.Command) {
	defaults := store.DefaultConfig()

	cmd.PersistentFlags().String(keyTable, "", WrapString("Name of the DynamoDB table holding the items (required for the dynamodb engine)"))
	cmd.PersistentFlags().String(keyEndpoint, "", WrapString("Override the DynamoDB endpoint, e.g. http://localhost:8000 for DynamoDB Local"))
	cmd.PersistentFlags().Int(keyDefaultPageSize, defaults.DefaultPageSize, WrapString("Number of items a list returns when the caller gives no limit"))
	cmd.PersistentFlags().Int(keyMaxPageSize, defaults.MaxPageSize, WrapString("Largest page a list returns; larger limits are clamped"))
	cmd.PersistentFlags().String(keyStagePrefixes, strings.Join(api.DefaultStagePrefixes, ","), WrapString("Comma-separated API Gateway stage names stripped from request paths"))
	cmd.PersistentFlags().String(keyLogLevel, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
	cmd.PersistentFlags().String(keyLogFormat, "json", WrapString("Log output format (json, text)"))
}

// loadEnvFiles loads .env and .env.local if present.
func loadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// configureEnv makes v resolve keys from environment variables.
func configureEnv(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// loadSettings reads and validates the configuration held by v.
func loadSettings(v *viper.Viper) (settings, error) {
	s := settings{
		Table:           strings.TrimSpace(v.GetString(keyTable)),
		Endpoint:        strings.TrimSpace(v.GetString(keyEndpoint)),
		DefaultPageSize: v.GetInt(keyDefaultPageSize),
		MaxPageSize:     v.GetInt(keyMaxPageSize),
		LogFormat:       strings.ToLower(strings.TrimSpace(v.GetString(keyLogFormat))),
	}

	if s.DefaultPageSize < 0 || s.MaxPageSize < 0 {
		return settings{}, fmt.Errorf("page sizes must not be negative (default %d, max %d)", s.DefaultPageSize, s.MaxPageSize)
	}
	if s.MaxPageSize > 0 && s.DefaultPageSize > s.MaxPageSize {
		return settings{}, fmt.Errorf("%s (%d) exceeds %s (%d)", keyDefaultPageSize, s.DefaultPageSize, keyMaxPageSize, s.MaxPageSize)
	}

	for _, p := range strings.Split(v.GetString(keyStagePrefixes), ",") {
		if p = strings.Trim(strings.TrimSpace(p), "/"); p != "" {
			s.StagePrefixes = append(s.StagePrefixes, p)
		}
	}

	level := v.GetString(keyLogLevel)
	if level == "" {
		level = "info"
	}
	if err := s.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return settings{}, fmt.Errorf("invalid log level %q (expected one of: debug, info, warn, error)", level)
	}

	switch s.LogFormat {
	case "":
		s.LogFormat = "json"
	case "json", "text":
	default:
		return settings{}, fmt.Errorf("invalid log format %q (expected one of: json, text)", s.LogFormat)
	}

	return s, nil
}

// newLogger builds the process logger described by s.
func newLogger(s settings, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: s.LogLevel}
	if s.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newDynamoStore connects to DynamoDB using the default AWS credential chain.
func newDynamoStore(ctx context.Context, s settings) (*store.DynamoStore, error) {
	if s.Table == "" {
		return nil, fmt.Errorf("%s is required (set DYNAMODB_TABLE)", keyTable)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
		}
	})
	return store.NewDynamo(client, s.storeConfig()), nil
}

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}
	return strings.Join(wrappedLines, "\n")
}
