// Package config parses service settings from flags, environment and an optional YAML file.
package config

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"sigs.k8s.io/yaml"
)

type Config struct {
	ConfigFile kong.ConfigFlag `name:"config" help:"Path to a YAML configuration file"`

	Server ServerConfig `embed:""`
	AI     AIConfig     `embed:""`
	Store  StoreConfig  `embed:""`
	Redis  RedisConfig  `embed:""`
	Qdrant QdrantConfig `embed:""`
	Log    LogConfig    `embed:""`
}

type ServerConfig struct {
	Host           string        `name:"host" env:"HOST" default:"0.0.0.0" help:"Listen host"`
	Port           int           `name:"port" env:"PORT" default:"5000" help:"Listen port"`
	ReadTimeout    time.Duration `name:"read-timeout" env:"READ_TIMEOUT" default:"90s"`
	WriteTimeout   time.Duration `name:"write-timeout" env:"WRITE_TIMEOUT" default:"150s"`
	BodyLimit      int           `name:"body-limit" env:"BODY_LIMIT" default:"65536" help:"Maximum request body size in bytes"`
	AllowedOrigins string        `name:"allowed-origins" env:"CORS_ALLOWED_ORIGINS" default:"*"`
	Version        string        `name:"app-version" env:"APP_VERSION" default:"dev"`
}

type AIConfig struct {
	Provider       string        `name:"ai-provider" env:"AI_PROVIDER" enum:"gemini,bedrock" default:"gemini"`
	GeminiAPIKey   string        `name:"gemini-api-key" env:"GEMINI_API_KEY,GOOGLE_AI_API_KEY" help:"Gemini API key"`
	GoogleProject  string        `name:"google-project" env:"GOOGLE_CLOUD_PROJECT" help:"Use Vertex AI in this project"`
	GoogleLocation string        `name:"google-location" env:"GOOGLE_CLOUD_LOCATION" default:"us-central1"`
	Model          string        `name:"model" env:"AI_MODEL" default:"gemini-2.5-flash"`
	EmbeddingModel string        `name:"embedding-model" env:"EMBEDDING_MODEL" default:"text-embedding-004"`
	Timeout        time.Duration `name:"ai-timeout" env:"AI_TIMEOUT" default:"60s" help:"Timeout for each AI call"`
	BedrockRegion  string        `name:"bedrock-region" env:"AWS_REGION"`
	BedrockModel   string        `name:"bedrock-model" env:"BEDROCK_MODEL" default:"anthropic.claude-3-5-sonnet-20240620-v1:0"`
}

type StoreConfig struct {
	Driver        string `name:"store-driver" env:"STORE_DRIVER" enum:"sqlite,mongo" default:"sqlite"`
	SQLitePath    string `name:"sqlite-path" env:"SQLITE_PATH" default:"./data/generations.db"`
	MongoURI      string `name:"mongo-uri" env:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `name:"mongo-database" env:"MONGO_DB" default:"uigen"`
}

type RedisConfig struct {
	Addr      string        `name:"redis-addr" env:"REDIS_ADDR" help:"Redis address for the recent feed cache; empty disables it"`
	RecentTTL time.Duration `name:"redis-recent-ttl" env:"REDIS_RECENT_TTL" default:"10m"`
}

type QdrantConfig struct {
	Host       string  `name:"qdrant-host" env:"QDRANT_HOST" help:"Qdrant host for similar prompts; empty disables it"`
	Port       int     `name:"qdrant-port" env:"QDRANT_PORT" default:"6334"`
	Collection string  `name:"qdrant-collection" env:"QDRANT_COLLECTION" default:"generations"`
	Dimension  uint64  `name:"embedding-dimension" env:"EMBEDDING_DIMENSION" default:"768"`
	Threshold  float32 `name:"similarity-threshold" env:"SIMILARITY_THRESHOLD" default:"0.75"`
}

type LogConfig struct {
	Level  string `name:"log-level" env:"LOG_LEVEL" enum:"debug,info,warn,error" default:"info"`
	Format string `name:"log-format" env:"LOG_FORMAT" enum:"json,text" default:"json"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks settings kong cannot express with tags.
func (c *Config) Validate() error {
	hasGemini := c.AI.GeminiAPIKey != "" || c.AI.GoogleProject != ""
	if c.AI.Provider == "gemini" && !hasGemini {
		return fmt.Errorf("GEMINI_API_KEY (or GOOGLE_CLOUD_PROJECT for Vertex AI) is required")
	}
	// Similar-prompt search embeds with Gemini whatever the generation provider is.
	if c.Qdrant.Host != "" && !hasGemini {
		return fmt.Errorf("qdrant-host needs GEMINI_API_KEY (or GOOGLE_CLOUD_PROJECT for Vertex AI) for embeddings")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("ai-timeout must be positive")
	}
	return nil
}

// YAMLLoader lets kong read YAML configuration files through its JSON resolver.
func YAMLLoader(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("convert yaml to json: %w", err)
	}
	return kong.JSON(bytes.NewReader(jsonData))
}

// LoadEnvFile loads a .env file into the process environment. Existing variables win.
func LoadEnvFile(path string) error {
	return godotenv.Load(path)
}

// Parse builds a Config from args, the environment and any --config file.
func Parse(args []string, options ...kong.Option) (*Config, error) {
	var cfg Config
	opts := append([]kong.Option{
		kong.Name("uigen"),
		kong.Description("Turns UI descriptions into design specs and front-end code."),
		kong.Configuration(YAMLLoader),
	}, options...)

	parser, err := kong.New(&cfg, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
