package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FieldConfig 定义了 Milvus 集合中字段的配置。
type FieldConfig struct {
	Name         string `yaml:"name"`                // 字段名称
	DataType     string `yaml:"dataType"`            // 字段数据类型 (例如: "Int64", "VarChar", "FloatVector")
	IsPrimaryKey bool   `yaml:"isPrimaryKey"`        // 是否为主键
	IsAutoID     bool   `yaml:"isAutoID"`            // 是否自动生成ID
	Dim          int    `yaml:"dim,omitempty"`       // 向量维度 (仅适用于向量类型)
	MaxLength    int    `yaml:"maxLength,omitempty"` // 最大长度 (仅适用于VarChar类型)
}

// IndexConfig 定义了 Milvus 集合中索引的配置。
type IndexConfig struct {
	FieldName  string                 `yaml:"fieldName"`  // 要创建索引的字段名称
	IndexType  string                 `yaml:"indexType"`  // 索引类型 (例如: "IVF_FLAT", "HNSW")
	MetricType string                 `yaml:"metricType"` // 相似度度量类型，语义记忆要求 "COSINE"
	Params     map[string]interface{} `yaml:"params"`     // 索引参数 (例如: {"nlist": 128})
}

// SchemaConfig 定义了 Milvus 集合的 Schema 配置。
type SchemaConfig struct {
	CollectionName string        `yaml:"collectionName"` // 集合名称
	Description    string        `yaml:"description"`    // 集合描述
	VectorField    string        `yaml:"vectorField"`    // 向量字段名称
	Fields         []FieldConfig `yaml:"fields"`         // 字段配置列表
	Index          IndexConfig   `yaml:"index"`          // 索引配置
}

// MilvusConfig 定义了 Milvus 数据库的连接和 Schema 配置。
type MilvusConfig struct {
	Address string       `yaml:"address"` // Milvus 服务地址，为空表示未启用
	Schema  SchemaConfig `yaml:"schema"`  // Milvus 集合 Schema 配置
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")，为空表示未启用
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了关系型数据库的连接配置。
type MySQLConfig struct {
	Driver          string `yaml:"driver"`          // "mysql" 或 "sqlite"
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称；sqlite 时为文件路径
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`  // MinIO 服务端点，为空表示未启用
	AccessKey string `yaml:"accessKey"` // 访问密钥
	SecretKey string `yaml:"secretKey"` // Secret 密钥
	Bucket    string `yaml:"bucket"`    // 默认存储桶名称
	Secure    bool   `yaml:"secure"`    // 是否使用HTTPS
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表
	Topics  []string `yaml:"topics"`  // 启动时确保存在的主题
	GroupID string   `yaml:"groupID"` // 消费者组
}

// EtcdConfig 定义了服务登记用的 etcd 配置，Endpoints 为空表示不登记。
type EtcdConfig struct {
	Endpoints     []string `yaml:"endpoints"`
	AdvertiseAddr string   `yaml:"advertiseAddr"` // 登记的实例地址，为空时使用 server.address
	LeaseTTL      int64    `yaml:"leaseTTL"`      // 租约 (秒)
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Milvus MilvusConfig `yaml:"milvus"`
	Redis  RedisConfig  `yaml:"redis"`
	MySQL  MySQLConfig  `yaml:"mysql"`
	MinIO  MinIOConfig  `yaml:"minio"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Etcd   EtcdConfig   `yaml:"etcd"`
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`        // 应用程序名称
	Version     string `yaml:"version"`     // 应用程序版本
	Environment string `yaml:"environment"` // 运行环境 (例如: "development", "production")
}

// IsDevelopment 报告是否运行在开发环境，开发环境下错误响应会带上 details。
func (a AppInfo) IsDevelopment() bool {
	return a.Environment == "development"
}

// ServerConfig 定义了 HTTP 服务的监听配置。
type ServerConfig struct {
	Address         string `yaml:"address"`         // 监听地址，例如 ":8080"
	ShutdownTimeout string `yaml:"shutdownTimeout"` // 优雅关闭的等待时间，例如 "10s"
}

// AuthConfig 用于配置认证相关设置。
type AuthConfig struct {
	JwtSecret string `yaml:"jwtSecret"` // JWT 密钥
	TokenTTL  int    `yaml:"tokenTTL"`  // JWT 令牌的有效期（秒）
	Issuer    string `yaml:"issuer"`    // JWT iss
}

// LLMConfig 定义了对话补全所用的模型。
type LLMConfig struct {
	Provider    string  `yaml:"provider"`    // "openai", "gemini", "ollama"
	Model       string  `yaml:"model"`       // 模型名称
	APIKey      string  `yaml:"apiKey"`      // API 密钥
	BaseURL     string  `yaml:"baseURL"`     // 自定义服务地址 (ollama 或兼容 OpenAI 的网关)
	MaxTokens   int     `yaml:"maxTokens"`   // 单次回复的最大 token 数
	Temperature float32 `yaml:"temperature"` // 采样温度
}

// ExtractionConfig 定义了记忆提取调用的参数。
type ExtractionConfig struct {
	Model       string  `yaml:"model"`       // 为空时沿用 llm.model
	MaxTokens   int     `yaml:"maxTokens"`   // 结构化输出很短，预算要小
	Temperature float32 `yaml:"temperature"` // 低温度，输出更稳定
}

// EmbeddingConfig 定义了向量化模型。
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`  // "openai", "gemini", "ollama"
	Model     string `yaml:"model"`     // 模型名称
	APIKey    string `yaml:"apiKey"`    // API 密钥
	BaseURL   string `yaml:"baseURL"`   // 服务地址 (ollama)
	CacheSize int    `yaml:"cacheSize"` // 查询向量缓存条数，0 表示关闭
	CacheTTL  string `yaml:"cacheTTL"`  // 缓存有效期，例如 "10m"
}

// DispatcherConfig 定义了后台提取任务的派发方式。
type DispatcherConfig struct {
	Mode       string `yaml:"mode"`       // "local" 使用进程内协程池, "kafka" 投递给 memory_service
	Workers    int    `yaml:"workers"`    // 本地协程数
	QueueSize  int    `yaml:"queueSize"`  // 本地队列长度，满时丢弃任务
	Topic      string `yaml:"topic"`      // Kafka 主题
	JobTimeout string `yaml:"jobTimeout"` // 单个任务的超时时间
}

// MemoryConfig 定义了记忆系统的参数。
type MemoryConfig struct {
	SemanticStore     string           `yaml:"semanticStore"`     // "chromem" 或 "milvus"
	PersistPath       string           `yaml:"persistPath"`       // chromem 持久化目录，为空则仅在内存中
	Collection        string           `yaml:"collection"`        // chromem 集合名
	MatchThreshold    float32          `yaml:"matchThreshold"`    // 相似度阈值
	SearchLimit       int              `yaml:"searchLimit"`       // 默认检索条数
	ContextLimit      int              `yaml:"contextLimit"`      // 注入上下文的检索条数
	MaxEntriesPerUser int              `yaml:"maxEntriesPerUser"` // 每个用户保留的语义记忆上限，0 表示不限
	Dispatcher        DispatcherConfig `yaml:"dispatcher"`
}

// SearchConfig 定义了联网搜索与网页抓取的参数。
type SearchConfig struct {
	Endpoint         string `yaml:"endpoint"`         // DuckDuckGo instant answer 接口
	Timeout          string `yaml:"timeout"`          // 单次外部调用超时
	MaxResults       int    `yaml:"maxResults"`       // 对话中注入的结果数
	MaxBodyBytes     int64  `yaml:"maxBodyBytes"`     // 响应体上限
	PageContentLimit int    `yaml:"pageContentLimit"` // 网页正文截断长度
	UserAgent        string `yaml:"userAgent"`
}

// DocumentsConfig 定义了文档解析相关的配置。
type DocumentsConfig struct {
	MaxUploadBytes   int64    `yaml:"maxUploadBytes"`   // 上传文件大小上限
	OfficeLicenseKey string   `yaml:"officeLicenseKey"` // unioffice 计量许可证
	StoreUploads     bool     `yaml:"storeUploads"`     // 是否把原始文件存入 MinIO
	RejectPatterns   []string `yaml:"rejectPatterns"`   // 拒绝解析的文件名 glob，例如 "*.exe"
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // 日志级别 (例如: "info", "debug", "warn", "error")
}

// AppConfig 是整个 YAML 文件的根结构，包含了应用程序的所有配置。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	LLM        LLMConfig        `yaml:"llm"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Memory     MemoryConfig     `yaml:"memory"`
	Search     SearchConfig     `yaml:"search"`
	Documents  DocumentsConfig  `yaml:"documents"`
	Logger     LoggerConfig     `yaml:"logger"`
	Databases  DatabaseConfigs  `yaml:"databases"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // 支持: "tokenBucket", "redisWindow"
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
	RedisWindow RedisWindowConfig `yaml:"redisWindow"`
	Global      TokenBucketConfig `yaml:"global"` // 整个进程共享的令牌桶，Rate 为 0 时关闭
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// RedisWindowConfig 定义了基于 Redis 的固定窗口计数器。
type RedisWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
	Prefix string `yaml:"prefix"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// LoadConfig 函数从指定路径加载并解析 YAML 配置文件，并补全默认值。
//
// 参数:
//
//	path: YAML 配置文件的路径。
//
// 返回值:
//
//	*AppConfig: 解析后的应用程序配置结构体。
//	error: 如果文件读取或解析失败，则返回错误。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	var cfg AppConfig
	if err = yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults 为未配置的字段填充默认值。
func (c *AppConfig) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "jarvis_chat"
	}
	if c.App.Environment == "" {
		c.App.Environment = "production"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 7 * 24 * 3600
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "jarvis_chat"
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 1500
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.Extraction.Model == "" {
		c.Extraction.Model = c.LLM.Model
	}
	if c.Extraction.MaxTokens <= 0 {
		c.Extraction.MaxTokens = 300
	}
	if c.Extraction.Temperature == 0 {
		c.Extraction.Temperature = 0.1
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.CacheTTL == "" {
		c.Embedding.CacheTTL = "10m"
	}

	if c.Memory.SemanticStore == "" {
		c.Memory.SemanticStore = "chromem"
	}
	if c.Memory.Collection == "" {
		c.Memory.Collection = "semantic_memories"
	}
	if c.Memory.MatchThreshold == 0 {
		c.Memory.MatchThreshold = 0.7
	}
	if c.Memory.SearchLimit <= 0 {
		c.Memory.SearchLimit = 5
	}
	if c.Memory.ContextLimit <= 0 {
		c.Memory.ContextLimit = 3
	}
	d := &c.Memory.Dispatcher
	if d.Mode == "" {
		d.Mode = "local"
	}
	if d.Workers <= 0 {
		d.Workers = 4
	}
	if d.QueueSize <= 0 {
		d.QueueSize = 256
	}
	if d.Topic == "" {
		d.Topic = "memory-extraction"
	}
	if d.JobTimeout == "" {
		d.JobTimeout = "30s"
	}

	if c.Search.Endpoint == "" {
		c.Search.Endpoint = "https://api.duckduckgo.com/"
	}
	if c.Search.Timeout == "" {
		c.Search.Timeout = "10s"
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 3
	}
	if c.Search.MaxBodyBytes <= 0 {
		c.Search.MaxBodyBytes = 1 << 20
	}
	if c.Search.PageContentLimit <= 0 {
		c.Search.PageContentLimit = 2000
	}
	if c.Search.UserAgent == "" {
		c.Search.UserAgent = "Mozilla/5.0 (compatible; ChatBot/1.0)"
	}

	if c.Documents.MaxUploadBytes <= 0 {
		c.Documents.MaxUploadBytes = 20 << 20
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Databases.MySQL.Driver == "" {
		c.Databases.MySQL.Driver = "mysql"
	}
	if c.Databases.Kafka.GroupID == "" {
		c.Databases.Kafka.GroupID = "memory-service"
	}
	if c.Databases.Etcd.LeaseTTL <= 0 {
		c.Databases.Etcd.LeaseTTL = 10
	}
	if c.Databases.Etcd.AdvertiseAddr == "" {
		c.Databases.Etcd.AdvertiseAddr = c.Server.Address
	}

	rl := &c.Middleware.RateLimiter
	if rl.Algorithm == "" {
		rl.Algorithm = "tokenBucket"
	}
	if rl.RedisWindow.Window == "" {
		rl.RedisWindow.Window = "1m"
	}
	if rl.RedisWindow.Prefix == "" {
		rl.RedisWindow.Prefix = "ratelimit"
	}
	if c.Middleware.CircuitBreaker.Timeout == "" {
		c.Middleware.CircuitBreaker.Timeout = "30s"
	}
}

// Validate 检查无法用默认值兜底的配置项。
func (c *AppConfig) Validate() error {
	if c.Auth.JwtSecret == "" {
		return fmt.Errorf("auth.jwtSecret 不能为空")
	}
	for name, v := range map[string]string{
		"server.shutdownTimeout":            c.Server.ShutdownTimeout,
		"search.timeout":                    c.Search.Timeout,
		"memory.dispatcher.jobTimeout":      c.Memory.Dispatcher.JobTimeout,
		"embedding.cacheTTL":                c.Embedding.CacheTTL,
		"middleware.circuitBreaker.timeout": c.Middleware.CircuitBreaker.Timeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s 不是合法的时间间隔 '%s': %w", name, v, err)
		}
	}
	if c.Memory.MatchThreshold < 0 || c.Memory.MatchThreshold > 1 {
		return fmt.Errorf("memory.matchThreshold 必须在 [0, 1] 之间")
	}
	return nil
}

// Duration 解析一个已经校验过的时间间隔字符串，失败时返回 fallback。
func Duration(v string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
