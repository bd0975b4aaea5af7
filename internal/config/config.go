package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	StaticDir    string   `yaml:"static_dir"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// GeminiConfig configures the Gemini LLM and embedding clients.
type GeminiConfig struct {
	APIKeyEnv   string  `yaml:"api_key_env"`
	ChatModel   string  `yaml:"chat_model"`
	EmbedModel  string  `yaml:"embed_model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float32 `yaml:"temperature"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"` // qdrant or memory
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// RetrievalConfig tunes hybrid search.
type RetrievalConfig struct {
	Mode           string  `yaml:"mode"` // vector or keyword
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float64 `yaml:"score_threshold"`
	DenseWeight    float64 `yaml:"dense_weight"`
	SparseWeight   float64 `yaml:"sparse_weight"`
	PrefetchFactor int     `yaml:"prefetch_factor"`
}

// DataConfig locates the compound catalog and its assets.
type DataConfig struct {
	CatalogFile string `yaml:"catalog_file"`
	DBPath      string `yaml:"db_path"`
	HistoryDB   string `yaml:"history_db"`
	ImagesDir   string `yaml:"images_dir"`
	AudioDir    string `yaml:"audio_dir"`
}

// TTSConfig configures the Piper text-to-speech engine.
type TTSConfig struct {
	PiperBin    string `yaml:"piper_bin"`
	VoiceModel  string `yaml:"voice_model"`
	OutputDir   string `yaml:"output_dir"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// AssetsConfig configures S3 asset uploads.
type AssetsConfig struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Data        DataConfig        `yaml:"data"`
	TTS         TTSConfig         `yaml:"tts"`
	Assets      AssetsConfig      `yaml:"assets"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/chemi/config.yaml.
// If neither exists, it writes defaults to ~/.config/chemi/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "chemi", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = "static"
	}
	if len(cfg.Server.AllowOrigins) == 0 {
		cfg.Server.AllowOrigins = []string{"*"}
	}
	if cfg.Gemini.APIKeyEnv == "" {
		cfg.Gemini.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.Gemini.ChatModel == "" {
		cfg.Gemini.ChatModel = "gemini-2.5-flash"
	}
	if cfg.Gemini.EmbedModel == "" {
		cfg.Gemini.EmbedModel = "gemini-embedding-001"
	}
	if cfg.Gemini.TimeoutSecs == 0 {
		cfg.Gemini.TimeoutSecs = 60
	}
	if cfg.Gemini.Temperature == 0 {
		cfg.Gemini.Temperature = 0.1
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "qdrant"
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant == nil {
		cfg.VectorStore.Qdrant = &QdrantConfig{}
	}
	if q := cfg.VectorStore.Qdrant; q != nil {
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.Collection == "" {
			q.Collection = "chemistry_compounds"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if cfg.Retrieval.Mode == "" {
		cfg.Retrieval.Mode = "vector"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.ScoreThreshold == 0 {
		cfg.Retrieval.ScoreThreshold = 0.3
	}
	if cfg.Retrieval.DenseWeight == 0 {
		cfg.Retrieval.DenseWeight = 0.7
	}
	if cfg.Retrieval.SparseWeight == 0 {
		cfg.Retrieval.SparseWeight = 0.3
	}
	if cfg.Retrieval.PrefetchFactor == 0 {
		cfg.Retrieval.PrefetchFactor = 2
	}
	if cfg.Data.CatalogFile == "" {
		cfg.Data.CatalogFile = "data/chemistry_data.json"
	}
	if cfg.Data.DBPath == "" {
		cfg.Data.DBPath = "data/chemistry.db"
	}
	if cfg.Data.HistoryDB == "" {
		cfg.Data.HistoryDB = "data/checkpoints.db"
	}
	if cfg.Data.ImagesDir == "" {
		cfg.Data.ImagesDir = "data/images"
	}
	if cfg.Data.AudioDir == "" {
		cfg.Data.AudioDir = "data/audio"
	}
	if cfg.TTS.PiperBin == "" {
		cfg.TTS.PiperBin = "piper"
	}
	if cfg.TTS.VoiceModel == "" {
		cfg.TTS.VoiceModel = "models/tts/en_US-lessac-medium.onnx"
	}
	if cfg.TTS.OutputDir == "" {
		cfg.TTS.OutputDir = "data/tts_output"
	}
	if cfg.TTS.TimeoutSecs == 0 {
		cfg.TTS.TimeoutSecs = 10
	}
	if cfg.Assets.Region == "" {
		cfg.Assets.Region = "ap-southeast-1"
	}
}
