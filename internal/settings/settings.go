// Package settings loads the YAML settings file of the edgepipe binary.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/birdayz/edgepipe/framesink"
)

// Store kinds.
const (
	StoreFile     = "file"
	StorePebble   = "pebble"
	StoreS3       = "s3"
	StorePostgres = "postgres"
)

type Settings struct {
	FPS             int           `yaml:"fps"`
	NodeTimeout     time.Duration `yaml:"node_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Log       Log       `yaml:"log"`
	Control   Control   `yaml:"control"`
	FrameSink FrameSink `yaml:"frame_sink"`
	Kafka     Kafka     `yaml:"kafka"`
	Store     Store     `yaml:"store"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Control struct {
	Addr string `yaml:"addr"`
	// StreamFPS is the frame rate of /video_feed.
	StreamFPS   int `yaml:"stream_fps"`
	JPEGQuality int `yaml:"jpeg_quality"`
}

type FrameSink struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic"`
}

type Store struct {
	Kind     string   `yaml:"kind"`
	Dir      string   `yaml:"dir"`
	S3       S3       `yaml:"s3"`
	Postgres Postgres `yaml:"postgres"`
}

type S3 struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Secure    bool   `yaml:"secure"`
}

type Postgres struct {
	URL string `yaml:"url"`
}

func Default() Settings {
	return Settings{
		FPS:             30,
		NodeTimeout:     5 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		Log:             Log{Level: "info"},
		Control:         Control{Addr: ":8093", StreamFPS: 10, JPEGQuality: 80},
		FrameSink: FrameSink{
			Enabled: true,
			Path:    framesink.DefaultPath,
			Width:   framesink.DefaultWidth,
			Height:  framesink.DefaultHeight,
		},
		Kafka: Kafka{Topic: "edgepipe"},
		Store: Store{Kind: StoreFile, Dir: "pipelines"},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return s, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, s.Validate()
}

func (s Settings) Validate() error {
	var err error
	if s.FPS < 1 {
		err = multierr.Append(err, fmt.Errorf("fps must be positive, got %d", s.FPS))
	}
	if s.NodeTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("node_timeout must be positive, got %s", s.NodeTimeout))
	}
	if s.FrameSink.Enabled && (s.FrameSink.Width <= 0 || s.FrameSink.Height <= 0) {
		err = multierr.Append(err, fmt.Errorf("frame_sink size must be positive, got %dx%d", s.FrameSink.Width, s.FrameSink.Height))
	}
	switch s.Store.Kind {
	case StoreFile, StorePebble:
		if s.Store.Dir == "" {
			err = multierr.Append(err, fmt.Errorf("store.dir is required for %s", s.Store.Kind))
		}
	case StoreS3:
		if s.Store.S3.Endpoint == "" || s.Store.S3.Bucket == "" {
			err = multierr.Append(err, errors.New("store.s3 needs endpoint and bucket"))
		}
	case StorePostgres:
		if s.Store.Postgres.URL == "" {
			err = multierr.Append(err, errors.New("store.postgres.url is required"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown store kind %q", s.Store.Kind))
	}
	return err
}

// Marshal renders s as YAML.
func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
