package uploads

import (
	"context"
	"strings"
	"testing"
)

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:9000"
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "inkwell"
	}
	svc, err := NewService(cfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestUploadRejectsUnsupportedContentType(t *testing.T) {
	svc := newTestService(t, Config{})
	_, err := svc.Upload(context.Background(), "ws_1", "application/pdf", 4, strings.NewReader("data"))
	if err == nil {
		t.Fatal("expected error for unsupported content type")
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		object string
		want   string
	}{
		{
			name:   "explicit public base",
			config: Config{Endpoint: "minio:9000", Bucket: "inkwell", PublicURL: "https://cdn.example.com/"},
			object: "ws_1/img_abc.png",
			want:   "https://cdn.example.com/inkwell/ws_1/img_abc.png",
		},
		{
			name:   "falls back to endpoint",
			config: Config{Endpoint: "localhost:9000", Bucket: "inkwell"},
			object: "ws_1/img_abc.png",
			want:   "http://localhost:9000/inkwell/ws_1/img_abc.png",
		},
		{
			name:   "ssl endpoint",
			config: Config{Endpoint: "minio.example.com", Bucket: "inkwell", UseSSL: true},
			object: "ws_1/img_abc.png",
			want:   "https://minio.example.com/inkwell/ws_1/img_abc.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, tt.config)
			if got := svc.publicURL(tt.object); got != tt.want {
				t.Errorf("publicURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
