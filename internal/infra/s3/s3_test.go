package s3

import "testing"

func TestNewClientStripsSchemeAndForcesTLS(t *testing.T) {
	client, err := NewClient(Config{
		Endpoint:  "https://storage.example.com/",
		AccessKey: "key",
		SecretKey: "secret",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if got := client.EndpointURL(); got.Scheme != "https" || got.Host != "storage.example.com" {
		t.Fatalf("unexpected endpoint: %s", got)
	}
}

func TestNewClientRejectsMissingSettings(t *testing.T) {
	cases := []Config{
		{AccessKey: "key", SecretKey: "secret"},
		{Endpoint: "localhost:9000"},
	}
	for _, cfg := range cases {
		if _, err := NewClient(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}
